// Package storage provides the persistence layer for historical purchase
// orders, the demand forecast snapshot, the product catalog and the
// co-pilot query log. The Postgres implementation is the production
// backend; MemoryStore offers the same semantics for tests and local
// development without a database.
package storage

import (
	"context"

	"demand-copilot-api/pkg/models"
)

// ForecastFilter narrows forecast snapshot queries. Zero values mean
// "no constraint".
type ForecastFilter struct {
	Hospital    string
	Product     string
	HorizonDays int // only rows dated within N days from now
	Limit       int
}

// Store is the storage collaborator consumed by the forecasting and
// context-aggregation services.
type Store interface {
	// Historical purchase orders (training source of truth).
	InsertHistoricalRecords(ctx context.Context, records []models.HistoricalRecord) error
	QueryHistoricalRecords(ctx context.Context) ([]models.HistoricalRecord, error)
	ListHospitals(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context) ([]string, error)

	// Forecast snapshot. ReplaceForecastSnapshot is all-or-nothing: readers
	// observe either the previous snapshot or the new one in full, never a
	// mixture, and replaying the same rows leaves an identical snapshot.
	ReplaceForecastSnapshot(ctx context.Context, rows []models.ForecastRow) error
	QueryForecastRows(ctx context.Context, filter ForecastFilter) ([]models.ForecastRow, error)
	QueryRanking(ctx context.Context, product string) ([]models.HospitalRanking, error)
	QuerySummary(ctx context.Context, product string) (*models.ProductSummary, error)

	// Product catalog.
	InsertProducts(ctx context.Context, products []models.Product) error
	ListCatalog(ctx context.Context) ([]models.Product, error)

	// Co-pilot bookkeeping.
	LogConsultation(ctx context.Context, userID, query, response string) error
	Stats(ctx context.Context) (*models.SystemStats, error)
	Ping(ctx context.Context) error
}
