package models

import "time"

// HistoricalRecord is one historical purchase order line, the training
// source of truth. Records are immutable once ingested.
type HistoricalRecord struct {
	OrderID     string    `json:"order_id,omitempty"`
	OrderDate   time.Time `json:"order_date"`
	Hospital    string    `json:"hospital"`
	Product     string    `json:"product"` // standardized category code, e.g. "APOSITOS"
	Quantity    int       `json:"quantity"`
	Description string    `json:"description,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	TotalAmount float64   `json:"total_amount,omitempty"`
}

// ForecastRow is one persisted demand forecast. A full training+prediction
// cycle replaces the entire snapshot; confidence is uniform per batch.
type ForecastRow struct {
	Hospital          string    `json:"hospital"`
	Product           string    `json:"product"`
	ForecastDate      time.Time `json:"forecast_date"`
	EstimatedQuantity int       `json:"estimated_quantity"`
	ConfidencePercent float64   `json:"confidence_percent"`
}

// HospitalRanking aggregates total estimated demand per hospital,
// ordered by total demand descending.
type HospitalRanking struct {
	Hospital          string  `json:"hospital"`
	TotalDemand       int     `json:"total_demand"`
	ForecastCount     int     `json:"forecast_count"`
	AverageConfidence float64 `json:"average_confidence"`
}

// ProductSummary holds aggregate forecast statistics for one product.
type ProductSummary struct {
	Product           string    `json:"product"`
	HospitalCount     int       `json:"hospital_count"`
	TotalDemand       int       `json:"total_demand"`
	AverageDemand     float64   `json:"average_demand"`
	FirstForecastDate time.Time `json:"first_forecast_date"`
	LastForecastDate  time.Time `json:"last_forecast_date"`
	AverageConfidence float64   `json:"average_confidence"`
}

// Product is one entry of the product catalog.
type Product struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

// IntentKind tags the result of query intent classification.
type IntentKind string

const (
	// IntentProduct means the question targets a specific product category.
	IntentProduct IntentKind = "product"
	// IntentHospital means the question targets a specific hospital.
	IntentHospital IntentKind = "hospital"
	// IntentGeneral is the fallback for everything else.
	IntentGeneral IntentKind = "general"
)

// QueryIntent is the classification of one free-text question.
// Product/Hospital carry the canonical entity value for their kind.
type QueryIntent struct {
	Kind     IntentKind `json:"kind"`
	Product  string     `json:"product,omitempty"`
	Hospital string     `json:"hospital,omitempty"`
}

// QueryContext bundles the forecast slices retrieved for one question.
// It is ephemeral: built per question, rendered into a digest, discarded.
type QueryContext struct {
	Intent     QueryIntent       `json:"intent"`
	Rankings   []HospitalRanking `json:"rankings,omitempty"`
	DetailRows []ForecastRow     `json:"detail_rows,omitempty"`
	Summary    *ProductSummary   `json:"summary,omitempty"`
}

// IsEmpty reports whether the context carries no data at all, in which
// case no digest is rendered and the raw question goes downstream as-is.
func (qc *QueryContext) IsEmpty() bool {
	return len(qc.Rankings) == 0 && len(qc.DetailRows) == 0 && qc.Summary == nil
}

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
	UserID  string `json:"user_id,omitempty"`
}

// ChatResponse represents the response from the chat API
type ChatResponse struct {
	Response    string `json:"response"`
	ContextUsed bool   `json:"context_used"`
	SessionID   string `json:"session_id,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// SystemStats are the counters shown on the stats endpoint.
type SystemStats struct {
	TotalForecasts     int `json:"total_forecasts"`
	TotalHospitals     int `json:"total_hospitals"`
	TotalProducts      int `json:"total_products"`
	TotalConsultations int `json:"total_consultations"`
}
