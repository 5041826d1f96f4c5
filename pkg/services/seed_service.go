package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"demand-copilot-api/pkg/models"
	"demand-copilot-api/pkg/storage"
)

// seedProduct is the demand profile of one product category in the
// generated history: a base level, a monthly growth trend, a seasonal
// multiplier per calendar month (index 0 = January) and a noise bound.
type seedProduct struct {
	code        string
	description string
	unit        string
	base        float64
	trend       float64
	seasonality [12]float64
	variability float64
	unitPrice   float64
}

// seedHospital scales overall demand per buyer.
type seedHospital struct {
	name   string
	factor float64
}

var seedHospitals = []seedHospital{
	{"Hospital del Salvador", 1.0},
	{"Complejo Asistencial Dr. Sótero del Río", 1.4},
	{"Hospital San José", 1.2},
	{"Hospital Barros Luco-Trudeau", 0.9},
	{"Hospital Clínico San Borja Arriarán", 1.1},
}

// Winter peaks (June to August in Chile) for wound care, flatter for
// gloves which track overall activity.
var seedProducts = []seedProduct{
	{
		code:        "APOSITOS",
		description: "Apósitos Tegaderm 3M",
		unit:        "cajas",
		base:        180,
		trend:       5,
		seasonality: [12]float64{0.9, 0.85, 0.95, 1.0, 1.1, 1.25, 1.3, 1.25, 1.1, 1.0, 0.95, 0.9},
		variability: 0.15,
		unitPrice:   45990,
	},
	{
		code:        "GUANTES_MEDICOS",
		description: "Guantes de nitrilo Solventum",
		unit:        "cajas",
		base:        400,
		trend:       8,
		seasonality: [12]float64{1.0, 0.95, 1.0, 1.05, 1.1, 1.15, 1.2, 1.15, 1.05, 1.0, 1.0, 1.05},
		variability: 0.1,
		unitPrice:   12990,
	},
}

// SolventumCatalog is the seeded product catalog.
func SolventumCatalog() []models.Product {
	return []models.Product{
		{Code: "SOL-AP-001", Name: "Apósito Tegaderm Film", Category: "APOSITOS", Description: "Apósito transparente adhesivo 10x12cm", Keywords: []string{"apósito", "tegaderm", "film"}},
		{Code: "SOL-AP-002", Name: "Apósito Tegaderm Foam", Category: "APOSITOS", Description: "Apósito de espuma absorbente 10x10cm", Keywords: []string{"apósito", "tegaderm", "foam"}},
		{Code: "SOL-GL-001", Name: "Guante Nitrilo M", Category: "GUANTES_MEDICOS", Description: "Guantes de examinación nitrilo talla M", Keywords: []string{"guante", "nitrilo"}},
		{Code: "SOL-GL-002", Name: "Guante Nitrilo L", Category: "GUANTES_MEDICOS", Description: "Guantes de examinación nitrilo talla L", Keywords: []string{"guante", "nitrilo"}},
	}
}

// SeedService generates a deterministic synthetic purchase history for
// demos and local development. The same seed always produces the same
// orders, so reseeding is idempotent end to end.
type SeedService struct {
	store  storage.Store
	logger *logrus.Logger
	nowFn  func() time.Time
}

// NewSeedService wires a seeder over the given store.
func NewSeedService(store storage.Store, logger *logrus.Logger) *SeedService {
	return &SeedService{store: store, logger: logger, nowFn: time.Now}
}

// GenerateOrders builds months of synthetic purchase orders, one order
// per hospital, product and month, walking backwards from now in 30-day
// steps. Quantities follow base + trend with seasonal scaling, hospital
// factors and bounded uniform noise, floored at 50 units.
func (ss *SeedService) GenerateOrders(months int, seed int64) []models.HistoricalRecord {
	rng := rand.New(rand.NewSource(seed))
	now := ss.nowFn()

	records := make([]models.HistoricalRecord, 0, months*len(seedHospitals)*len(seedProducts))
	orderSeq := 0
	for m := months; m >= 1; m-- {
		date := now.AddDate(0, 0, -m*30)
		monthIdx := int(date.Month()) - 1
		age := float64(months - m)
		for _, hospital := range seedHospitals {
			for _, product := range seedProducts {
				level := (product.base + product.trend*age) * product.seasonality[monthIdx] * hospital.factor
				noise := 1 + (rng.Float64()*2-1)*product.variability
				quantity := int(level * noise)
				if quantity < 50 {
					quantity = 50
				}
				orderSeq++
				records = append(records, models.HistoricalRecord{
					OrderID:     fmt.Sprintf("OC-2024-%04d", orderSeq),
					OrderDate:   date,
					Hospital:    hospital.name,
					Product:     product.code,
					Quantity:    quantity,
					Description: product.description,
					Unit:        product.unit,
					TotalAmount: float64(quantity) * product.unitPrice,
				})
			}
		}
	}
	return records
}

// Seed writes the catalog and months of generated orders to the store.
// Order IDs are stable per seed, so repeated runs upsert in place.
func (ss *SeedService) Seed(ctx context.Context, months int, seed int64) (int, error) {
	if months <= 0 {
		months = 12
	}
	if err := ss.store.InsertProducts(ctx, SolventumCatalog()); err != nil {
		return 0, fmt.Errorf("seeding catalog: %w", err)
	}
	records := ss.GenerateOrders(months, seed)
	if err := ss.store.InsertHistoricalRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("seeding orders: %w", err)
	}
	ss.logger.WithFields(logrus.Fields{
		"orders": len(records),
		"months": months,
	}).Info("seed: synthetic history written")
	return len(records), nil
}
