package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"demand-copilot-api/pkg/forecast"
	"demand-copilot-api/pkg/models"
	"demand-copilot-api/pkg/storage"
)

const (
	// DefaultForecastMonths is how many monthly steps ahead a cycle
	// forecasts when the caller does not say otherwise.
	DefaultForecastMonths = 3

	// forecastStepDays is the spacing between forecast dates. Months are
	// approximated as fixed 30-day steps from the cycle start.
	forecastStepDays = 30
)

// CycleResult reports one completed forecast cycle.
type CycleResult struct {
	Metrics    *forecast.EvaluationMetrics `json:"metrics"`
	Confidence float64                     `json:"confidence"`
	RowCount   int                         `json:"row_count"`
	Hospitals  int                         `json:"hospitals"`
	Products   int                         `json:"products"`
}

// PredictionService owns the train->forecast->publish cycle. A cycle
// retrains from the full history, forecasts every known hospital/product
// pair over the horizon and atomically replaces the stored snapshot.
type PredictionService struct {
	store  storage.Store
	logger *logrus.Logger
	nowFn  func() time.Time
}

// NewPredictionService wires a prediction service over the given store.
func NewPredictionService(store storage.Store, logger *logrus.Logger) *PredictionService {
	return &PredictionService{
		store:  store,
		logger: logger,
		nowFn:  time.Now,
	}
}

// RunForecastCycle retrains from stored history, generates the full
// forecast grid for months monthly steps and publishes it as the new
// snapshot. When modelPath is non-empty the fitted model is saved there
// after a successful publish. Seed drives the train/holdout shuffle so
// repeated cycles over unchanged data produce identical snapshots.
func (ps *PredictionService) RunForecastCycle(ctx context.Context, months int, seed int64, modelPath string) (*CycleResult, error) {
	if months <= 0 {
		months = DefaultForecastMonths
	}

	records, err := ps.store.QueryHistoricalRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	predictor := forecast.NewDemandPredictor(time.Time{})
	metrics, err := predictor.Train(records, forecast.DefaultHoldoutFraction, seed)
	if err != nil {
		return nil, fmt.Errorf("training model: %w", err)
	}
	if metrics.LowSample {
		ps.logger.WithFields(logrus.Fields{
			"records": metrics.SampleCount,
			"minimum": forecast.MinReliableRecords,
		}).Warn("forecast: training on a low-sample dataset, confidence will be unreliable")
	}

	confidence := forecast.ConfidenceScore(metrics)

	hospitals, err := ps.store.ListHospitals(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hospitals: %w", err)
	}
	products, err := ps.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	rows, err := ps.generateGrid(predictor, hospitals, products, months, confidence)
	if err != nil {
		return nil, err
	}

	if err := ps.store.ReplaceForecastSnapshot(ctx, rows); err != nil {
		return nil, fmt.Errorf("publishing snapshot: %w", err)
	}

	if modelPath != "" {
		if err := predictor.Save(modelPath); err != nil {
			ps.logger.WithError(err).WithField("path", modelPath).Warn("forecast: snapshot published but model save failed")
		}
	}

	ps.logger.WithFields(logrus.Fields{
		"rows":       len(rows),
		"hospitals":  len(hospitals),
		"products":   len(products),
		"months":     months,
		"holdout_r2": metrics.HoldoutR2,
		"confidence": confidence,
	}).Info("forecast: cycle complete")

	return &CycleResult{
		Metrics:    metrics,
		Confidence: confidence,
		RowCount:   len(rows),
		Hospitals:  len(hospitals),
		Products:   len(products),
	}, nil
}

// generateGrid forecasts every hospital/product pair at each monthly
// step. The month loop is outermost so the snapshot is ordered by date
// first, matching how readers consume it.
func (ps *PredictionService) generateGrid(predictor *forecast.DemandPredictor, hospitals, products []string, months int, confidence float64) ([]models.ForecastRow, error) {
	start := ps.nowFn()
	requests := make([]forecast.BatchRequest, 0, months*len(hospitals)*len(products))
	for m := 1; m <= months; m++ {
		date := start.AddDate(0, 0, m*forecastStepDays)
		for _, hospital := range hospitals {
			for _, product := range products {
				requests = append(requests, forecast.BatchRequest{
					Hospital: hospital,
					Product:  product,
					Date:     date,
				})
			}
		}
	}

	quantities, err := predictor.PredictBatch(requests)
	if err != nil {
		return nil, fmt.Errorf("generating forecasts: %w", err)
	}

	rows := make([]models.ForecastRow, len(requests))
	for i, req := range requests {
		rows[i] = models.ForecastRow{
			Hospital:          req.Hospital,
			Product:           req.Product,
			ForecastDate:      req.Date,
			EstimatedQuantity: quantities[i],
			ConfidencePercent: confidence,
		}
	}
	return rows, nil
}
