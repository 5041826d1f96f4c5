package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"demand-copilot-api/pkg/models"
)

const (
	// MinTrainableRecords is the hard floor below which a fit/holdout
	// split is impossible and Train fails.
	MinTrainableRecords = 3

	// MinReliableRecords is the practical minimum for a trustworthy
	// model. Smaller datasets still train but are flagged low-sample.
	MinReliableRecords = 50

	// DefaultHoldoutFraction is the share of records withheld from the
	// fit and used only for evaluation.
	DefaultHoldoutFraction = 0.2
)

// EvaluationMetrics summarizes one training run on both partitions.
type EvaluationMetrics struct {
	TrainMAE     float64 `json:"train_mae"`
	TrainRMSE    float64 `json:"train_rmse"`
	TrainR2      float64 `json:"train_r2"`
	HoldoutMAE   float64 `json:"holdout_mae"`
	HoldoutRMSE  float64 `json:"holdout_rmse"`
	HoldoutR2    float64 `json:"holdout_r2"`
	SampleCount  int     `json:"sample_count"`
	FeatureCount int     `json:"feature_count"`

	// LowSample marks a model trained on fewer than MinReliableRecords.
	// Training still succeeds; callers surface this as a warning.
	LowSample bool `json:"low_sample"`
}

// BatchRequest is one (hospital, product, date) combination to forecast.
type BatchRequest struct {
	Hospital string
	Product  string
	Date     time.Time
}

// DemandPredictor is a linear regression demand model over the feature
// scheme of FeatureBuilder. Linear regression is deliberate: coefficients
// map one-to-one to demand contribution per category, per day of trend
// and per seasonal phase, the fit is deterministic given seed and data,
// and even a handful of rows per category yields a usable model.
//
// A predictor is either untrained or trained; re-training replaces the
// fitted state in place. Trained predictors are safe for concurrent
// Predict calls, as prediction never mutates state.
type DemandPredictor struct {
	features     *FeatureBuilder
	coefficients []float64
	intercept    float64
	trained      bool
}

// NewDemandPredictor creates an untrained predictor anchored at the
// given reference date (DefaultReferenceDate when zero).
func NewDemandPredictor(referenceDate time.Time) *DemandPredictor {
	if referenceDate.IsZero() {
		referenceDate = DefaultReferenceDate
	}
	return &DemandPredictor{
		features: NewFeatureBuilder(referenceDate),
	}
}

// Train fits the model on historical records. A holdoutFraction share of
// the records (at least one, never all) is withheld using a shuffle
// driven by seed, so runs are reproducible. Returns evaluation metrics
// for both partitions.
func (p *DemandPredictor) Train(records []models.HistoricalRecord, holdoutFraction float64, seed int64) (*EvaluationMetrics, error) {
	n := len(records)
	if n < MinTrainableRecords {
		return nil, fmt.Errorf("%w: got %d records, need at least %d", ErrInsufficientData, n, MinTrainableRecords)
	}
	if holdoutFraction <= 0 || holdoutFraction >= 1 {
		holdoutFraction = DefaultHoldoutFraction
	}

	p.features.FitEncoders(records)

	X := make([][]float64, n)
	y := make([]float64, n)
	for i, r := range records {
		X[i] = p.features.Row(r.OrderDate, r.Hospital, r.Product)
		y[i] = float64(r.Quantity)
	}

	holdoutSize := int(math.Ceil(float64(n) * holdoutFraction))
	if holdoutSize < 1 {
		holdoutSize = 1
	}
	if holdoutSize > n-2 {
		holdoutSize = n - 2
	}
	if holdoutSize < 1 {
		holdoutSize = 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	holdoutIdx := perm[:holdoutSize]
	fitIdx := perm[holdoutSize:]

	fitX := make([][]float64, len(fitIdx))
	fitY := make([]float64, len(fitIdx))
	for i, idx := range fitIdx {
		fitX[i] = X[idx]
		fitY[i] = y[idx]
	}

	coefficients, intercept, err := fitOLS(fitX, fitY)
	if err != nil {
		return nil, fmt.Errorf("fitting regression: %w", err)
	}
	p.coefficients = coefficients
	p.intercept = intercept
	p.trained = true

	fitPred := make([]float64, len(fitIdx))
	for i := range fitX {
		fitPred[i] = p.apply(fitX[i])
	}
	holdY := make([]float64, len(holdoutIdx))
	holdPred := make([]float64, len(holdoutIdx))
	for i, idx := range holdoutIdx {
		holdY[i] = y[idx]
		holdPred[i] = p.apply(X[idx])
	}

	return &EvaluationMetrics{
		TrainMAE:     meanAbsoluteError(fitY, fitPred),
		TrainRMSE:    rootMeanSquaredError(fitY, fitPred),
		TrainR2:      rSquared(fitY, fitPred),
		HoldoutMAE:   meanAbsoluteError(holdY, holdPred),
		HoldoutRMSE:  rootMeanSquaredError(holdY, holdPred),
		HoldoutR2:    rSquared(holdY, holdPred),
		SampleCount:  n,
		FeatureCount: len(coefficients),
		LowSample:    n < MinReliableRecords,
	}, nil
}

// apply evaluates the linear model on one feature row.
func (p *DemandPredictor) apply(row []float64) float64 {
	sum := p.intercept
	for i, c := range p.coefficients {
		sum += c * row[i]
	}
	return sum
}

// Predict estimates demand for one hospital, product and date. Negative
// regression outputs are clamped to zero before rounding; hospitals or
// products unknown at training time encode as all-zero indicators and
// still produce a (less accurate) estimate rather than an error.
func (p *DemandPredictor) Predict(hospital, product string, date time.Time) (int, error) {
	if !p.trained {
		return 0, ErrModelNotTrained
	}
	value := p.apply(p.features.Row(date, hospital, product))
	if value < 0 {
		value = 0
	}
	return int(math.Round(value)), nil
}

// PredictBatch estimates demand for every request. The result is aligned
// with the input: same length, same order.
func (p *DemandPredictor) PredictBatch(requests []BatchRequest) ([]int, error) {
	if !p.trained {
		return nil, ErrModelNotTrained
	}
	out := make([]int, len(requests))
	for i, req := range requests {
		value := p.apply(p.features.Row(req.Date, req.Hospital, req.Product))
		if value < 0 {
			value = 0
		}
		out[i] = int(math.Round(value))
	}
	return out, nil
}

// Trained reports whether the predictor has been fitted.
func (p *DemandPredictor) Trained() bool {
	return p.trained
}

// modelArtifact is the single persisted value object bundling all fitted
// state. The category lists are part of the artifact on purpose: column
// order is re-derived from here at load time, never from live data.
type modelArtifact struct {
	Coefficients       []float64 `json:"coefficients"`
	Intercept          float64   `json:"intercept"`
	ReferenceDate      time.Time `json:"reference_date"`
	HospitalCategories []string  `json:"hospital_categories"`
	ProductCategories  []string  `json:"product_categories"`
	SavedAt            time.Time `json:"saved_at"`
}

// Save persists the complete fitted state to path as JSON. Go's float64
// JSON encoding round-trips bit-exactly, so a loaded model reproduces the
// original's predictions exactly.
func (p *DemandPredictor) Save(path string) error {
	if !p.trained {
		return ErrModelNotTrained
	}
	artifact := modelArtifact{
		Coefficients:       p.coefficients,
		Intercept:          p.intercept,
		ReferenceDate:      p.features.ReferenceDate(),
		HospitalCategories: p.features.HospitalCategories(),
		ProductCategories:  p.features.ProductCategories(),
		SavedAt:            time.Now().UTC(),
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding model artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing model artifact: %w", err)
	}
	return nil
}

// LoadPredictor restores a trained predictor from a saved artifact.
func LoadPredictor(path string) (*DemandPredictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}
	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decoding model artifact: %w", err)
	}
	return &DemandPredictor{
		features: RestoreFeatureBuilder(
			artifact.ReferenceDate,
			artifact.HospitalCategories,
			artifact.ProductCategories,
		),
		coefficients: artifact.Coefficients,
		intercept:    artifact.Intercept,
		trained:      true,
	}, nil
}
