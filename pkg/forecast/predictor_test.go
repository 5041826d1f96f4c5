package forecast

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-copilot-api/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fourRecordHistory is the minimal two-pair dataset: two hospitals, two
// products, two orders each.
func fourRecordHistory() []models.HistoricalRecord {
	return []models.HistoricalRecord{
		{OrderDate: date(2024, 1, 15), Hospital: "Hospital del Salvador", Product: "APOSITOS", Quantity: 200},
		{OrderDate: date(2024, 2, 20), Hospital: "Hospital del Salvador", Product: "APOSITOS", Quantity: 220},
		{OrderDate: date(2024, 3, 10), Hospital: "Hospital Sótero", Product: "GUANTES_MEDICOS", Quantity: 450},
		{OrderDate: date(2024, 4, 5), Hospital: "Hospital Sótero", Product: "GUANTES_MEDICOS", Quantity: 480},
	}
}

// syntheticHistory builds a year of monthly orders with a rising trend so
// the regression has real structure to learn.
func syntheticHistory() []models.HistoricalRecord {
	hospitals := []string{"Hospital del Salvador", "Hospital Sótero", "Hospital San José"}
	products := []string{"APOSITOS", "GUANTES_MEDICOS"}
	var records []models.HistoricalRecord
	for month := 0; month < 12; month++ {
		when := date(2024, 1, 10).AddDate(0, month, 0)
		for hi, hospital := range hospitals {
			for pi, product := range products {
				records = append(records, models.HistoricalRecord{
					OrderDate: when,
					Hospital:  hospital,
					Product:   product,
					Quantity:  150 + 40*hi + 120*pi + 6*month,
				})
			}
		}
	}
	return records
}

func TestTrainRejectsTooFewRecords(t *testing.T) {
	p := NewDemandPredictor(time.Time{})
	_, err := p.Train(fourRecordHistory()[:2], DefaultHoldoutFraction, 42)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrainOnFourRecords(t *testing.T) {
	p := NewDemandPredictor(time.Time{})
	metrics, err := p.Train(fourRecordHistory(), DefaultHoldoutFraction, 42)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.Equal(t, 4, metrics.SampleCount)
	assert.True(t, metrics.LowSample, "4 records is below the reliable minimum")

	// A date past the training window must yield a non-negative integer
	// without failing.
	demand, err := p.Predict("Hospital del Salvador", "APOSITOS", date(2024, 5, 15))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, demand, 0)
}

func TestTrainIsDeterministicForFixedSeed(t *testing.T) {
	records := syntheticHistory()

	a := NewDemandPredictor(time.Time{})
	ma, err := a.Train(records, DefaultHoldoutFraction, 7)
	require.NoError(t, err)

	b := NewDemandPredictor(time.Time{})
	mb, err := b.Train(records, DefaultHoldoutFraction, 7)
	require.NoError(t, err)

	assert.Equal(t, ma, mb)
	assert.Equal(t, a.coefficients, b.coefficients)
	assert.Equal(t, a.intercept, b.intercept)
}

func TestTrainLearnsTrend(t *testing.T) {
	p := NewDemandPredictor(time.Time{})
	metrics, err := p.Train(syntheticHistory(), DefaultHoldoutFraction, 42)
	require.NoError(t, err)

	assert.False(t, metrics.LowSample)
	assert.Greater(t, metrics.HoldoutR2, 0.8, "noise-free synthetic data should fit well")

	// The synthetic series grows month over month; so should predictions.
	near, err := p.Predict("Hospital Sótero", "GUANTES_MEDICOS", date(2025, 2, 10))
	require.NoError(t, err)
	far, err := p.Predict("Hospital Sótero", "GUANTES_MEDICOS", date(2025, 8, 10))
	require.NoError(t, err)
	assert.Greater(t, far, near)
}

func TestPredictBeforeTrainFails(t *testing.T) {
	p := NewDemandPredictor(time.Time{})

	_, err := p.Predict("Hospital del Salvador", "APOSITOS", date(2024, 6, 1))
	assert.ErrorIs(t, err, ErrModelNotTrained)

	_, err = p.PredictBatch([]BatchRequest{{Hospital: "x", Product: "y", Date: date(2024, 6, 1)}})
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestPredictUnknownCategoriesDoesNotFail(t *testing.T) {
	p := NewDemandPredictor(time.Time{})
	_, err := p.Train(syntheticHistory(), DefaultHoldoutFraction, 42)
	require.NoError(t, err)

	// Unknown hospital and product encode as all-zero indicators: the
	// estimate degrades but inference stays available.
	demand, err := p.Predict("Hospital Regional de Talca", "SUTURAS", date(2025, 3, 1))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, demand, 0)
}

func TestPredictClampsNegativeOutputs(t *testing.T) {
	// A steeply falling series drives far-future estimates below zero.
	var records []models.HistoricalRecord
	for month := 0; month < 12; month++ {
		records = append(records, models.HistoricalRecord{
			OrderDate: date(2024, 1, 10).AddDate(0, month, 0),
			Hospital:  "Hospital del Salvador",
			Product:   "APOSITOS",
			Quantity:  600 - 50*month,
		})
	}

	p := NewDemandPredictor(time.Time{})
	_, err := p.Train(records, DefaultHoldoutFraction, 42)
	require.NoError(t, err)

	demand, err := p.Predict("Hospital del Salvador", "APOSITOS", date(2026, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, demand)
}

func TestPredictBatchPreservesOrderAndCount(t *testing.T) {
	p := NewDemandPredictor(time.Time{})
	_, err := p.Train(syntheticHistory(), DefaultHoldoutFraction, 42)
	require.NoError(t, err)

	requests := []BatchRequest{
		{Hospital: "Hospital Sótero", Product: "GUANTES_MEDICOS", Date: date(2025, 1, 10)},
		{Hospital: "Hospital del Salvador", Product: "APOSITOS", Date: date(2025, 2, 10)},
		{Hospital: "Hospital San José", Product: "APOSITOS", Date: date(2025, 3, 10)},
	}
	batch, err := p.PredictBatch(requests)
	require.NoError(t, err)
	require.Len(t, batch, len(requests))

	for i, req := range requests {
		single, err := p.Predict(req.Hospital, req.Product, req.Date)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "batch row %d must match the point prediction", i)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := NewDemandPredictor(time.Time{})
	_, err := p.Train(syntheticHistory(), DefaultHoldoutFraction, 42)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "demand_model.json")
	require.NoError(t, p.Save(path))

	loaded, err := LoadPredictor(path)
	require.NoError(t, err)
	assert.True(t, loaded.Trained())

	// Bit-exact restoration: coefficients and predictions are identical.
	assert.Equal(t, p.coefficients, loaded.coefficients)
	assert.Equal(t, p.intercept, loaded.intercept)

	inputs := []BatchRequest{
		{Hospital: "Hospital del Salvador", Product: "APOSITOS", Date: date(2025, 1, 15)},
		{Hospital: "Hospital Sótero", Product: "GUANTES_MEDICOS", Date: date(2025, 6, 15)},
		{Hospital: "Hospital Nuevo", Product: "APOSITOS", Date: date(2025, 9, 15)},
	}
	want, err := p.PredictBatch(inputs)
	require.NoError(t, err)
	got, err := loaded.PredictBatch(inputs)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveUntrainedFails(t *testing.T) {
	p := NewDemandPredictor(time.Time{})
	err := p.Save(filepath.Join(t.TempDir(), "model.json"))
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestLoadMissingArtifactFails(t *testing.T) {
	_, err := LoadPredictor(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestConfidenceScore(t *testing.T) {
	testCases := []struct {
		name      string
		holdoutR2 float64
		expected  float64
	}{
		{"strong fit", 0.92, 92.0},
		{"perfect fit", 1.0, 100.0},
		{"above one is clamped", 1.7, 100.0},
		{"zero", 0.0, 0.0},
		{"pathological negative", -3.4, 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score := ConfidenceScore(&EvaluationMetrics{HoldoutR2: tc.holdoutR2})
			assert.InDelta(t, tc.expected, score, 1e-9)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestConfidenceScoreNilMetrics(t *testing.T) {
	assert.Equal(t, 0.0, ConfidenceScore(nil))
}
