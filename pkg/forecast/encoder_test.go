package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-copilot-api/pkg/models"
)

func TestCategoryEncoderFit(t *testing.T) {
	enc := NewCategoryEncoder()
	categories := enc.Fit([]string{"GUANTES_MEDICOS", "APOSITOS", "GUANTES_MEDICOS", "APOSITOS"})

	// Distinct values, sorted, duplicates collapsed.
	assert.Equal(t, []string{"APOSITOS", "GUANTES_MEDICOS"}, categories)
	assert.Equal(t, 2, enc.Width())
}

func TestCategoryEncoderEncode(t *testing.T) {
	enc := NewCategoryEncoder()
	enc.Fit([]string{"APOSITOS", "GUANTES_MEDICOS", "SUTURAS"})

	assert.Equal(t, []float64{1, 0, 0}, enc.Encode("APOSITOS"))
	assert.Equal(t, []float64{0, 0, 1}, enc.Encode("SUTURAS"))
}

func TestCategoryEncoderUnseenValueIsAllZero(t *testing.T) {
	enc := NewCategoryEncoder()
	enc.Fit([]string{"APOSITOS", "GUANTES_MEDICOS"})

	// Novel categories must not fail; they encode as the zero vector.
	assert.Equal(t, []float64{0, 0}, enc.Encode("ANTISEPTICOS"))
}

func TestRestoreCategoryEncoderPreservesOrder(t *testing.T) {
	original := NewCategoryEncoder()
	original.Fit([]string{"Hospital San José", "Hospital del Salvador"})

	restored := RestoreCategoryEncoder(original.Categories())
	for _, v := range original.Categories() {
		assert.Equal(t, original.Encode(v), restored.Encode(v))
	}
}

func TestFeatureBuilderRow(t *testing.T) {
	fb := NewFeatureBuilder(DefaultReferenceDate)
	fb.FitEncoders([]models.HistoricalRecord{
		{Hospital: "Hospital del Salvador", Product: "APOSITOS"},
		{Hospital: "Hospital Sótero", Product: "GUANTES_MEDICOS"},
	})

	date := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	row := fb.Row(date, "Hospital del Salvador", "APOSITOS")

	require.Len(t, row, fb.Width())
	assert.Equal(t, 10.0, row[0], "days since reference date")
	assert.InDelta(t, 0.5, row[1], 1e-12, "sin(2π·1/12)")

	// Indicator blocks: hospital first, then product.
	assert.Equal(t, []float64{1, 0}, row[3:5])
	assert.Equal(t, []float64{1, 0}, row[5:7])
}

func TestFeatureBuilderMonthEncodingIsCyclical(t *testing.T) {
	fb := NewFeatureBuilder(DefaultReferenceDate)
	fb.FitEncoders(nil)

	december := fb.Row(time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), "", "")
	january := fb.Row(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), "", "")

	// Adjacent months stay close across the year boundary; the encoding
	// has no discontinuity between December and January.
	assert.InDelta(t, december[1], january[1], 0.6)
	assert.InDelta(t, december[2], january[2], 0.2)
}

func TestFeatureBuilderDatesBeforeReferenceAreNegative(t *testing.T) {
	fb := NewFeatureBuilder(DefaultReferenceDate)
	fb.FitEncoders(nil)

	row := fb.Row(time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), "", "")
	assert.Equal(t, -2.0, row[0])
}
