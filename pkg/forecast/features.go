package forecast

import (
	"math"
	"time"

	"demand-copilot-api/pkg/models"
)

// DefaultReferenceDate anchors the linear trend feature. All day counts
// are signed distances from this date, so it must stay fixed between
// training and inference; it is persisted with the model.
var DefaultReferenceDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FeatureBuilder derives the numeric feature row for a
// (date, hospital, product) triple:
//
//	[daysSinceReference, sin(2π·month/12), cos(2π·month/12),
//	 hospital indicators..., product indicators...]
//
// The day count captures drift, the sin/cos pair captures seasonality
// without a discontinuity at the year boundary, and the two indicator
// blocks carry the categorical identity of the pair.
type FeatureBuilder struct {
	referenceDate time.Time
	hospitals     *CategoryEncoder
	products      *CategoryEncoder
}

// NewFeatureBuilder creates a builder with unfitted encoders.
func NewFeatureBuilder(referenceDate time.Time) *FeatureBuilder {
	return &FeatureBuilder{
		referenceDate: referenceDate,
		hospitals:     NewCategoryEncoder(),
		products:      NewCategoryEncoder(),
	}
}

// RestoreFeatureBuilder rebuilds a builder from persisted model state so
// that inference reuses the exact column layout captured at training time.
func RestoreFeatureBuilder(referenceDate time.Time, hospitalCategories, productCategories []string) *FeatureBuilder {
	return &FeatureBuilder{
		referenceDate: referenceDate,
		hospitals:     RestoreCategoryEncoder(hospitalCategories),
		products:      RestoreCategoryEncoder(productCategories),
	}
}

// FitEncoders fits both category encoders from the training records.
// Training-time only; inference must keep the already-fitted encoders.
func (fb *FeatureBuilder) FitEncoders(records []models.HistoricalRecord) {
	hospitals := make([]string, len(records))
	products := make([]string, len(records))
	for i, r := range records {
		hospitals[i] = r.Hospital
		products[i] = r.Product
	}
	fb.hospitals.Fit(hospitals)
	fb.products.Fit(products)
}

// Row builds one feature row for a date, hospital and product.
func (fb *FeatureBuilder) Row(date time.Time, hospital, product string) []float64 {
	days := math.Floor(date.Sub(fb.referenceDate).Hours() / 24)
	month := float64(date.Month())

	row := make([]float64, 0, 3+fb.hospitals.Width()+fb.products.Width())
	row = append(row,
		days,
		math.Sin(2*math.Pi*month/12),
		math.Cos(2*math.Pi*month/12),
	)
	row = append(row, fb.hospitals.Encode(hospital)...)
	row = append(row, fb.products.Encode(product)...)
	return row
}

// Width returns the feature dimensionality once the encoders are fitted.
func (fb *FeatureBuilder) Width() int {
	return 3 + fb.hospitals.Width() + fb.products.Width()
}

// ReferenceDate returns the trend anchor date.
func (fb *FeatureBuilder) ReferenceDate() time.Time {
	return fb.referenceDate
}

// HospitalCategories returns the fitted hospital column order.
func (fb *FeatureBuilder) HospitalCategories() []string {
	return fb.hospitals.Categories()
}

// ProductCategories returns the fitted product column order.
func (fb *FeatureBuilder) ProductCategories() []string {
	return fb.products.Categories()
}
