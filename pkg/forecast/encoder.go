package forecast

import "sort"

// CategoryEncoder turns a category string into a fixed-width indicator
// vector. The category list is captured once at fit time and its order is
// a contract: the same list, in the same order, must be used at inference
// time or the regression columns silently stop lining up. For that reason
// the fitted list is persisted with the model and restored verbatim,
// never re-derived from live data.
type CategoryEncoder struct {
	categories []string
	index      map[string]int
}

// NewCategoryEncoder creates an unfitted encoder.
func NewCategoryEncoder() *CategoryEncoder {
	return &CategoryEncoder{}
}

// RestoreCategoryEncoder rebuilds an encoder from a previously persisted
// category list, preserving its column order exactly.
func RestoreCategoryEncoder(categories []string) *CategoryEncoder {
	enc := &CategoryEncoder{
		categories: append([]string(nil), categories...),
		index:      make(map[string]int, len(categories)),
	}
	for i, c := range enc.categories {
		enc.index[c] = i
	}
	return enc
}

// Fit captures the sorted set of distinct categories seen in values and
// returns the resulting ordered category list.
func (e *CategoryEncoder) Fit(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	e.categories = e.categories[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		e.categories = append(e.categories, v)
	}
	sort.Strings(e.categories)

	e.index = make(map[string]int, len(e.categories))
	for i, c := range e.categories {
		e.index[c] = i
	}
	return e.Categories()
}

// Encode returns the indicator vector for value. A value that was not
// seen at fit time encodes as the all-zero vector: inference stays
// available for novel hospitals and products at the cost of degraded
// accuracy for them.
func (e *CategoryEncoder) Encode(value string) []float64 {
	vec := make([]float64, len(e.categories))
	if i, ok := e.index[value]; ok {
		vec[i] = 1
	}
	return vec
}

// Categories returns a copy of the fitted category list in column order.
func (e *CategoryEncoder) Categories() []string {
	return append([]string(nil), e.categories...)
}

// Width returns the length of the indicator vectors this encoder produces.
func (e *CategoryEncoder) Width() int {
	return len(e.categories)
}
