package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"demand-copilot-api/pkg/models"
)

// MemoryStore is a mutex-guarded in-memory Store with the same
// observable semantics as the Postgres implementation. It backs the unit
// tests and serves as the local development fallback when no database
// URL is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]models.HistoricalRecord // keyed by order ID
	forecasts []models.ForecastRow
	catalog   map[string]models.Product // keyed by product code
	queries   int

	nowFn func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[string]models.HistoricalRecord),
		catalog: make(map[string]models.Product),
		nowFn:   time.Now,
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// InsertHistoricalRecords upserts purchase orders keyed by order ID.
func (s *MemoryStore) InsertHistoricalRecords(_ context.Context, records []models.HistoricalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.orders[r.OrderID] = r
	}
	return nil
}

// QueryHistoricalRecords returns all purchase orders ordered by date.
func (s *MemoryStore) QueryHistoricalRecords(context.Context) ([]models.HistoricalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.HistoricalRecord, 0, len(s.orders))
	for _, r := range s.orders {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.Before(out[j].OrderDate)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out, nil
}

// ListHospitals returns the distinct hospitals in the history, sorted.
func (s *MemoryStore) ListHospitals(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distinct(func(r models.HistoricalRecord) string { return r.Hospital }), nil
}

// ListProducts returns the distinct product codes in the history, sorted.
func (s *MemoryStore) ListProducts(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distinct(func(r models.HistoricalRecord) string { return r.Product }), nil
}

func (s *MemoryStore) distinct(key func(models.HistoricalRecord) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.orders {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ReplaceForecastSnapshot swaps the whole snapshot atomically
// (copy-and-swap under the write lock).
func (s *MemoryStore) ReplaceForecastSnapshot(_ context.Context, rows []models.ForecastRow) error {
	replacement := append([]models.ForecastRow(nil), rows...)
	s.mu.Lock()
	s.forecasts = replacement
	s.mu.Unlock()
	return nil
}

// QueryForecastRows returns snapshot rows matching the filter, ordered by
// forecast date, then product, then hospital.
func (s *MemoryStore) QueryForecastRows(_ context.Context, filter ForecastFilter) ([]models.ForecastRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cutoff time.Time
	if filter.HorizonDays > 0 {
		cutoff = s.nowFn().AddDate(0, 0, filter.HorizonDays)
	}

	var out []models.ForecastRow
	for _, r := range s.forecasts {
		if filter.Hospital != "" && r.Hospital != filter.Hospital {
			continue
		}
		if filter.Product != "" && r.Product != filter.Product {
			continue
		}
		if !cutoff.IsZero() && r.ForecastDate.After(cutoff) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ForecastDate.Equal(out[j].ForecastDate) {
			return out[i].ForecastDate.Before(out[j].ForecastDate)
		}
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		return out[i].Hospital < out[j].Hospital
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// QueryRanking aggregates total demand per hospital, descending.
func (s *MemoryStore) QueryRanking(_ context.Context, product string) ([]models.HospitalRanking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type agg struct {
		total      int
		count      int
		confidence float64
	}
	byHospital := make(map[string]*agg)
	for _, r := range s.forecasts {
		if product != "" && r.Product != product {
			continue
		}
		a, ok := byHospital[r.Hospital]
		if !ok {
			a = &agg{}
			byHospital[r.Hospital] = a
		}
		a.total += r.EstimatedQuantity
		a.count++
		a.confidence += r.ConfidencePercent
	}

	out := make([]models.HospitalRanking, 0, len(byHospital))
	for hospital, a := range byHospital {
		out = append(out, models.HospitalRanking{
			Hospital:          hospital,
			TotalDemand:       a.total,
			ForecastCount:     a.count,
			AverageConfidence: a.confidence / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalDemand != out[j].TotalDemand {
			return out[i].TotalDemand > out[j].TotalDemand
		}
		return out[i].Hospital < out[j].Hospital
	})
	return out, nil
}

// QuerySummary aggregates forecast statistics for one product; nil when
// the snapshot holds no rows for it.
func (s *MemoryStore) QuerySummary(_ context.Context, product string) (*models.ProductSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hospitals := make(map[string]struct{})
	summary := models.ProductSummary{Product: product}
	var confidence float64
	var count int
	for _, r := range s.forecasts {
		if r.Product != product {
			continue
		}
		hospitals[r.Hospital] = struct{}{}
		summary.TotalDemand += r.EstimatedQuantity
		confidence += r.ConfidencePercent
		if count == 0 || r.ForecastDate.Before(summary.FirstForecastDate) {
			summary.FirstForecastDate = r.ForecastDate
		}
		if count == 0 || r.ForecastDate.After(summary.LastForecastDate) {
			summary.LastForecastDate = r.ForecastDate
		}
		count++
	}
	if count == 0 {
		return nil, nil
	}
	summary.HospitalCount = len(hospitals)
	summary.AverageDemand = float64(summary.TotalDemand) / float64(count)
	summary.AverageConfidence = confidence / float64(count)
	return &summary, nil
}

// InsertProducts upserts catalog entries keyed by product code.
func (s *MemoryStore) InsertProducts(_ context.Context, products []models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.catalog[p.Code] = p
	}
	return nil
}

// ListCatalog returns the catalog ordered by category and name.
func (s *MemoryStore) ListCatalog(context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.catalog))
	for _, p := range s.catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// LogConsultation counts one co-pilot question/answer pair.
func (s *MemoryStore) LogConsultation(_ context.Context, _, _, _ string) error {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()
	return nil
}

// Stats returns the system-wide counters.
func (s *MemoryStore) Stats(context.Context) (*models.SystemStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hospitals := make(map[string]struct{})
	for _, r := range s.forecasts {
		hospitals[r.Hospital] = struct{}{}
	}
	return &models.SystemStats{
		TotalForecasts:     len(s.forecasts),
		TotalHospitals:     len(hospitals),
		TotalProducts:      len(s.catalog),
		TotalConsultations: s.queries,
	}, nil
}
