package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"demand-copilot-api/pkg/models"
)

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and returns a ready store.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id SERIAL PRIMARY KEY,
			order_id VARCHAR(100) UNIQUE NOT NULL,
			order_date DATE NOT NULL,
			hospital VARCHAR(500) NOT NULL,
			description TEXT,
			product VARCHAR(200) NOT NULL,
			quantity INTEGER NOT NULL,
			unit VARCHAR(50),
			total_amount DECIMAL(15,2),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS demand_forecasts (
			id SERIAL PRIMARY KEY,
			hospital VARCHAR(500) NOT NULL,
			product VARCHAR(200) NOT NULL,
			forecast_date DATE NOT NULL,
			estimated_quantity INTEGER NOT NULL,
			confidence_percent DECIMAL(5,2) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS product_catalog (
			id SERIAL PRIMARY KEY,
			code VARCHAR(100) UNIQUE NOT NULL,
			name VARCHAR(300) NOT NULL,
			category VARCHAR(100) NOT NULL,
			description TEXT,
			keywords TEXT[],
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS copilot_queries (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(100),
			query TEXT,
			response TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// InsertHistoricalRecords upserts purchase orders keyed by order ID, so
// re-running an ingestion is idempotent.
func (s *PostgresStore) InsertHistoricalRecords(ctx context.Context, records []models.HistoricalRecord) error {
	const query = `
		INSERT INTO purchase_orders
			(order_id, order_date, hospital, description, product, quantity, unit, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			total_amount = EXCLUDED.total_amount`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, r.OrderID, r.OrderDate, r.Hospital, r.Description, r.Product, r.Quantity, r.Unit, r.TotalAmount)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting purchase order: %w", err)
		}
	}
	return nil
}

// QueryHistoricalRecords returns every purchase order ordered by date.
func (s *PostgresStore) QueryHistoricalRecords(ctx context.Context) ([]models.HistoricalRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id, order_date, hospital, COALESCE(description, ''),
		       product, quantity, COALESCE(unit, ''), COALESCE(total_amount, 0)
		FROM purchase_orders
		ORDER BY order_date`)
	if err != nil {
		return nil, fmt.Errorf("querying purchase orders: %w", err)
	}
	defer rows.Close()

	var records []models.HistoricalRecord
	for rows.Next() {
		var r models.HistoricalRecord
		if err := rows.Scan(&r.OrderID, &r.OrderDate, &r.Hospital, &r.Description,
			&r.Product, &r.Quantity, &r.Unit, &r.TotalAmount); err != nil {
			return nil, fmt.Errorf("scanning purchase order: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListHospitals returns the distinct hospitals present in the history.
func (s *PostgresStore) ListHospitals(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, `SELECT DISTINCT hospital FROM purchase_orders ORDER BY hospital`)
}

// ListProducts returns the distinct product codes present in the history.
func (s *PostgresStore) ListProducts(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, `SELECT DISTINCT product FROM purchase_orders ORDER BY product`)
}

func (s *PostgresStore) listDistinct(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying distinct values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ReplaceForecastSnapshot swaps the entire forecast snapshot inside one
// transaction: delete all, bulk-insert the new rows, commit. Readers see
// the old snapshot or the new one, never a mixture, and a mid-insert
// failure rolls back to the previous snapshot untouched.
func (s *PostgresStore) ReplaceForecastSnapshot(ctx context.Context, forecastRows []models.ForecastRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM demand_forecasts`); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"demand_forecasts"},
		[]string{"hospital", "product", "forecast_date", "estimated_quantity", "confidence_percent"},
		pgx.CopyFromSlice(len(forecastRows), func(i int) ([]any, error) {
			r := forecastRows[i]
			return []any{r.Hospital, r.Product, r.ForecastDate, r.EstimatedQuantity, r.ConfidencePercent}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("inserting forecast snapshot: %w", err)
	}
	return tx.Commit(ctx)
}

// QueryForecastRows returns forecast rows matching the filter, ordered by
// forecast date, then product, then hospital.
func (s *PostgresStore) QueryForecastRows(ctx context.Context, filter ForecastFilter) ([]models.ForecastRow, error) {
	query := `
		SELECT hospital, product, forecast_date, estimated_quantity, confidence_percent
		FROM demand_forecasts
		WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Hospital != "" {
		query += ` AND hospital = ` + arg(filter.Hospital)
	}
	if filter.Product != "" {
		query += ` AND product = ` + arg(filter.Product)
	}
	if filter.HorizonDays > 0 {
		query += ` AND forecast_date <= ` + arg(time.Now().AddDate(0, 0, filter.HorizonDays))
	}
	query += ` ORDER BY forecast_date, product, hospital`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying forecast rows: %w", err)
	}
	defer rows.Close()

	var out []models.ForecastRow
	for rows.Next() {
		var r models.ForecastRow
		if err := rows.Scan(&r.Hospital, &r.Product, &r.ForecastDate, &r.EstimatedQuantity, &r.ConfidencePercent); err != nil {
			return nil, fmt.Errorf("scanning forecast row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryRanking returns hospitals ordered by total estimated demand
// descending, optionally restricted to one product.
func (s *PostgresStore) QueryRanking(ctx context.Context, product string) ([]models.HospitalRanking, error) {
	query := `
		SELECT hospital,
		       SUM(estimated_quantity) AS total_demand,
		       COUNT(*) AS forecast_count,
		       AVG(confidence_percent) AS average_confidence
		FROM demand_forecasts`
	var args []any
	if product != "" {
		query += ` WHERE product = $1`
		args = append(args, product)
	}
	query += `
		GROUP BY hospital
		ORDER BY total_demand DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying hospital ranking: %w", err)
	}
	defer rows.Close()

	var out []models.HospitalRanking
	for rows.Next() {
		var r models.HospitalRanking
		if err := rows.Scan(&r.Hospital, &r.TotalDemand, &r.ForecastCount, &r.AverageConfidence); err != nil {
			return nil, fmt.Errorf("scanning ranking row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QuerySummary returns aggregate forecast statistics for one product, or
// nil when the snapshot holds no rows for it.
func (s *PostgresStore) QuerySummary(ctx context.Context, product string) (*models.ProductSummary, error) {
	var summary models.ProductSummary
	summary.Product = product
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT hospital),
		       COALESCE(SUM(estimated_quantity), 0),
		       COALESCE(AVG(estimated_quantity), 0),
		       MIN(forecast_date),
		       MAX(forecast_date),
		       COALESCE(AVG(confidence_percent), 0)
		FROM demand_forecasts
		WHERE product = $1
		HAVING COUNT(*) > 0`, product,
	).Scan(&summary.HospitalCount, &summary.TotalDemand, &summary.AverageDemand,
		&summary.FirstForecastDate, &summary.LastForecastDate, &summary.AverageConfidence)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying product summary: %w", err)
	}
	return &summary, nil
}

// InsertProducts upserts catalog entries keyed by product code.
func (s *PostgresStore) InsertProducts(ctx context.Context, products []models.Product) error {
	const query = `
		INSERT INTO product_catalog (code, name, category, description, keywords)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description`

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(query, p.Code, p.Name, p.Category, p.Description, p.Keywords)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range products {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting catalog product: %w", err)
		}
	}
	return nil
}

// ListCatalog returns the product catalog ordered by category and name.
func (s *PostgresStore) ListCatalog(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, name, category, COALESCE(description, ''), COALESCE(keywords, '{}')
		FROM product_catalog
		ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("querying product catalog: %w", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Category, &p.Description, &p.Keywords); err != nil {
			return nil, fmt.Errorf("scanning catalog product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LogConsultation records one co-pilot question/answer pair.
func (s *PostgresStore) LogConsultation(ctx context.Context, userID, query, response string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO copilot_queries (user_id, query, response) VALUES ($1, $2, $3)`,
		userID, query, response)
	if err != nil {
		return fmt.Errorf("logging consultation: %w", err)
	}
	return nil
}

// Stats returns the system-wide counters.
func (s *PostgresStore) Stats(ctx context.Context) (*models.SystemStats, error) {
	var stats models.SystemStats
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM demand_forecasts),
		       (SELECT COUNT(DISTINCT hospital) FROM demand_forecasts),
		       (SELECT COUNT(*) FROM product_catalog),
		       (SELECT COUNT(*) FROM copilot_queries)`,
	).Scan(&stats.TotalForecasts, &stats.TotalHospitals, &stats.TotalProducts, &stats.TotalConsultations)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return &stats, nil
}
