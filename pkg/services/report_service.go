package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"demand-copilot-api/pkg/models"
	"demand-copilot-api/pkg/storage"
)

// ReportService exports the forecast snapshot as an Excel workbook and
// ingests purchase order files uploaded by procurement staff.
type ReportService struct {
	store  storage.Store
	logger *logrus.Logger
}

// NewReportService wires a report service over the given store.
func NewReportService(store storage.Store, logger *logrus.Logger) *ReportService {
	return &ReportService{store: store, logger: logger}
}

// BuildForecastWorkbook renders the current snapshot into a two-sheet
// workbook: the detailed forecast rows and the hospital ranking.
func (rs *ReportService) BuildForecastWorkbook(ctx context.Context) (*excelize.File, error) {
	rows, err := rs.store.QueryForecastRows(ctx, storage.ForecastFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading forecasts: %w", err)
	}
	ranking, err := rs.store.QueryRanking(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("loading ranking: %w", err)
	}

	f := excelize.NewFile()
	const detailSheet = "Predicciones"
	if err := f.SetSheetName("Sheet1", detailSheet); err != nil {
		return nil, fmt.Errorf("building workbook: %w", err)
	}

	detailHeader := []interface{}{"Hospital", "Producto", "Fecha", "Demanda Estimada", "Confianza %"}
	if err := writeRow(f, detailSheet, 1, detailHeader); err != nil {
		return nil, err
	}
	for i, row := range rows {
		values := []interface{}{
			row.Hospital,
			row.Product,
			row.ForecastDate.Format("2006-01-02"),
			row.EstimatedQuantity,
			row.ConfidencePercent,
		}
		if err := writeRow(f, detailSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	const rankingSheet = "Ranking Hospitales"
	if _, err := f.NewSheet(rankingSheet); err != nil {
		return nil, fmt.Errorf("building workbook: %w", err)
	}
	rankingHeader := []interface{}{"Hospital", "Demanda Total", "Predicciones", "Confianza Promedio %"}
	if err := writeRow(f, rankingSheet, 1, rankingHeader); err != nil {
		return nil, err
	}
	for i, r := range ranking {
		values := []interface{}{r.Hospital, r.TotalDemand, r.ForecastCount, r.AverageConfidence}
		if err := writeRow(f, rankingSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
	}
	return nil
}

// ParseOrdersFile reads purchase orders from an uploaded .xlsx or .csv
// file. The first row is the header; column positions are detected by
// name so exports from different procurement systems load unchanged.
func (rs *ReportService) ParseOrdersFile(reader io.Reader, filename string) ([]models.HistoricalRecord, error) {
	var rows [][]string
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		f, err := excelize.OpenReader(reader)
		if err != nil {
			return nil, fmt.Errorf("opening workbook: %w", err)
		}
		defer f.Close()
		rows, err = f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("reading sheet: %w", err)
		}
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		var err error
		rows, err = csv.NewReader(reader).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .xlsx or .csv", filename)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("file needs a header row and at least one data row")
	}

	header := rows[0]
	dateIdx := findColumn(header, "fecha", "date", "order_date")
	hospitalIdx := findColumn(header, "hospital", "comprador", "buyer")
	productIdx := findColumn(header, "producto", "product", "categoria")
	quantityIdx := findColumn(header, "cantidad", "quantity", "unidades")
	orderIdx := findColumn(header, "orden", "order_id", "oc")
	amountIdx := findColumn(header, "monto", "total", "amount")

	var missing []string
	for _, c := range []struct {
		idx  int
		name string
	}{
		{dateIdx, "fecha"}, {hospitalIdx, "hospital"},
		{productIdx, "producto"}, {quantityIdx, "cantidad"},
	} {
		if c.idx == -1 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	records := make([]models.HistoricalRecord, 0, len(rows)-1)
	for lineNo, row := range rows[1:] {
		get := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		date, err := parseOrderDate(get(dateIdx))
		if err != nil {
			rs.logger.WithField("line", lineNo+2).WithError(err).Warn("ingest: skipping row with bad date")
			continue
		}
		quantity, err := strconv.Atoi(get(quantityIdx))
		if err != nil || quantity <= 0 {
			rs.logger.WithField("line", lineNo+2).Warn("ingest: skipping row with bad quantity")
			continue
		}

		record := models.HistoricalRecord{
			OrderID:   get(orderIdx),
			OrderDate: date,
			Hospital:  get(hospitalIdx),
			Product:   strings.ToUpper(get(productIdx)),
			Quantity:  quantity,
		}
		if amount := get(amountIdx); amount != "" {
			if v, err := strconv.ParseFloat(amount, 64); err == nil {
				record.TotalAmount = v
			}
		}
		if record.Hospital == "" || record.Product == "" {
			rs.logger.WithField("line", lineNo+2).Warn("ingest: skipping row with empty hospital or product")
			continue
		}
		if record.OrderID == "" {
			record.OrderID = uuid.New().String()
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no valid order rows found")
	}
	return records, nil
}

// IngestOrders parses an uploaded file and upserts the records.
func (rs *ReportService) IngestOrders(ctx context.Context, reader io.Reader, filename string) (int, error) {
	records, err := rs.ParseOrdersFile(reader, filename)
	if err != nil {
		return 0, err
	}
	if err := rs.store.InsertHistoricalRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("storing orders: %w", err)
	}
	rs.logger.WithFields(logrus.Fields{
		"file":    filename,
		"records": len(records),
	}).Info("ingest: purchase orders loaded")
	return len(records), nil
}

func findColumn(header []string, names ...string) int {
	for i, cell := range header {
		normalized := normalizeText(strings.TrimSpace(cell))
		for _, name := range names {
			if normalized == name {
				return i
			}
		}
	}
	return -1
}

func parseOrderDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02-01-2006", "02/01/2006", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
