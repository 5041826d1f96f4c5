package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-copilot-api/pkg/storage"
)

func TestBuildForecastWorkbook(t *testing.T) {
	svc := NewReportService(seededStore(t), quietLogger())

	f, err := svc.BuildForecastWorkbook(context.Background())
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Predicciones", "Ranking Hospitales"}, f.GetSheetList())

	rows, err := f.GetRows("Predicciones")
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 forecast rows
	assert.Equal(t, []string{"Hospital", "Producto", "Fecha", "Demanda Estimada", "Confianza %"}, rows[0])

	ranking, err := f.GetRows("Ranking Hospitales")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ranking), 2)
	assert.Equal(t, "Complejo Asistencial Dr. Sótero del Río", ranking[1][0])
}

func TestBuildForecastWorkbookEmptySnapshot(t *testing.T) {
	svc := NewReportService(storage.NewMemoryStore(), quietLogger())

	f, err := svc.BuildForecastWorkbook(context.Background())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Predicciones")
	require.NoError(t, err)
	assert.Len(t, rows, 1) // header only
}

func TestParseOrdersCSV(t *testing.T) {
	svc := NewReportService(storage.NewMemoryStore(), quietLogger())

	csvData := strings.Join([]string{
		"orden,fecha,hospital,producto,cantidad,monto",
		"OC-2024-0001,2024-03-10,Hospital del Salvador,apositos,200,9198000",
		"OC-2024-0002,2024-04-09,Hospital del Salvador,APOSITOS,220,10117800",
	}, "\n")

	records, err := svc.ParseOrdersFile(strings.NewReader(csvData), "ordenes.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "OC-2024-0001", records[0].OrderID)
	assert.Equal(t, "Hospital del Salvador", records[0].Hospital)
	assert.Equal(t, "APOSITOS", records[0].Product) // upper-cased category
	assert.Equal(t, 200, records[0].Quantity)
	assert.Equal(t, 9198000.0, records[0].TotalAmount)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), records[0].OrderDate)
}

func TestParseOrdersSkipsBadRows(t *testing.T) {
	svc := NewReportService(storage.NewMemoryStore(), quietLogger())

	csvData := strings.Join([]string{
		"fecha,hospital,producto,cantidad",
		"not-a-date,Hospital del Salvador,APOSITOS,200",
		"2024-03-10,Hospital del Salvador,APOSITOS,not-a-number",
		"2024-03-10,,APOSITOS,200",
		"2024-03-10,Hospital del Salvador,APOSITOS,200",
	}, "\n")

	records, err := svc.ParseOrdersFile(strings.NewReader(csvData), "ordenes.csv")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseOrdersMissingColumns(t *testing.T) {
	svc := NewReportService(storage.NewMemoryStore(), quietLogger())

	csvData := "fecha,hospital\n2024-03-10,Hospital del Salvador"
	_, err := svc.ParseOrdersFile(strings.NewReader(csvData), "ordenes.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "producto")
	assert.Contains(t, err.Error(), "cantidad")
}

func TestParseOrdersRejectsUnknownExtension(t *testing.T) {
	svc := NewReportService(storage.NewMemoryStore(), quietLogger())
	_, err := svc.ParseOrdersFile(strings.NewReader("x"), "ordenes.pdf")
	require.Error(t, err)
}

func TestIngestOrdersStoresRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewReportService(store, quietLogger())

	csvData := strings.Join([]string{
		"orden,fecha,hospital,producto,cantidad",
		"OC-2024-0001,2024-03-10,Hospital del Salvador,APOSITOS,200",
		"OC-2024-0002,2024-04-09,Hospital San José,GUANTES_MEDICOS,450",
	}, "\n")

	count, err := svc.IngestOrders(context.Background(), strings.NewReader(csvData), "ordenes.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := store.QueryHistoricalRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
