package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"demand-copilot-api/pkg/forecast"
	"demand-copilot-api/pkg/services"
	"demand-copilot-api/pkg/storage"
)

// ForecastHandler exposes the forecast snapshot, the training cycle and
// the purchase order ingest endpoints.
type ForecastHandler struct {
	store       storage.Store
	predictions *services.PredictionService
	reports     *services.ReportService
	seeder      *services.SeedService
	logger      *logrus.Logger
	modelPath   string
}

// NewForecastHandler creates a forecast handler. modelPath is where a
// retrained model is persisted after each cycle; empty disables saving.
func NewForecastHandler(
	store storage.Store,
	predictions *services.PredictionService,
	reports *services.ReportService,
	seeder *services.SeedService,
	logger *logrus.Logger,
	modelPath string,
) *ForecastHandler {
	return &ForecastHandler{
		store:       store,
		predictions: predictions,
		reports:     reports,
		seeder:      seeder,
		logger:      logger,
		modelPath:   modelPath,
	}
}

// GetPredictions returns forecast rows, optionally filtered.
// GET /api/predictions?hospital=&product=&days=&limit=
func (h *ForecastHandler) GetPredictions(c *gin.Context) {
	filter := storage.ForecastFilter{
		Hospital: c.Query("hospital"),
		Product:  c.Query("product"),
	}
	if days := c.Query("days"); days != "" {
		v, err := strconv.Atoi(days)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "parámetro days inválido"})
			return
		}
		filter.HorizonDays = v
	}
	if limit := c.Query("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "parámetro limit inválido"})
			return
		}
		filter.Limit = v
	}

	rows, err := h.store.QueryForecastRows(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("prediction query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudieron consultar las predicciones"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"predictions": rows,
		"count":       len(rows),
	})
}

// GetRanking returns hospitals ordered by total forecast demand.
// GET /api/ranking?product=
func (h *ForecastHandler) GetRanking(c *gin.Context) {
	ranking, err := h.store.QueryRanking(c.Request.Context(), c.Query("product"))
	if err != nil {
		h.logger.WithError(err).Error("ranking query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudo consultar el ranking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ranking": ranking})
}

// GetHospitals lists the hospitals present in the purchase history.
// GET /api/hospitals
func (h *ForecastHandler) GetHospitals(c *gin.Context) {
	hospitals, err := h.store.ListHospitals(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("hospital list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudieron listar los hospitales"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "hospitals": hospitals})
}

// GetProducts lists the product categories present in the history.
// GET /api/products
func (h *ForecastHandler) GetProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("product list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudieron listar los productos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

// GetCatalog lists the product catalog.
// GET /api/catalog
func (h *ForecastHandler) GetCatalog(c *gin.Context) {
	catalog, err := h.store.ListCatalog(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("catalog list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudo listar el catálogo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "catalog": catalog})
}

// GetStats returns the system counters.
// GET /api/stats
func (h *ForecastHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudieron consultar las estadísticas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// RunForecast retrains from history and replaces the snapshot.
// POST /api/forecasts/run
func (h *ForecastHandler) RunForecast(c *gin.Context) {
	var req struct {
		Months int   `json:"months"`
		Seed   int64 `json:"seed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "formato de solicitud inválido: " + err.Error()})
		return
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	result, err := h.predictions.RunForecastCycle(c.Request.Context(), req.Months, req.Seed, h.modelPath)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "historial insuficiente para entrenar el modelo",
			})
			return
		}
		h.logger.WithError(err).Error("forecast cycle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "el ciclo de predicción falló"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// ExportForecasts streams the snapshot as an Excel workbook.
// GET /api/forecasts/export
func (h *ForecastHandler) ExportForecasts(c *gin.Context) {
	f, err := h.reports.BuildForecastWorkbook(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("forecast export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudo generar el reporte"})
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("predicciones_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if _, err := f.WriteTo(c.Writer); err != nil {
		h.logger.WithError(err).Error("forecast export write failed")
	}
}

// UploadOrders ingests a purchase order file (.xlsx or .csv).
// POST /api/orders/upload
func (h *ForecastHandler) UploadOrders(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no se pudo leer el archivo"})
		return
	}
	defer file.Close()

	count, err := h.reports.IngestOrders(c.Request.Context(), file, header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "records": count})
}

// SeedDemo loads the deterministic demo history and catalog.
// POST /api/admin/seed
func (h *ForecastHandler) SeedDemo(c *gin.Context) {
	var req struct {
		Months int   `json:"months"`
		Seed   int64 `json:"seed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "formato de solicitud inválido: " + err.Error()})
		return
	}
	if req.Seed == 0 {
		req.Seed = 42
	}

	count, err := h.seeder.Seed(c.Request.Context(), req.Months, req.Seed)
	if err != nil {
		h.logger.WithError(err).Error("seeding failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no se pudo cargar la historia de demostración"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": count})
}
