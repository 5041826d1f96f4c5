package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"demand-copilot-api/pkg/models"
	"demand-copilot-api/pkg/storage"
)

// ContextService gathers the stored forecast data relevant to a
// classified question and renders it as a bounded text digest for the
// language model. Storage failures degrade to a smaller context rather
// than failing the whole request; the digest carries only what could be
// fetched.
type ContextService struct {
	store  storage.Store
	logger *logrus.Logger

	horizonDays        int
	maxHospitals       int
	maxRowsPerHospital int
	generalTriggers    []string
}

// NewContextService creates an aggregator with the default bounds:
// 90-day detail horizon, at most 7 hospitals with 10 rows each in the
// digest, and the default general trigger words.
func NewContextService(store storage.Store, logger *logrus.Logger) *ContextService {
	return &ContextService{
		store:              store,
		logger:             logger,
		horizonDays:        90,
		maxHospitals:       7,
		maxRowsPerHospital: 10,
		generalTriggers:    DefaultGeneralTriggers(),
	}
}

// BuildContext fetches the data slice matching the intent. For general
// questions the full cross-product context is pulled only when the text
// contains a trigger word; otherwise the context stays empty and the
// model answers from conversation alone.
func (s *ContextService) BuildContext(ctx context.Context, intent models.QueryIntent, question string) *models.QueryContext {
	qc := &models.QueryContext{Intent: intent}

	switch intent.Kind {
	case models.IntentProduct:
		s.fillRanking(ctx, qc, intent.Product)
		s.fillDetail(ctx, qc, storage.ForecastFilter{Product: intent.Product, HorizonDays: s.horizonDays})
		s.fillSummary(ctx, qc, intent.Product)
	case models.IntentHospital:
		s.fillDetail(ctx, qc, storage.ForecastFilter{Hospital: intent.Hospital, HorizonDays: s.horizonDays})
	case models.IntentGeneral:
		if containsAnyTrigger(question, s.generalTriggers) {
			s.fillRanking(ctx, qc, "")
			s.fillDetail(ctx, qc, storage.ForecastFilter{HorizonDays: s.horizonDays})
		}
	}
	return qc
}

func (s *ContextService) fillRanking(ctx context.Context, qc *models.QueryContext, product string) {
	rankings, err := s.store.QueryRanking(ctx, product)
	if err != nil {
		s.logger.WithError(err).WithField("product", product).Warn("context: ranking query failed")
		return
	}
	qc.Rankings = rankings
}

func (s *ContextService) fillDetail(ctx context.Context, qc *models.QueryContext, filter storage.ForecastFilter) {
	rows, err := s.store.QueryForecastRows(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Warn("context: forecast query failed")
		return
	}
	qc.DetailRows = rows
}

func (s *ContextService) fillSummary(ctx context.Context, qc *models.QueryContext, product string) {
	summary, err := s.store.QuerySummary(ctx, product)
	if err != nil {
		s.logger.WithError(err).WithField("product", product).Warn("context: summary query failed")
		return
	}
	qc.Summary = summary
}

// RenderDigest formats the context as the Spanish data block injected
// ahead of the user question. An empty context renders as the empty
// string so the prompt stays untouched when there is nothing to say.
func (s *ContextService) RenderDigest(qc *models.QueryContext) string {
	if qc == nil || qc.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== DATOS REALES DE LA BASE DE DATOS ===\n")

	if len(qc.Rankings) > 0 {
		b.WriteString("\n📊 RANKING DE HOSPITALES POR DEMANDA ESTIMADA:\n")
		for i, r := range qc.Rankings {
			fmt.Fprintf(&b, "  %d. %s: %d unidades totales (confianza: %.1f%%)\n",
				i+1, r.Hospital, r.TotalDemand, r.AverageConfidence)
		}
	}

	if len(qc.DetailRows) > 0 {
		b.WriteString("\n📅 PREDICCIONES DETALLADAS:\n")
		s.renderDetail(&b, qc.DetailRows)
	}

	if qc.Summary != nil {
		b.WriteString("\n📈 RESUMEN ESTADÍSTICO:\n")
		fmt.Fprintf(&b, "  • Demanda total estimada: %d unidades\n", qc.Summary.TotalDemand)
		fmt.Fprintf(&b, "  • Hospitales involucrados: %d\n", qc.Summary.HospitalCount)
		fmt.Fprintf(&b, "  • Demanda promedio por hospital: %.0f unidades\n", qc.Summary.AverageDemand)
	}

	b.WriteString("\n⚠️ IMPORTANTE: Usa SOLO estos datos reales de la base de datos para responder.\n")
	b.WriteString("Menciona números específicos, hospitales y fechas exactas de las predicciones.\n")
	return b.String()
}

// renderDetail groups rows by hospital in first-seen order, capped at
// maxHospitals hospitals and maxRowsPerHospital rows each so the digest
// stays bounded no matter how large the snapshot is.
func (s *ContextService) renderDetail(b *strings.Builder, rows []models.ForecastRow) {
	order := make([]string, 0, s.maxHospitals)
	grouped := make(map[string][]models.ForecastRow)
	for _, row := range rows {
		if _, seen := grouped[row.Hospital]; !seen {
			if len(order) >= s.maxHospitals {
				continue
			}
			order = append(order, row.Hospital)
		}
		if len(grouped[row.Hospital]) < s.maxRowsPerHospital {
			grouped[row.Hospital] = append(grouped[row.Hospital], row)
		}
	}
	for _, hospital := range order {
		fmt.Fprintf(b, "\n  🏥 %s:\n", hospital)
		for _, row := range grouped[hospital] {
			fmt.Fprintf(b, "     • %s: %d unidades (%s)\n",
				row.Product, row.EstimatedQuantity, row.ForecastDate.Format("2006-01"))
		}
	}
}
