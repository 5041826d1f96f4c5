package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"demand-copilot-api/pkg/models"
)

// IntentRule maps one trigger phrase to a canonical entity. Rules are
// evaluated in slice order and the first match wins, so priority is an
// explicit, testable property of the table, not of code order.
type IntentRule struct {
	Trigger   string            `json:"trigger"`
	Kind      models.IntentKind `json:"kind"`
	Canonical string            `json:"canonical"`
}

// DefaultIntentRules returns the built-in rule table: product triggers
// first, hospital triggers second. Deployments can swap in a larger
// table without code changes.
func DefaultIntentRules() []IntentRule {
	return []IntentRule{
		{Trigger: "apósito", Kind: models.IntentProduct, Canonical: "APOSITOS"},
		{Trigger: "tegaderm", Kind: models.IntentProduct, Canonical: "APOSITOS"},
		{Trigger: "guante", Kind: models.IntentProduct, Canonical: "GUANTES_MEDICOS"},
		{Trigger: "salvador", Kind: models.IntentHospital, Canonical: "Hospital del Salvador"},
		{Trigger: "sótero", Kind: models.IntentHospital, Canonical: "Complejo Asistencial Dr. Sótero del Río"},
		{Trigger: "san josé", Kind: models.IntentHospital, Canonical: "Hospital San José"},
		{Trigger: "barros luco", Kind: models.IntentHospital, Canonical: "Hospital Barros Luco-Trudeau"},
	}
}

// DefaultGeneralTriggers are the words that make a general question pull
// the full cross-product context ("what/which/need/demand/buy").
func DefaultGeneralTriggers() []string {
	return []string{"que", "cual", "necesitar", "demandar", "comprar"}
}

// IntentService classifies free-text questions into a fixed set of
// intents by deterministic substring matching over a normalized copy of
// the input. No fuzzy matching, no classification confidence.
type IntentService struct {
	rules []IntentRule
}

// NewIntentService creates a classifier over the given ordered rule
// table. Triggers are normalized once up front.
func NewIntentService(rules []IntentRule) *IntentService {
	normalized := make([]IntentRule, len(rules))
	for i, r := range rules {
		r.Trigger = normalizeText(r.Trigger)
		normalized[i] = r
	}
	return &IntentService{rules: normalized}
}

// Classify returns the intent of text. Unmatched text degrades to the
// general intent; classification itself never fails.
func (s *IntentService) Classify(text string) models.QueryIntent {
	needle := normalizeText(text)
	for _, rule := range s.rules {
		if !strings.Contains(needle, rule.Trigger) {
			continue
		}
		switch rule.Kind {
		case models.IntentProduct:
			return models.QueryIntent{Kind: models.IntentProduct, Product: rule.Canonical}
		case models.IntentHospital:
			return models.QueryIntent{Kind: models.IntentHospital, Hospital: rule.Canonical}
		}
	}
	return models.QueryIntent{Kind: models.IntentGeneral}
}

// normalizeText lower-cases the input and strips diacritics so that
// "apósito" and "aposito" (and "qué"/"que") match the same triggers.
func normalizeText(s string) string {
	folded := strings.ToLower(s)
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		folded,
	)
	if err != nil {
		return folded
	}
	return stripped
}

// containsAnyTrigger reports whether the normalized text contains any of
// the (already plain-ASCII) trigger words.
func containsAnyTrigger(text string, triggers []string) bool {
	needle := normalizeText(text)
	for _, trigger := range triggers {
		if strings.Contains(needle, trigger) {
			return true
		}
	}
	return false
}
