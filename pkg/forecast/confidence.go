package forecast

// ConfidenceScore derives a single trust percentage for a trained
// model's predictions: the holdout R² scaled to a percentage and clamped
// to [0, 100]. An R² at or below zero yields 0%, signaling "do not trust
// this forecast batch". The score characterizes the model, not any
// individual row, so one training run produces one confidence applied
// uniformly to the whole prediction batch.
func ConfidenceScore(metrics *EvaluationMetrics) float64 {
	if metrics == nil {
		return 0
	}
	score := metrics.HoldoutR2 * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
