package forecast

import "errors"

var (
	// ErrModelNotTrained is returned when Predict is called before Train.
	ErrModelNotTrained = errors.New("model has not been trained")

	// ErrModelNotFound is returned when loading a model artifact from a
	// path that does not exist.
	ErrModelNotFound = errors.New("model artifact not found")

	// ErrInsufficientData is returned when there are too few historical
	// records to perform a fit/holdout split at all. Datasets that are
	// merely small (below MinReliableRecords) still train; they are only
	// flagged as low-sample in the evaluation metrics.
	ErrInsufficientData = errors.New("not enough historical records to train")
)
