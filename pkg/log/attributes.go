// Package log defines standard attribute keys for classifier workflows.
//
// Using shared keys keeps records from the adapter, the grid search and the
// orchestrator filterable by the same fields. Keys follow a hierarchical
// "category.name" convention.

package log

// Model and Operation Context
const (
	// ComponentKey identifies which package emitted the record.
	// Examples: "svm", "search", "pipeline", "cache"
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	// Standard values: "train", "cross_validate", "predict", "search", "evaluate"
	OperationKey = "ml.operation"

	// PhaseKey indicates the lifecycle phase of a run.
	// Examples: "training", "validation", "testing"
	PhaseKey = "ml.phase"

	// StateKey records an orchestrator state transition.
	StateKey = "ml.state"

	// RunIDKey correlates every record of one orchestrator run.
	RunIDKey = "run.id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of records.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (largest feature index).
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of classes.
	ClassesKey = "data.classes"

	// ClassKey identifies a single class label.
	ClassKey = "data.class"

	// PathKey records a file or cache key involved in the operation.
	PathKey = "data.path"

	// LineKey records a 1-based line number of an input file.
	LineKey = "data.line"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// FScoreKey records a (weighted) F-score.
	FScoreKey = "metrics.f_score"

	// MatchesKey records the number of correct predictions.
	MatchesKey = "metrics.matches"
)

// Hyperparameters and Search
const (
	// CostKey records the C parameter.
	CostKey = "hyperparams.cost"

	// GammaKey records the kernel bandwidth.
	GammaKey = "hyperparams.gamma"

	// KernelKey records the kernel type.
	KernelKey = "hyperparams.kernel"

	// FoldsKey records the number of cross-validation folds.
	FoldsKey = "hyperparams.folds"

	// GridCellKey records the (i, j) coordinates of a grid cell.
	GridCellKey = "search.cell"

	// GridSizeKey records the number of grid cells.
	GridSizeKey = "search.size"

	// WorkersKey records the worker pool size.
	WorkersKey = "search.workers"
)

// Error Context
const (
	// ErrorTypeKey categorizes the error.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving an issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationTrain         = "train"
	OperationCrossValidate = "cross_validate"
	OperationPredict       = "predict"
	OperationSearch        = "search"
	OperationEvaluate      = "evaluate"
	OperationParse         = "parse"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
)
