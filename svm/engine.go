package svm

// Engine is the classifier backend. Implementations must be safe for
// concurrent CrossValidate calls on distinct configs.
type Engine interface {
	// Train fits a model to the problem.
	Train(p *Problem, cfg Config) (Model, error)

	// CrossValidate returns one predicted label per sample of p, aligned
	// with p.Y, using folds-fold cross validation.
	CrossValidate(p *Problem, cfg Config, folds int) ([]float64, error)

	// PredictProbability returns the predicted label and one probability per
	// entry of m.Labels(), in that order.
	PredictProbability(m Model, x []Node) (float64, []float64, error)

	// CheckParameter returns a diagnostic for an unusable config, or "".
	CheckParameter(p *Problem, cfg Config) string
}

// Model is a trained classifier.
type Model interface {
	// Labels returns the class labels in the model's internal order.
	Labels() []int
}
