// Package svm wraps a classifier engine behind a small adapter that encodes
// records into problems, resolves deferred hyperparameters and maps
// predictions back onto class labels.
//
// The engine itself is pluggable (see Engine); svm/kernel provides a
// reference backend.
package svm

import (
	"time"

	"github.com/YuminosukeSato/svmgrid/dataset"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
)

// Adapter drives an Engine.
type Adapter struct {
	engine Engine
	logger log.Logger
}

// NewAdapter creates an Adapter. A nil logger uses the "svm" logger.
func NewAdapter(engine Engine, logger log.Logger) *Adapter {
	if logger == nil {
		logger = log.GetLoggerWithName("svm")
	}
	return &Adapter{engine: engine, logger: logger.With(log.ComponentKey, "svm")}
}

// Engine returns the wrapped engine.
func (a *Adapter) Engine() Engine {
	return a.engine
}

// BuildProblem encodes labeled records. See BuildProblem.
func (a *Adapter) BuildProblem(records []*dataset.Record) (*Problem, error) {
	p, err := BuildProblem(records)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Built problem",
		log.SamplesKey, p.Len(),
		log.FeaturesKey, p.NumFeatures(),
		log.ClassesKey, len(p.Labels()),
	)
	return p, nil
}

// Resolve clones cfg and fills in deferred values for p. The caller's
// config is never modified.
func Resolve(p *Problem, cfg Config) Config {
	out := cfg.Clone()
	if out.Gamma == GammaAuto {
		if n := p.NumFeatures(); n > 0 {
			out.Gamma = 1 / float64(n)
		}
	}
	return out
}

func (a *Adapter) prepare(op string, p *Problem, cfg Config) Config {
	resolved := Resolve(p, cfg)
	if diag := a.engine.CheckParameter(p, resolved); diag != "" {
		w := errors.NewParameterWarning(op, diag, resolved.Cost, resolved.Gamma)
		a.logger.Warn("Engine parameter check failed",
			log.OperationKey, op,
			log.CostKey, resolved.Cost,
			log.GammaKey, resolved.Gamma,
			"diagnostic", diag,
		)
		errors.Warn(w)
	}
	return resolved
}

// Train fits a model. A failing parameter check is reported as a warning
// and the engine is called anyway.
func (a *Adapter) Train(p *Problem, cfg Config) (Model, error) {
	if p == nil || p.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "train")
	}
	resolved := a.prepare(log.OperationTrain, p, cfg)

	start := time.Now()
	model, err := a.engine.Train(p, resolved)
	if err != nil {
		return nil, errors.NewModelError(log.OperationTrain, "engine failure", err)
	}
	a.logger.Info("Trained model",
		log.SamplesKey, p.Len(),
		log.CostKey, resolved.Cost,
		log.GammaKey, resolved.Gamma,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return model, nil
}

// CrossValidate runs folds-fold cross validation and returns one predicted
// label per sample, aligned with p.Y.
func (a *Adapter) CrossValidate(p *Problem, cfg Config, folds int) ([]float64, error) {
	if p == nil || p.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "cross validate")
	}
	if folds < 2 {
		return nil, errors.NewValidationError("folds", "must be >= 2", folds)
	}
	resolved := a.prepare(log.OperationCrossValidate, p, cfg)

	predicted, err := a.engine.CrossValidate(p, resolved, folds)
	if err != nil {
		return nil, errors.NewModelError(log.OperationCrossValidate, "engine failure", err)
	}
	if len(predicted) != p.Len() {
		return nil, errors.NewDimensionError(log.OperationCrossValidate, p.Len(), len(predicted))
	}
	return predicted, nil
}

// CrossValidationAccuracy returns the share of predicted labels equal to
// p.Y.
func CrossValidationAccuracy(p *Problem, predicted []float64) (float64, error) {
	if len(predicted) != p.Len() {
		return 0, errors.NewDimensionError("cross validation accuracy", p.Len(), len(predicted))
	}
	if p.Len() == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "cross validation accuracy")
	}
	correct := 0
	for i, y := range p.Y {
		if predicted[i] == y {
			correct++
		}
	}
	return float64(correct) / float64(p.Len()), nil
}

// PredictWithProbabilities predicts one sparse feature vector and returns
// the label with a probability per model label. numClasses bounds the
// number of labels the model may know.
func (a *Adapter) PredictWithProbabilities(m Model, features map[int]float64, numClasses int) (int, map[int]float64, error) {
	if m == nil {
		return 0, nil, errors.ErrNotTrained
	}
	labels := m.Labels()
	if len(labels) > numClasses {
		return 0, nil, errors.NewValueError(log.OperationPredict,
			"model knows more classes than expected")
	}

	label, probs, err := a.engine.PredictProbability(m, NodesFromFeatures(features))
	if err != nil {
		return 0, nil, errors.NewModelError(log.OperationPredict, "engine failure", err)
	}
	if len(probs) != len(labels) {
		return 0, nil, errors.NewDimensionError(log.OperationPredict, len(labels), len(probs))
	}
	out := make(map[int]float64, len(labels))
	for i, l := range labels {
		out[l] = probs[i]
	}
	return int(label), out, nil
}
