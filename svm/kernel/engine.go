// Package kernel is a reference classifier backend for svm.Adapter.
//
// It is a deterministic RBF kernel-density classifier, not a
// support-vector solver. A model keeps its training vectors and scores
// each class c for an input x as
//
//	prior(c) * weight(c) * (mean_i exp(-gamma*||x-x_i||^2) + 1/(C*n))
//
// where the mean runs over the training vectors of class c and n is the
// training set size. Scores are normalised to probabilities. Larger C
// sharpens the decision; larger gamma narrows the kernel.
package kernel

import (
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/svm"
)

func init() {
	gob.Register(&Model{})
}

// Engine implements svm.Engine.
type Engine struct {
	// Seed drives the fold shuffle of CrossValidate.
	Seed uint64
}

// New returns an Engine with a fixed seed.
func New() *Engine {
	return &Engine{Seed: 1}
}

// Model is a trained kernel-density classifier. Fields are exported so
// that the model can be gob-encoded by the cache.
type Model struct {
	Classes []int
	// Members lists the training vector indices of each class, aligned with
	// Classes.
	Members [][]int
	Vectors [][]svm.Node
	Norms   []float64
	Priors  []float64
	Weights []float64
	Gamma   float64
	Cost    float64
}

// Labels implements svm.Model. The order is first appearance in the
// training labels.
func (m *Model) Labels() []int {
	return m.Classes
}

// CheckParameter implements svm.Engine.
func (e *Engine) CheckParameter(p *svm.Problem, cfg svm.Config) string {
	switch {
	case cfg.Kernel != svm.KernelRBF:
		return fmt.Sprintf("unknown kernel type %q", cfg.Kernel)
	case cfg.Cost <= 0:
		return "C <= 0"
	case cfg.Gamma < 0:
		return "gamma < 0"
	case cfg.Eps <= 0:
		return "eps <= 0"
	case p == nil || p.Len() == 0:
		return "empty problem"
	}
	for label, w := range cfg.ClassWeights {
		if w <= 0 {
			return fmt.Sprintf("class weight of %d <= 0", label)
		}
	}
	return ""
}

// Train implements svm.Engine. Configs rejected by CheckParameter fail.
func (e *Engine) Train(p *svm.Problem, cfg svm.Config) (svm.Model, error) {
	return e.train(p, cfg, nil)
}

func (e *Engine) train(p *svm.Problem, cfg svm.Config, subset []int) (*Model, error) {
	if diag := e.CheckParameter(p, cfg); diag != "" {
		return nil, errors.NewValueError("kernel train", diag)
	}
	if subset == nil {
		subset = make([]int, p.Len())
		for i := range subset {
			subset[i] = i
		}
	}
	if len(subset) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "kernel train")
	}

	m := &Model{
		Vectors: make([][]svm.Node, len(subset)),
		Norms:   make([]float64, len(subset)),
		Gamma:   cfg.Gamma,
		Cost:    cfg.Cost,
	}
	classIndex := make(map[int]int)
	for i, src := range subset {
		label := int(p.Y[src])
		c, ok := classIndex[label]
		if !ok {
			c = len(m.Classes)
			classIndex[label] = c
			m.Classes = append(m.Classes, label)
			m.Members = append(m.Members, nil)
		}
		m.Members[c] = append(m.Members[c], i)
		m.Vectors[i] = p.X[src]
		m.Norms[i] = squaredNorm(p.X[src])
	}

	n := float64(len(subset))
	m.Priors = make([]float64, len(m.Classes))
	m.Weights = make([]float64, len(m.Classes))
	for c, label := range m.Classes {
		m.Priors[c] = float64(len(m.Members[c])) / n
		m.Weights[c] = cfg.ClassWeight(label)
	}
	return m, nil
}

// PredictProbability implements svm.Engine.
func (e *Engine) PredictProbability(model svm.Model, x []svm.Node) (float64, []float64, error) {
	m, ok := model.(*Model)
	if !ok {
		return 0, nil, errors.NewValueError("kernel predict", fmt.Sprintf("unsupported model type %T", model))
	}
	probs := m.probabilities(x)
	if err := errors.CheckNumericalStability("kernel predict", probs); err != nil {
		return 0, nil, err
	}
	return float64(m.Classes[floats.MaxIdx(probs)]), probs, nil
}

// probabilities works in log space so that far-away samples, whose kernel
// values underflow to zero, still rank by prior and class weight.
func (m *Model) probabilities(x []svm.Node) []float64 {
	xNorm := squaredNorm(x)
	logSmoothing := -math.Log(m.Cost * float64(len(m.Vectors)))

	scores := make([]float64, len(m.Classes))
	for c, members := range m.Members {
		logDensity := make([]float64, len(members))
		for k, i := range members {
			d := xNorm + m.Norms[i] - 2*dot(x, m.Vectors[i])
			if d < 0 {
				d = 0
			}
			logDensity[k] = -m.Gamma * d
		}
		logMean := errors.LogSumExp(logDensity) - math.Log(float64(len(members)))
		scores[c] = math.Log(m.Priors[c]*m.Weights[c]) + errors.LogSumExp([]float64{logMean, logSmoothing})
	}

	norm := errors.LogSumExp(scores)
	for c := range scores {
		scores[c] = math.Exp(scores[c] - norm)
	}
	return scores
}

// CrossValidate implements svm.Engine with a seeded stratified split.
func (e *Engine) CrossValidate(p *svm.Problem, cfg svm.Config, folds int) ([]float64, error) {
	if p == nil || p.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "kernel cross validate")
	}
	predicted := make([]float64, p.Len())
	splitter := svm.NewStratifiedKFold(folds, true, e.Seed)
	for _, fold := range splitter.Split(p.Y) {
		if len(fold.TrainIndices) == 0 {
			return nil, errors.NewValueError("kernel cross validate", "fold without training samples")
		}
		m, err := e.train(p, cfg, fold.TrainIndices)
		if err != nil {
			return nil, err
		}
		for _, i := range fold.TestIndices {
			probs := m.probabilities(p.X[i])
			predicted[i] = float64(m.Classes[floats.MaxIdx(probs)])
		}
	}
	return predicted, nil
}

func squaredNorm(x []svm.Node) float64 {
	s := 0.0
	for _, n := range x {
		s += n.Value * n.Value
	}
	return s
}

// dot merges two index-ascending sparse vectors.
func dot(a, b []svm.Node) float64 {
	s := 0.0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Index == b[j].Index:
			s += a[i].Value * b[j].Value
			i++
			j++
		case a[i].Index < b[j].Index:
			i++
		default:
			j++
		}
	}
	return s
}
