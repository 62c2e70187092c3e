// Package libsvm backs svm.Adapter with github.com/ewalker544/libsvm-go, a
// pure Go port of LIBSVM. Only C-SVC with the RBF or linear kernel is
// exposed.
//
// libsvm-go reads problems from LIBSVM text files and persists models the
// same way, so problems are handed over through svm.WriteProblem and models
// keep their model file text for caching.
package libsvm

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	libSvm "github.com/ewalker544/libsvm-go"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/svm"
)

func init() {
	gob.Register(&Model{})
}

// Engine implements svm.Engine on top of libsvm-go.
type Engine struct {
	// Seed drives the fold shuffle of CrossValidate.
	Seed uint64
	// TempDir holds the problem and model files exchanged with libsvm-go.
	// Empty means os.TempDir().
	TempDir string
}

// New returns an Engine with a fixed seed.
func New() *Engine {
	return &Engine{Seed: 1}
}

// Model is a trained LIBSVM model.
type Model struct {
	labels      []int
	probability bool
	text        []byte
	model       *libSvm.Model
}

// Labels implements svm.Model, in the order of the model file's label line.
func (m *Model) Labels() []int {
	return m.labels
}

type modelFile struct {
	Labels      []int
	Probability bool
	Text        []byte
}

// GobEncode stores the LIBSVM model file text.
func (m *Model) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(modelFile{Labels: m.labels, Probability: m.probability, Text: m.text})
	return buf.Bytes(), errors.Wrap(err, "encode libsvm model")
}

// GobDecode reloads the model through libsvm-go.
func (m *Model) GobDecode(data []byte) error {
	var f modelFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return errors.Wrap(err, "decode libsvm model")
	}
	model, err := loadModel("", f.Text)
	if err != nil {
		return err
	}
	m.labels, m.probability, m.text, m.model = f.Labels, f.Probability, f.Text, model
	return nil
}

// CheckParameter implements svm.Engine with the checks of LIBSVM's
// svm_check_parameter that apply to C-SVC.
func (e *Engine) CheckParameter(p *svm.Problem, cfg svm.Config) string {
	switch {
	case p == nil || p.Len() == 0:
		return "empty problem"
	case cfg.Kernel != svm.KernelRBF && cfg.Kernel != svm.KernelLinear:
		return "unknown kernel type"
	case cfg.Gamma < 0:
		return "gamma < 0"
	case int(cfg.CacheSizeMB) <= 0:
		return "cache_size <= 0"
	case cfg.Eps <= 0:
		return "eps <= 0"
	case cfg.Cost <= 0:
		return "C <= 0"
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
	if diag := e.CheckParameter(p, cfg); diag != "" {
		return nil, errors.NewValueError("libsvm train", diag)
	}
	model, err := e.train(p, cfg)
	if err != nil {
		return nil, err
	}
	text, err := e.dump(model)
	if err != nil {
		return nil, err
	}
	labels, err := parseLabels(text)
	if err != nil {
		return nil, err
	}
	return &Model{labels: labels, probability: cfg.Probability, text: text, model: model}, nil
}

func (e *Engine) train(p *svm.Problem, cfg svm.Config) (*libSvm.Model, error) {
	param := parameter(cfg)
	prob, err := e.problem(p, param)
	if err != nil {
		return nil, err
	}
	model := libSvm.NewModel(param)
	if err := model.Train(prob); err != nil {
		return nil, errors.NewModelError("libsvm train", "training failed", err)
	}
	return model, nil
}

// PredictProbability implements svm.Engine. Models trained without
// probability estimates report probability 1 for the predicted label.
func (e *Engine) PredictProbability(model svm.Model, x []svm.Node) (float64, []float64, error) {
	m, ok := model.(*Model)
	if !ok || m.model == nil {
		return 0, nil, errors.NewValueError("libsvm predict", fmt.Sprintf("unsupported model type %T", model))
	}
	features := featureMap(x)
	if m.probability {
		label, probs := m.model.PredictProbability(features)
		if len(probs) != len(m.labels) {
			return 0, nil, errors.NewDimensionError("libsvm predict", len(m.labels), len(probs))
		}
		if err := errors.CheckNumericalStability("libsvm predict", probs); err != nil {
			return 0, nil, err
		}
		return label, probs, nil
	}
	label := m.model.Predict(features)
	probs := make([]float64, len(m.labels))
	for i, l := range m.labels {
		if float64(l) == label {
			probs[i] = 1
		}
	}
	return label, probs, nil
}

// CrossValidate implements svm.Engine with a seeded stratified split, as
// svm_cross_validation does for classification.
func (e *Engine) CrossValidate(p *svm.Problem, cfg svm.Config, folds int) ([]float64, error) {
	if diag := e.CheckParameter(p, cfg); diag != "" {
		return nil, errors.NewValueError("libsvm cross validate", diag)
	}
	predicted := make([]float64, p.Len())
	for _, fold := range svm.NewStratifiedKFold(folds, true, e.Seed).Split(p.Y) {
		if len(fold.TrainIndices) == 0 {
			return nil, errors.NewValueError("libsvm cross validate", "fold without training samples")
		}
		model, err := e.train(p.Subset(fold.TrainIndices), cfg)
		if err != nil {
			return nil, err
		}
		for _, i := range fold.TestIndices {
			features := featureMap(p.X[i])
			if cfg.Probability {
				predicted[i], _ = model.PredictProbability(features)
			} else {
				predicted[i] = model.Predict(features)
			}
		}
	}
	return predicted, nil
}

func parameter(cfg svm.Config) *libSvm.Parameter {
	param := libSvm.NewParameter()
	param.SvmType = libSvm.C_SVC
	param.KernelType = libSvm.RBF
	if cfg.Kernel == svm.KernelLinear {
		param.KernelType = libSvm.LINEAR
	}
	param.C = cfg.Cost
	param.Gamma = cfg.Gamma
	param.Eps = cfg.Eps
	param.CacheSize = int(cfg.CacheSizeMB)
	param.Probability = cfg.Probability
	param.QuietMode = true

	labels := make([]int, 0, len(cfg.ClassWeights))
	for label := range cfg.ClassWeights {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	param.NrWeight = len(labels)
	param.WeightLabel = labels
	param.Weight = make([]float64, len(labels))
	for i, label := range labels {
		param.Weight[i] = cfg.ClassWeights[label]
	}
	return param
}

func (e *Engine) problem(p *svm.Problem, param *libSvm.Parameter) (*libSvm.Problem, error) {
	f, err := os.CreateTemp(e.TempDir, "svmgrid-problem-*.txt")
	if err != nil {
		return nil, errors.Wrap(err, "create problem file")
	}
	path := f.Name()
	defer os.Remove(path)

	err = svm.WriteProblem(f, p)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = errors.Wrapf(cerr, "close %s", path)
	}
	if err != nil {
		return nil, err
	}
	prob, err := libSvm.NewProblem(path, param)
	if err != nil {
		return nil, errors.NewModelError("libsvm problem", "reading problem failed", err)
	}
	return prob, nil
}

func (e *Engine) dump(model *libSvm.Model) ([]byte, error) {
	f, err := os.CreateTemp(e.TempDir, "svmgrid-model-*.txt")
	if err != nil {
		return nil, errors.Wrap(err, "create model file")
	}
	path := f.Name()
	defer os.Remove(path)
	if err := f.Close(); err != nil {
		return nil, errors.Wrapf(err, "close %s", path)
	}

	if err := model.Dump(path); err != nil {
		return nil, errors.NewModelError("libsvm dump", "writing model failed", err)
	}
	text, err := os.ReadFile(path)
	return text, errors.Wrapf(err, "read %s", path)
}

func loadModel(dir string, text []byte) (*libSvm.Model, error) {
	f, err := os.CreateTemp(dir, "svmgrid-model-*.txt")
	if err != nil {
		return nil, errors.Wrap(err, "create model file")
	}
	path := f.Name()
	defer os.Remove(path)

	_, err = f.Write(text)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.Wrapf(err, "write %s", path)
	}
	return libSvm.NewModelFromFile(path), nil
}

// parseLabels reads the "label" line of a LIBSVM model file.
func parseLabels(text []byte) ([]int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(text))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "label" {
			continue
		}
		labels := make([]int, 0, len(fields)-1)
		for _, f := range fields[1:] {
			l, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "model label %q", f)
			}
			labels = append(labels, l)
		}
		return labels, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan model")
	}
	return nil, errors.NewValueError("libsvm model", "no label line")
}

func featureMap(x []svm.Node) map[int]float64 {
	m := make(map[int]float64, len(x))
	for _, n := range x {
		m[n.Index] = n.Value
	}
	return m
}
