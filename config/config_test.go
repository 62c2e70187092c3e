package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/search"
	"github.com/YuminosukeSato/svmgrid/svm"
)

const ottoYAML = `
log_level: debug
run:
  total_classes: 9
  nfold: 10
  scale: true
datasets:
  - path: resources/datasets/otto
    train_file: train.csv
    test_file: test.csv
    skip_first_line: true
    id_index: 0
    label_index: 94
    label_regex: "Class_"
    label_offset: -1
    feature_start: 1
    feature_end: 93
    svm:
      c: 0.5
      class_weights:
        0: 2.5
        1: 1
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(ottoYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, ".ser", cfg.Cache.Suffix)
	assert.Equal(t, 9, cfg.Run.TotalClasses)
	assert.True(t, cfg.Run.Scale)
	assert.Equal(t, "libsvm", cfg.Run.Engine)
	assert.Equal(t, "submission.csv", cfg.Run.Output)
	assert.Equal(t, 49, cfg.Grid().Size())

	ds, params, err := cfg.Dataset(0)
	require.NoError(t, err)
	assert.Equal(t, "resources/datasets/otto", ds.Path)
	assert.Equal(t, ",", ds.Layout.Delimiter)
	assert.Equal(t, -1, ds.Layout.Offset())
	assert.Equal(t, "Class_", ds.Layout.HeaderPrefix())
	assert.Equal(t, 93, ds.Layout.FeatureEnd)

	assert.Equal(t, 0.5, params.Cost)
	assert.Equal(t, svm.GammaAuto, params.Gamma)
	assert.Equal(t, svm.KernelRBF, params.Kernel)
	assert.True(t, params.Probability)
	assert.Equal(t, map[int]float64{0: 2.5, 1: 1}, params.ClassWeights)

	_, _, err = cfg.Dataset(1)
	assert.Error(t, err)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no datasets", "run:\n  total_classes: 2\n"},
		{"missing train file", "datasets:\n  - path: x\n"},
		{"reversed feature range", "datasets:\n  - {path: x, train_file: t, feature_start: 5, feature_end: 2}\n"},
		{"negative cost", "datasets:\n  - {path: x, train_file: t, svm: {c: -1}}\n"},
		{"zero class weight", "datasets:\n  - {path: x, train_file: t, svm: {class_weights: {0: 0}}}\n"},
		{"unknown engine", "run: {engine: smo}\ndatasets:\n  - {path: x, train_file: t}\n"},
		{"unknown kernel", "datasets:\n  - {path: x, train_file: t, svm: {kernel: poly}}\n"},
		{"custom grid without values", "run: {grid: custom}\ndatasets:\n  - {path: x, train_file: t}\n"},
		{"badger without path", "cache: {backend: badger}\ndatasets:\n  - {path: x, train_file: t}\n"},
		{"unknown field", "colour: blue\ndatasets:\n  - {path: x, train_file: t}\n"},
		{"bad regex", "datasets:\n  - {path: x, train_file: t, label_regex: '(['}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("datasets:\n  - {path: x, train_file: t, svm: {c: -1}}\n"))
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.ParamName, "Cost")
}

func TestCustomGrid(t *testing.T) {
	cfg, err := Parse([]byte("run: {grid: custom, costs: [1, 2], gammas: [0.5]}\ndatasets:\n  - {path: x, train_file: t}\n"))
	require.NoError(t, err)
	g := cfg.Grid()
	assert.Equal(t, []float64{1, 2}, g.Costs)
	assert.Equal(t, []float64{0.5}, g.Gammas)

	cfg.Run.Grid = "coarse"
	assert.Equal(t, math.Pow(2, -5), cfg.Grid().Costs[0])
}

func TestLoadWithOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "defaults.yaml")
	override := filepath.Join(dir, "configuration.yaml")
	require.NoError(t, os.WriteFile(base, []byte(ottoYAML), 0o600))
	require.NoError(t, os.WriteFile(override, []byte("log_level: warn\ncache:\n  enabled: false\n"), 0o600))

	cfg, err := Load(base, override, filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.CacheEnabled())
	assert.Len(t, cfg.Datasets, 1, "datasets from the base file survive the overlay")

	_, err = Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadShippedDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "conf", "defaults.yaml"), filepath.Join("..", "conf", "configuration.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Run.TotalClasses)
	assert.Equal(t, search.FineGrid().Size(), cfg.Grid().Size())

	ds, params, err := cfg.Dataset(0)
	require.NoError(t, err)
	assert.Equal(t, "Class_", ds.Layout.HeaderPrefix())
	assert.Equal(t, 0.5, params.Cost)
}
