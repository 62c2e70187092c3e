// Package config loads the YAML process configuration: logging, caching,
// run options and the list of datasets with their hyperparameters.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/svmgrid/dataset"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/search"
	"github.com/YuminosukeSato/svmgrid/svm"
)

// Config is the root of the configuration file.
type Config struct {
	LogLevel string          `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	Cache    CacheConfig     `yaml:"cache"`
	Run      RunConfig       `yaml:"run"`
	Datasets []DatasetConfig `yaml:"datasets" validate:"required,min=1,dive"`
}

// CacheConfig selects where parsed records and models are kept.
type CacheConfig struct {
	Enabled *bool `yaml:"enabled"`
	// Backend is "file" (one artifact per file next to the data) or
	// "badger" (one embedded database at BadgerPath).
	Backend    string `yaml:"backend" validate:"omitempty,oneof=file badger"`
	BadgerPath string `yaml:"badger_path" validate:"required_if=Backend badger"`
	Suffix     string `yaml:"suffix"`
}

// RunConfig holds the orchestrator options.
type RunConfig struct {
	TotalClasses int  `yaml:"total_classes" validate:"gte=0"`
	NFold        int  `yaml:"nfold" validate:"gte=0"`
	Scale        bool `yaml:"scale"`
	// Engine is "libsvm" or the reference "kernel" backend.
	Engine          string    `yaml:"engine" validate:"omitempty,oneof=libsvm kernel"`
	ParameterSearch bool      `yaml:"parameter_search"`
	Grid            string    `yaml:"grid" validate:"omitempty,oneof=coarse fine custom"`
	Costs           []float64 `yaml:"costs" validate:"dive,gt=0"`
	Gammas          []float64 `yaml:"gammas" validate:"dive,gt=0"`
	Workers         int       `yaml:"workers" validate:"gte=0"`
	SearchFolds     int       `yaml:"search_folds" validate:"omitempty,gte=2"`
	Output          string    `yaml:"output"`
	Plot            string    `yaml:"plot"`
}

// DatasetConfig describes one dataset and its hyperparameters.
type DatasetConfig struct {
	Path          string    `yaml:"path" validate:"required"`
	TrainFile     string    `yaml:"train_file" validate:"required"`
	TestFile      string    `yaml:"test_file"`
	SkipFirstLine bool      `yaml:"skip_first_line"`
	Delimiter     string    `yaml:"delimiter"`
	IDIndex       int       `yaml:"id_index" validate:"gte=0"`
	LabelIndex    int       `yaml:"label_index" validate:"gte=0"`
	LabelRegex    string    `yaml:"label_regex"`
	LabelOffset   *int      `yaml:"label_offset"`
	LabelPrefix   string    `yaml:"label_prefix"`
	FeatureStart  int       `yaml:"feature_start" validate:"gte=0"`
	FeatureEnd    int       `yaml:"feature_end" validate:"gtefield=FeatureStart"`
	SVM           SVMConfig `yaml:"svm"`
}

// SVMConfig overrides svm.DefaultConfig field by field.
type SVMConfig struct {
	Kernel       string          `yaml:"kernel" validate:"omitempty,oneof=rbf linear"`
	Cost         *float64        `yaml:"c" validate:"omitnil,gt=0"`
	Gamma        *float64        `yaml:"gamma" validate:"omitnil,gte=0"`
	Probability  *bool           `yaml:"probability"`
	Eps          *float64        `yaml:"eps" validate:"omitnil,gt=0"`
	CacheSizeMB  *float64        `yaml:"cache_size_mb" validate:"omitnil,gt=0"`
	ClassWeights map[int]float64 `yaml:"class_weights" validate:"dive,gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads path and overlays every existing file in overrides on top of
// it, in order. Missing override files are skipped.
func Load(path string, overrides ...string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := &Config{}
	if err := decode(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	for _, o := range overrides {
		data, err := os.ReadFile(o)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", o)
		}
		if err := decode(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", o)
		}
	}
	return finish(cfg)
}

// Parse decodes a single YAML document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decode(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return finish(cfg)
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Cache.Enabled == nil {
		enabled := true
		c.Cache.Enabled = &enabled
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.Suffix == "" {
		c.Cache.Suffix = ".ser"
	}
	if c.Run.Engine == "" {
		c.Run.Engine = "libsvm"
	}
	if c.Run.Grid == "" {
		c.Run.Grid = "fine"
	}
	if c.Run.SearchFolds == 0 {
		c.Run.SearchFolds = search.DefaultFolds
	}
	if c.Run.Output == "" {
		c.Run.Output = "submission.csv"
	}
	for i := range c.Datasets {
		if c.Datasets[i].Delimiter == "" {
			c.Datasets[i].Delimiter = ","
		}
	}
}

// Validate checks struct tags and the constraints that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed '"+fe.Tag()+"' "+fe.Param(), fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}
	if c.Run.Grid == "custom" && (len(c.Run.Costs) == 0 || len(c.Run.Gammas) == 0) {
		return errors.NewValidationError("run.grid", "custom grid needs costs and gammas", c.Run.Grid)
	}
	for i := range c.Datasets {
		if err := c.Datasets[i].Layout().Validate(); err != nil {
			return errors.Wrapf(err, "datasets[%d]", i)
		}
	}
	return nil
}

// CacheEnabled reports whether artifacts should be cached.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// Grid returns the search grid named by run.grid.
func (c *Config) Grid() search.Grid {
	switch c.Run.Grid {
	case "coarse":
		return search.CoarseGrid()
	case "custom":
		return search.Grid{Costs: c.Run.Costs, Gammas: c.Run.Gammas}
	default:
		return search.FineGrid()
	}
}

// Dataset builds the i-th dataset and returns its hyperparameters.
func (c *Config) Dataset(i int, opts ...dataset.Option) (*dataset.Dataset, svm.Config, error) {
	if i < 0 || i >= len(c.Datasets) {
		return nil, svm.Config{}, errors.NewValidationError("dataset", "index out of range", i)
	}
	d := c.Datasets[i]
	return dataset.New(d.Path, d.TrainFile, d.TestFile, d.Layout(), opts...), d.SVM.Params(), nil
}

// Layout converts the column description into a dataset.Layout.
func (d DatasetConfig) Layout() dataset.Layout {
	return dataset.Layout{
		Delimiter:     d.Delimiter,
		SkipFirstLine: d.SkipFirstLine,
		IDIndex:       d.IDIndex,
		LabelIndex:    d.LabelIndex,
		LabelRegex:    d.LabelRegex,
		LabelOffset:   d.LabelOffset,
		LabelPrefix:   d.LabelPrefix,
		FeatureStart:  d.FeatureStart,
		FeatureEnd:    d.FeatureEnd,
	}
}

// Params applies the overrides to svm.DefaultConfig.
func (s SVMConfig) Params() svm.Config {
	cfg := svm.DefaultConfig()
	if s.Kernel != "" {
		cfg.Kernel = svm.KernelType(s.Kernel)
	}
	if s.Cost != nil {
		cfg.Cost = *s.Cost
	}
	if s.Gamma != nil {
		cfg.Gamma = *s.Gamma
	}
	if s.Probability != nil {
		cfg.Probability = *s.Probability
	}
	if s.Eps != nil {
		cfg.Eps = *s.Eps
	}
	if s.CacheSizeMB != nil {
		cfg.CacheSizeMB = *s.CacheSizeMB
	}
	if len(s.ClassWeights) > 0 {
		cfg.ClassWeights = make(map[int]float64, len(s.ClassWeights))
		for k, v := range s.ClassWeights {
			cfg.ClassWeights[k] = v
		}
	}
	return cfg
}
