// Package dataset loads labeled and unlabeled records from delimited files
// and writes per-class prediction files.
package dataset

import (
	"path/filepath"
	"sync"

	"github.com/YuminosukeSato/svmgrid/cache"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
)

// Dataset names a training file, an optional test file and the layout
// shared by both. Items are loaded lazily and at most once.
type Dataset struct {
	Path      string
	TrainFile string
	TestFile  string
	Layout    Layout

	cache  cache.Store
	logger log.Logger

	mu         sync.Mutex
	trainItems []*Record
	testItems  []*Record
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithCache attaches a cache for parsed records. Keys are the file names
// relative to the dataset path.
func WithCache(store cache.Store) Option {
	return func(d *Dataset) { d.cache = store }
}

// WithLogger sets the logger used while loading.
func WithLogger(logger log.Logger) Option {
	return func(d *Dataset) { d.logger = logger }
}

// New creates a Dataset. testFile may be empty.
func New(path, trainFile, testFile string, layout Layout, opts ...Option) *Dataset {
	d := &Dataset{
		Path:      path,
		TrainFile: trainFile,
		TestFile:  testFile,
		Layout:    layout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.GetLoggerWithName("dataset")
	}
	return d
}

// Cache returns the attached cache, or nil.
func (d *Dataset) Cache() cache.Store {
	return d.cache
}

// TrainFilePath returns the absolute-or-relative path of the training file.
func (d *Dataset) TrainFilePath() string {
	if d.TrainFile == "" {
		return ""
	}
	return filepath.Join(d.Path, d.TrainFile)
}

// TestFilePath returns the path of the test file, or "" when none is set.
func (d *Dataset) TestFilePath() string {
	if d.TestFile == "" {
		return ""
	}
	return filepath.Join(d.Path, d.TestFile)
}

// TrainItems returns the labeled training records.
func (d *Dataset) TrainItems() ([]*Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.trainItems == nil && d.TrainFile != "" {
		items, err := d.load(d.TrainFile, true)
		if err != nil {
			return nil, err
		}
		d.trainItems = items
	}
	return d.trainItems, nil
}

// TestItems returns the test records. Labels are not read from the file.
func (d *Dataset) TestItems() ([]*Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.testItems == nil && d.TestFile != "" {
		items, err := d.load(d.TestFile, false)
		if err != nil {
			return nil, err
		}
		d.testItems = items
	}
	return d.testItems, nil
}

// SetTestItems replaces the test records, e.g. with a labeled hold-out.
func (d *Dataset) SetTestItems(items []*Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.testItems = items
}

func (d *Dataset) load(file string, withLabels bool) ([]*Record, error) {
	logger := d.logger.With(log.PathKey, file)
	if d.cache != nil {
		var items []*Record
		ok, err := d.cache.Load(file, &items)
		if err != nil {
			logger.Warn("Ignoring unreadable cached records", log.ErrAttrKey, err)
		} else if ok {
			logger.Info("Loaded records from cache", log.SamplesKey, len(items))
			return items, nil
		}
	}

	items, err := ReadRecordsFile(filepath.Join(d.Path, file), d.Layout, withLabels, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "load dataset file %s", file)
	}
	if d.cache != nil {
		if err := d.cache.Store(file, items); err != nil {
			logger.Warn("Could not cache records", log.ErrAttrKey, err)
		}
	}
	return items, nil
}
