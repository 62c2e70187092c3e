// Package svmgrid trains and evaluates multi-class kernel classifiers on
// delimited tabular datasets and searches their hyperparameters.
//
// # Overview
//
// A run loads the training and test records of a dataset, encodes them as
// a sparse classification problem and either trains a model and evaluates
// the test records, or cross-validates every cell of a (C, gamma) grid in
// parallel and ranks the cells by accuracy.
//
// The packages are layered bottom-up:
//
//   - dataset: records, file layouts, parsing and submission output
//   - svm: problem encoding, hyperparameters and the engine adapter
//   - svm/libsvm: the default engine, backed by libsvm-go
//   - svm/kernel: a deterministic reference engine
//   - preprocessing: sparse max-abs feature scaling
//   - metrics: confusion matrix, per-class statistics, F scores
//   - search: grids, the parallel scheduler, CSV and heat-map output
//   - cache: gob+xz artifacts on disk or in badger
//   - pipeline: the training and evaluation state machine
//   - config: YAML configuration with validation
//
// # Quick Start
//
// Describe a dataset in YAML:
//
//	run:
//	  total_classes: 9
//	  nfold: 10
//	datasets:
//	  - path: resources/datasets/otto
//	    train_file: train.csv
//	    test_file: test.csv
//	    skip_first_line: true
//	    label_index: 94
//	    label_regex: "Class_"
//	    label_offset: -1
//	    feature_start: 1
//	    feature_end: 93
//
// Then train, or search the fine grid:
//
//	svmgrid train --config otto.yaml
//	svmgrid search --config otto.yaml --grid fine --plot grid.png
//
// # Error Handling
//
// Errors carry stack traces (see pkg/errors). Engine parameter checks and
// ill-defined metrics are reported as warnings through errors.Warn and
// never abort a run.
package svmgrid
