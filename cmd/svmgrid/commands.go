package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/svmgrid/config"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
)

var (
	configPath   string
	overridePath string
	logLevel     string

	datasetIndex int
	totalClasses int
	nFold        int
	noCache      bool
	outputPath   string

	gridName   string
	plotPath   string
	numWorkers int

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "svmgrid",
		Short: "Train, evaluate and tune kernel classifiers on delimited datasets",
		Long: `svmgrid reads labeled training data and unlabeled test data, trains a
kernel classifier, writes per-class probabilities for every test record,
and can search the cost/gamma grid by parallel cross validation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath, overridePath)
			if err != nil {
				return err
			}
			cfg = loaded
			level := cfg.LogLevel
			if logLevel != "" {
				level = logLevel
			}
			return log.SetupLogger(level, cmd.ErrOrStderr())
		},
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Train (or load) a model, evaluate the test file and write predictions",
		Args:  cobra.NoArgs,
		RunE:  runTrain,
	}

	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Cross-validate every cost/gamma pair of a grid in parallel",
		Long: `Runs k-fold cross validation for every cell of the selected grid and
writes parameter_search.csv into the dataset directory.

Examples:
  svmgrid search --grid coarse
  svmgrid search --grid fine --plot search.png`,
		Args: cobra.NoArgs,
		RunE: runSearch,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print class distribution and balancing weights of every dataset",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "conf/defaults.yaml",
		"Configuration file")
	rootCmd.PersistentFlags().StringVar(&overridePath, "override", "conf/configuration.yaml",
		"Optional configuration overlay, skipped when missing")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().IntVar(&datasetIndex, "dataset", 0,
		"Index of the dataset in the configuration")

	trainCmd.Flags().IntVar(&totalClasses, "classes", 0,
		"Number of classes (0 = run.total_classes)")
	trainCmd.Flags().IntVar(&nFold, "nfold", -1,
		"Cross-validation folds after training (-1 = run.nfold, <2 disables)")
	trainCmd.Flags().BoolVar(&noCache, "no-cache", false,
		"Neither load nor store cached records and models")
	trainCmd.Flags().StringVar(&outputPath, "output", "",
		"Prediction file, relative to the dataset path (default run.output)")

	searchCmd.Flags().StringVar(&gridName, "grid", "",
		"Grid: coarse, fine, custom (default run.grid)")
	searchCmd.Flags().StringVar(&plotPath, "plot", "",
		"Write an accuracy heat map to this file (png, svg, pdf)")
	searchCmd.Flags().IntVar(&numWorkers, "workers", 0,
		"Worker goroutines (0 = run.workers or NumCPU)")
	searchCmd.Flags().BoolVar(&noCache, "no-cache", false,
		"Do not use cached records")

	rootCmd.AddCommand(trainCmd, searchCmd, statsCmd)
}
