package dataset

import (
	"regexp"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// Layout describes how a delimited input file maps onto records.
//
// Column indices are zero-based. The inclusive range
// [FeatureStart, FeatureEnd] is fixed per dataset; a feature's index is its
// column index.
type Layout struct {
	Delimiter     string
	SkipFirstLine bool
	IDIndex       int
	LabelIndex    int
	// LabelRegex is removed from the label column before the integer parse,
	// e.g. "Class_" turns "Class_3" into 3.
	LabelRegex string
	// LabelOffset is added to every parsed label, e.g. -1 maps 1..9 to 0..8.
	LabelOffset *int
	// LabelPrefix prefixes the class columns of the prediction output.
	// Empty falls back to LabelRegex.
	LabelPrefix  string
	FeatureStart int
	FeatureEnd   int
}

// Validate checks the layout for internal consistency.
func (l Layout) Validate() error {
	if l.Delimiter == "" {
		return errors.NewValidationError("delimiter", "must not be empty", l.Delimiter)
	}
	if l.IDIndex < 0 {
		return errors.NewValidationError("id_index", "must be >= 0", l.IDIndex)
	}
	if l.LabelIndex < 0 {
		return errors.NewValidationError("label_index", "must be >= 0", l.LabelIndex)
	}
	if l.FeatureStart < 0 || l.FeatureEnd < l.FeatureStart {
		return errors.NewValidationError("feature_range", "start must be >= 0 and <= end", [2]int{l.FeatureStart, l.FeatureEnd})
	}
	if l.LabelRegex != "" {
		if _, err := regexp.Compile(l.LabelRegex); err != nil {
			return errors.NewValidationError("label_regex", err.Error(), l.LabelRegex)
		}
	}
	return nil
}

// Offset returns the label offset, zero when unset.
func (l Layout) Offset() int {
	if l.LabelOffset == nil {
		return 0
	}
	return *l.LabelOffset
}

// HeaderPrefix returns the prefix used for class columns in the output.
func (l Layout) HeaderPrefix() string {
	if l.LabelPrefix != "" {
		return l.LabelPrefix
	}
	return l.LabelRegex
}

// OriginalLabel maps an internal class label back to the input label space.
func (l Layout) OriginalLabel(label int) int {
	return label - l.Offset()
}
