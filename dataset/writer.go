package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// WritePredictions writes one header line and one line per record:
//
//	id<sep><prefix><label>...
//	<id><sep><p>...
//
// Class columns follow the ascending label order of the first record and
// are rendered in the input label space (the layout offset is undone).
// A record without an id gets an empty id column; a label missing from a
// record's probabilities is written as 0.
func WritePredictions(w io.Writer, records []*Record, layout Layout) error {
	if len(records) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "write predictions")
	}
	if records[0].Probabilities == nil {
		return errors.NewValueError("write predictions", "records have not been evaluated")
	}

	sep := layout.Delimiter
	prefix := layout.HeaderPrefix()
	labels := records[0].SortedLabels()

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("id"); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, l := range labels {
		_, _ = bw.WriteString(sep)
		_, _ = bw.WriteString(prefix)
		_, _ = bw.WriteString(strconv.Itoa(layout.OriginalLabel(l)))
	}
	_ = bw.WriteByte('\n')

	for _, r := range records {
		if r.ID != nil {
			_, _ = bw.WriteString(strconv.FormatInt(*r.ID, 10))
		}
		for _, l := range labels {
			_, _ = bw.WriteString(sep)
			_, _ = bw.WriteString(strconv.FormatFloat(r.Probabilities[l], 'g', -1, 64))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write record")
		}
	}
	return errors.Wrap(bw.Flush(), "flush predictions")
}

// WritePredictionsFile creates path and writes the predictions into it.
func WritePredictionsFile(path string, records []*Record, layout Layout) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return WritePredictions(f, records, layout)
}
