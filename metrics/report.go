package metrics

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// Summary bundles everything derived from one confusion matrix.
type Summary struct {
	Matrix      *ConfusionMatrix
	Stats       []ClassStats
	Accuracy    float64
	WeightedF   float64
	AveragePosF float64
}

// Summarize computes all scores of m.
func Summarize(m *ConfusionMatrix) (*Summary, error) {
	stats := PerClassStats(m)
	weighted, err := WeightedFScore(stats, m)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Matrix:      m,
		Stats:       stats,
		Accuracy:    Accuracy(m),
		WeightedF:   weighted,
		AveragePosF: AverageFScorePosNeg(stats),
	}, nil
}

// WriteReport writes a tab-separated confusion matrix with row and column
// totals followed by the scores, e.g.
//
//	Confusion Matrix:
//	        0   1   total
//	Class:0 2   0   2
//	Class:1 1   1   2
//	total   3   1
func WriteReport(w io.Writer, m *ConfusionMatrix) error {
	s, err := Summarize(m)
	if err != nil {
		return err
	}
	return s.Write(w)
}

// Write renders the summary as WriteReport does.
func (s *Summary) Write(w io.Writer) error {
	m := s.Matrix
	n := m.Classes()
	rows := m.RowSums()
	cols := m.ColSums()

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Confusion Matrix:")

	header := make([]string, 0, n+2)
	header = append(header, "")
	for j := 0; j < n; j++ {
		header = append(header, strconv.Itoa(j))
	}
	header = append(header, "total")
	fmt.Fprintln(bw, strings.Join(header, "\t"))

	for i := 0; i < n; i++ {
		line := make([]string, 0, n+2)
		line = append(line, "Class:"+strconv.Itoa(i))
		for j := 0; j < n; j++ {
			line = append(line, strconv.Itoa(m.At(i, j)))
		}
		line = append(line, strconv.Itoa(rows[i]))
		fmt.Fprintln(bw, strings.Join(line, "\t"))
	}
	totals := make([]string, 0, n+1)
	totals = append(totals, "total")
	for _, c := range cols {
		totals = append(totals, strconv.Itoa(c))
	}
	fmt.Fprintln(bw, strings.Join(totals, "\t"))
	fmt.Fprintln(bw)

	fmt.Fprintf(bw, "Total: %d\n", m.Total())
	fmt.Fprintf(bw, "Correct: %d\n", m.Trace())
	fmt.Fprintf(bw, "Accuracy: %s\n", score(s.Accuracy))
	fmt.Fprintln(bw, "Scores per class:")
	for i, st := range s.Stats {
		fmt.Fprintf(bw, "Class: %d Precision: %s Recall: %s F-Score: %s\n",
			i, score(st.Precision), score(st.Recall), score(st.FScore))
	}
	fmt.Fprintf(bw, "F-Score weighted: %s\n", score(s.WeightedF))
	if n >= 2 {
		fmt.Fprintf(bw, "F-Score average(pos,neg): %s\n", score(s.AveragePosF))
	}
	return errors.Wrap(bw.Flush(), "write report")
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
