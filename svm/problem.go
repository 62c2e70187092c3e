package svm

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/svmgrid/dataset"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// Node is one non-zero feature of a sparse vector.
type Node struct {
	Index int
	Value float64
}

// Problem is the engine-facing training set: one node slice per sample,
// indices strictly ascending, and one label per sample.
type Problem struct {
	X [][]Node
	Y []float64
}

// Len returns the number of samples.
func (p *Problem) Len() int {
	return len(p.Y)
}

// NumFeatures returns the largest feature index present, or 0.
func (p *Problem) NumFeatures() int {
	n := 0
	for _, x := range p.X {
		if len(x) > 0 && x[len(x)-1].Index > n {
			n = x[len(x)-1].Index
		}
	}
	return n
}

// Subset returns the samples at indices, in that order. Node slices are
// shared with p.
func (p *Problem) Subset(indices []int) *Problem {
	sub := &Problem{X: make([][]Node, len(indices)), Y: make([]float64, len(indices))}
	for i, src := range indices {
		sub.X[i] = p.X[src]
		sub.Y[i] = p.Y[src]
	}
	return sub
}

// Labels returns the distinct labels in ascending order.
func (p *Problem) Labels() []int {
	seen := make(map[int]struct{})
	for _, y := range p.Y {
		seen[int(y)] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

// NodesFromFeatures converts a sparse feature map into ascending nodes,
// skipping zero values.
func NodesFromFeatures(features map[int]float64) []Node {
	nodes := make([]Node, 0, len(features))
	for idx, v := range features {
		if v != 0 {
			nodes = append(nodes, Node{Index: idx, Value: v})
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Index < nodes[j].Index })
	return nodes
}

// BuildProblem encodes labeled records. Every record must carry a label.
func BuildProblem(records []*dataset.Record) (*Problem, error) {
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "build problem")
	}
	p := &Problem{
		X: make([][]Node, len(records)),
		Y: make([]float64, len(records)),
	}
	for i, r := range records {
		if r.ActualLabel == nil {
			return nil, errors.NewValidationError("records", "record without label", i)
		}
		p.X[i] = NodesFromFeatures(r.Features)
		p.Y[i] = float64(*r.ActualLabel)
	}
	return p, nil
}

// WriteProblem writes p as one line per sample:
//
//	<label> <index>:<value> <index>:<value> ...
//
// Floats use the shortest representation that parses back exactly.
func WriteProblem(w io.Writer, p *Problem) error {
	bw := bufio.NewWriter(w)
	for i, y := range p.Y {
		_, _ = bw.WriteString(strconv.FormatFloat(y, 'g', -1, 64))
		for _, n := range p.X[i] {
			if n.Value == 0 {
				continue
			}
			_ = bw.WriteByte(' ')
			_, _ = bw.WriteString(strconv.Itoa(n.Index))
			_ = bw.WriteByte(':')
			_, _ = bw.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write problem")
		}
	}
	return errors.Wrap(bw.Flush(), "flush problem")
}

// SaveProblem writes p to path.
func SaveProblem(path string, p *Problem) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return WriteProblem(f, p)
}

// ReadProblem parses the format written by WriteProblem.
func ReadProblem(r io.Reader) (*Problem, error) {
	p := &Problem{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		y, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: label", lineNo)
		}
		nodes := make([]Node, 0, len(fields)-1)
		for _, f := range fields[1:] {
			idx, val, ok := strings.Cut(f, ":")
			if !ok {
				return nil, errors.NewValueError("read problem", "line "+strconv.Itoa(lineNo)+": expected index:value, got "+f)
			}
			i, err := strconv.Atoi(idx)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: index", lineNo)
			}
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: value", lineNo)
			}
			if len(nodes) > 0 && nodes[len(nodes)-1].Index >= i {
				return nil, errors.NewValueError("read problem", "line "+strconv.Itoa(lineNo)+": indices not ascending")
			}
			nodes = append(nodes, Node{Index: i, Value: v})
		}
		p.X = append(p.X, nodes)
		p.Y = append(p.Y, y)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan problem")
	}
	return p, nil
}
