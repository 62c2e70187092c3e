package svm

import (
	"math/rand/v2"
	"sort"
)

// Fold holds the sample indices of one cross-validation split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold splits samples so that every fold keeps roughly the
// class proportions of the whole set.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a splitter. nSplits below 2 defaults to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, seed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: seed}
}

// Split returns NSplits folds over the labels y. When there are fewer
// samples than splits, the number of folds drops to len(y).
func (s *StratifiedKFold) Split(y []float64) []Fold {
	n := len(y)
	k := s.NSplits
	if k > n {
		k = n
	}
	if k == 0 {
		return nil
	}

	byClass := make(map[float64][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]float64, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	var r *rand.Rand
	if s.Shuffle {
		r = rand.New(rand.NewPCG(s.RandomSeed, s.RandomSeed))
	}

	folds := make([]Fold, k)
	// Classes continue where the previous one stopped so that small
	// classes do not all land in fold 0.
	next := 0
	for _, c := range classes {
		indices := byClass[c]
		if r != nil {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		for _, idx := range indices {
			folds[next].TestIndices = append(folds[next].TestIndices, idx)
			next = (next + 1) % k
		}
	}

	for f := range folds {
		test := make(map[int]bool, len(folds[f].TestIndices))
		for _, idx := range folds[f].TestIndices {
			test[idx] = true
		}
		folds[f].TrainIndices = make([]int, 0, n-len(test))
		for i := 0; i < n; i++ {
			if !test[i] {
				folds[f].TrainIndices = append(folds[f].TrainIndices, i)
			}
		}
		sort.Ints(folds[f].TestIndices)
	}
	return folds
}
