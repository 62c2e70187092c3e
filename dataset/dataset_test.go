package dataset

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/svmgrid/cache"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
)

func ottoLayout() Layout {
	return Layout{
		Delimiter:     ",",
		SkipFirstLine: true,
		IDIndex:       0,
		LabelIndex:    4,
		LabelRegex:    "Class_",
		LabelOffset:   IntPtr(-1),
		FeatureStart:  1,
		FeatureEnd:    3,
	}
}

const ottoTrain = `id,feat_1,feat_2,feat_3,target
1,0,3,1.5,Class_1
2,2,0,0,Class_2
3,1,1,1,Class_1
`

func TestNewRecordDropsZeros(t *testing.T) {
	r := NewRecord(Int64Ptr(7), map[int]float64{1: 0, 2: 3, 5: -1}, nil)
	if len(r.Features) != 2 {
		t.Fatalf("expected 2 features, got %v", r.Features)
	}
	if _, ok := r.Features[1]; ok {
		t.Error("zero feature was kept")
	}
	got := r.FeatureIndices()
	if len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Errorf("FeatureIndices() = %v, want [2 5]", got)
	}
	if r.HasLabel() || r.Evaluated() {
		t.Error("fresh unlabeled record reports label or prediction")
	}
}

func TestRecordSetPrediction(t *testing.T) {
	r := NewRecord(nil, nil, IntPtr(1))
	r.SetPrediction(0, map[int]float64{2: 0.1, 0: 0.6, 1: 0.3})
	if !r.Evaluated() || *r.PredictedLabel != 0 {
		t.Fatalf("prediction not stored: %v", r)
	}
	labels := r.SortedLabels()
	want := []int{0, 1, 2}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("SortedLabels() = %v, want %v", labels, want)
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Layout)
		wantErr bool
	}{
		{"valid", func(*Layout) {}, false},
		{"empty delimiter", func(l *Layout) { l.Delimiter = "" }, true},
		{"reversed range", func(l *Layout) { l.FeatureStart, l.FeatureEnd = 5, 2 }, true},
		{"negative id", func(l *Layout) { l.IDIndex = -1 }, true},
		{"bad regex", func(l *Layout) { l.LabelRegex = "([" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ottoLayout()
			tt.mutate(&l)
			if err := l.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLayoutHeaderPrefix(t *testing.T) {
	l := ottoLayout()
	if l.HeaderPrefix() != "Class_" {
		t.Errorf("fallback prefix = %q", l.HeaderPrefix())
	}
	l.LabelPrefix = "c"
	if l.HeaderPrefix() != "c" {
		t.Errorf("explicit prefix = %q", l.HeaderPrefix())
	}
}

func TestReadRecords(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	records, err := ReadRecords(strings.NewReader(ottoTrain), ottoLayout(), true, logger)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.ID == nil || *first.ID != 1 {
		t.Errorf("id = %v", first.ID)
	}
	if first.ActualLabel == nil || *first.ActualLabel != 0 {
		t.Errorf("label = %v, want 0 after offset", first.ActualLabel)
	}
	if _, ok := first.Features[1]; ok {
		t.Error("zero feature column 1 should be absent")
	}
	if first.Features[2] != 3 || first.Features[3] != 1.5 {
		t.Errorf("features = %v", first.Features)
	}
	if *records[1].ActualLabel != 1 {
		t.Errorf("second label = %d, want 1", *records[1].ActualLabel)
	}
	if !logger.ContainsMessage("Loaded records") {
		t.Error("expected load summary to be logged")
	}
}

func TestReadRecordsWithoutLabels(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	records, err := ReadRecords(strings.NewReader(ottoTrain), ottoLayout(), false, logger)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		if r.HasLabel() {
			t.Fatalf("label read for test file: %v", r)
		}
	}
}

func TestReadRecordsMalformedFields(t *testing.T) {
	input := "header\n" +
		"x,1,2,3,Class_1\n" + // bad id
		"2,1,oops,3,Class_2\n" + // bad feature
		"3,1,2,3,Class_?\n" + // bad label
		"4,1\n" // short line
	logger, _ := log.NewTestLogger(log.LevelDebug)
	records, err := ReadRecords(strings.NewReader(input), ottoLayout(), true, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records (short line skipped), got %d", len(records))
	}
	if records[0].ID != nil {
		t.Error("malformed id should be absent")
	}
	if _, ok := records[1].Features[2]; ok {
		t.Error("malformed feature should be absent")
	}
	if records[1].Features[3] != 3 {
		t.Error("well-formed features of the same line should survive")
	}
	if records[2].ActualLabel != nil {
		t.Error("malformed label should be absent")
	}
	for _, msg := range []string{"Could not parse id", "Could not parse feature", "Could not parse label", "Skipping short line"} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("missing log %q", msg)
		}
	}
}

func TestReadRecordsFileGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.csv.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(ottoTrain)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	logger, _ := log.NewTestLogger(log.LevelInfo)
	records, err := ReadRecordsFile(path, ottoLayout(), true, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestWritePredictions(t *testing.T) {
	a := NewRecord(Int64Ptr(1), nil, nil)
	a.SetPrediction(1, map[int]float64{0: 0.25, 1: 0.75})
	b := NewRecord(nil, nil, nil)
	b.SetPrediction(0, map[int]float64{0: 0.5, 1: 0.5})

	var buf bytes.Buffer
	if err := WritePredictions(&buf, []*Record{a, b}, ottoLayout()); err != nil {
		t.Fatal(err)
	}
	want := "id,Class_1,Class_2\n1,0.25,0.75\n,0.5,0.5\n"
	if buf.String() != want {
		t.Errorf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWritePredictionsRequiresEvaluation(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePredictions(&buf, nil, ottoLayout()); err == nil {
		t.Error("expected error for empty record list")
	}
	if err := WritePredictions(&buf, []*Record{NewRecord(nil, nil, nil)}, ottoLayout()); err == nil {
		t.Error("expected error for unevaluated records")
	}
}

func TestDatasetLazyLoadAndCache(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "train.csv"), []byte(ottoTrain), 0o600); err != nil {
		t.Fatal(err)
	}
	logger, _ := log.NewTestLogger(log.LevelDebug)
	store := cache.NewFileStore(dir)
	ds := New(dir, "train.csv", "", ottoLayout(), WithCache(store), WithLogger(logger))

	items, err := ds.TrainItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if _, err := os.Stat(filepath.Join(dir, "train.csv.ser")); err != nil {
		t.Fatalf("parsed records were not cached: %v", err)
	}

	// A second dataset over the same directory must use the cache even
	// when the source file is gone.
	if err := os.Remove(filepath.Join(dir, "train.csv")); err != nil {
		t.Fatal(err)
	}
	again := New(dir, "train.csv", "", ottoLayout(), WithCache(store), WithLogger(logger))
	cached, err := again.TrainItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 3 || *cached[0].ActualLabel != 0 {
		t.Errorf("cached items differ: %v", cached)
	}
	if !logger.ContainsMessage("Loaded records from cache") {
		t.Error("expected cache hit to be logged")
	}

	test, err := again.TestItems()
	if err != nil || test != nil {
		t.Errorf("no test file: got %v, %v", test, err)
	}
	again.SetTestItems(cached)
	test, _ = again.TestItems()
	if len(test) != 3 {
		t.Error("SetTestItems was not applied")
	}
}

func TestClassCounts(t *testing.T) {
	records := []*Record{
		NewRecord(nil, nil, IntPtr(0)),
		NewRecord(nil, nil, IntPtr(1)),
		NewRecord(nil, nil, IntPtr(1)),
		NewRecord(nil, nil, IntPtr(1)),
		NewRecord(nil, nil, IntPtr(2)),
		NewRecord(nil, nil, nil),
	}
	counts := ClassCounts(records)
	if len(counts) != 3 {
		t.Fatalf("expected 3 classes, got %v", counts)
	}
	if counts[0].Label != 0 || counts[0].Count != 1 || counts[0].Weight != 3 {
		t.Errorf("class 0 = %+v", counts[0])
	}
	if counts[1].Weight != 1 {
		t.Errorf("majority class weight = %v, want 1", counts[1].Weight)
	}
	weights := OptimalClassWeights(records)
	if weights[2] != 3 {
		t.Errorf("weights = %v", weights)
	}

	logger, _ := log.NewTestLogger(log.LevelInfo)
	LogStats(logger, records)
	if logger.CountMessage("Class distribution") != 3 {
		t.Error("expected one distribution line per class")
	}
}
