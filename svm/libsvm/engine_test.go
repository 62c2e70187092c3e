package libsvm

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/YuminosukeSato/svmgrid/svm"
)

// twoClusters returns 2n samples: class 0 around (0,0), class 1 around (5,5).
func twoClusters(n int) *svm.Problem {
	p := &svm.Problem{}
	for i := 0; i < n; i++ {
		d := float64(i%3) * 0.1
		p.X = append(p.X, []svm.Node{{Index: 1, Value: d}, {Index: 2, Value: 0.2 - d}})
		p.Y = append(p.Y, 0)
		p.X = append(p.X, []svm.Node{{Index: 1, Value: 5 + d}, {Index: 2, Value: 5 - d}})
		p.Y = append(p.Y, 1)
	}
	return p
}

func config() svm.Config {
	cfg := svm.DefaultConfig()
	cfg.Gamma = 0.5
	return cfg
}

func engine(t *testing.T) *Engine {
	e := New()
	e.TempDir = t.TempDir()
	return e
}

func TestTrainAndPredict(t *testing.T) {
	e := engine(t)
	m, err := e.Train(twoClusters(10), config())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Labels(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("Labels() = %v", got)
	}

	tests := []struct {
		name string
		x    []svm.Node
		want float64
	}{
		{"near origin", []svm.Node{{Index: 1, Value: 0.05}, {Index: 2, Value: 0.1}}, 0},
		{"near cluster 1", []svm.Node{{Index: 1, Value: 4.9}, {Index: 2, Value: 5.1}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, probs, err := e.PredictProbability(m, tt.x)
			if err != nil {
				t.Fatal(err)
			}
			if label != tt.want {
				t.Errorf("label = %v, want %v (probs %v)", label, tt.want, probs)
			}
			if len(probs) != 2 || math.Abs(probs[0]+probs[1]-1) > 1e-9 {
				t.Errorf("probabilities = %v", probs)
			}
		})
	}
}

func TestPredictWithoutProbability(t *testing.T) {
	e := engine(t)
	cfg := config()
	cfg.Probability = false
	m, err := e.Train(twoClusters(5), cfg)
	if err != nil {
		t.Fatal(err)
	}
	label, probs, err := e.PredictProbability(m, []svm.Node{{Index: 1, Value: 5}, {Index: 2, Value: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if label != 1 || probs[1] != 1 || probs[0] != 0 {
		t.Errorf("label = %v, probs = %v", label, probs)
	}
}

func TestCheckParameter(t *testing.T) {
	p := twoClusters(2)
	tests := []struct {
		name   string
		mutate func(*svm.Config)
		want   string
	}{
		{"valid", func(*svm.Config) {}, ""},
		{"linear", func(c *svm.Config) { c.Kernel = svm.KernelLinear }, ""},
		{"negative gamma", func(c *svm.Config) { c.Gamma = -1 }, "gamma < 0"},
		{"zero cost", func(c *svm.Config) { c.Cost = 0 }, "C <= 0"},
		{"zero eps", func(c *svm.Config) { c.Eps = 0 }, "eps <= 0"},
		{"no cache", func(c *svm.Config) { c.CacheSizeMB = 0 }, "cache_size <= 0"},
		{"unknown kernel", func(c *svm.Config) { c.Kernel = "poly" }, "unknown kernel type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config()
			tt.mutate(&cfg)
			if got := New().CheckParameter(p, cfg); got != tt.want {
				t.Errorf("CheckParameter() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := New().CheckParameter(&svm.Problem{}, config()); got != "empty problem" {
		t.Errorf("empty problem: %q", got)
	}
}

func TestTrainRejectsInvalidConfig(t *testing.T) {
	cfg := config()
	cfg.Cost = -1
	if _, err := engine(t).Train(twoClusters(2), cfg); err == nil {
		t.Error("expected error")
	}
}

func TestCrossValidate(t *testing.T) {
	e := engine(t)
	p := twoClusters(10)
	predicted, err := e.CrossValidate(p, config(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(predicted) != p.Len() {
		t.Fatalf("got %d predictions for %d samples", len(predicted), p.Len())
	}
	correct := 0
	for i := range predicted {
		if predicted[i] == p.Y[i] {
			correct++
		}
	}
	if correct != p.Len() {
		t.Errorf("separable clusters: %d/%d correct", correct, p.Len())
	}
}

func TestModelGobRoundTrip(t *testing.T) {
	e := engine(t)
	m, err := e.Train(twoClusters(5), config())
	if err != nil {
		t.Fatal(err)
	}
	type holder struct{ Model svm.Model }
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(holder{Model: m}); err != nil {
		t.Fatal(err)
	}
	var back holder
	if err := gob.NewDecoder(&buf).Decode(&back); err != nil {
		t.Fatal(err)
	}
	if got := back.Model.Labels(); len(got) != 2 {
		t.Fatalf("decoded labels = %v", got)
	}
	x := []svm.Node{{Index: 1, Value: 5}, {Index: 2, Value: 5}}
	l1, _, err := e.PredictProbability(m, x)
	if err != nil {
		t.Fatal(err)
	}
	l2, _, err := e.PredictProbability(back.Model, x)
	if err != nil {
		t.Fatal(err)
	}
	if l1 != l2 {
		t.Errorf("decoded model predicts %v, original %v", l2, l1)
	}
}

func TestParseLabels(t *testing.T) {
	text := []byte("svm_type c_svc\nkernel_type rbf\nnr_class 3\nlabel 2 0 1\nnr_sv 1 1 1\nSV\n")
	labels, err := parseLabels(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 3 || labels[0] != 2 || labels[2] != 1 {
		t.Errorf("parseLabels() = %v", labels)
	}
	if _, err := parseLabels([]byte("svm_type c_svc\n")); err == nil {
		t.Error("expected error without label line")
	}
}
