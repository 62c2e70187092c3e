package svm

import "fmt"

// KernelType selects the engine's kernel function.
type KernelType string

// Supported kernels. The reference engine implements RBF only.
const (
	KernelRBF    KernelType = "rbf"
	KernelLinear KernelType = "linear"
)

// GammaAuto defers the kernel bandwidth to 1/NumFeatures of the problem
// being trained.
const GammaAuto = 0.0

// Config holds the engine hyperparameters.
type Config struct {
	Kernel      KernelType
	Cost        float64
	Gamma       float64
	Probability bool
	CacheSizeMB float64
	Eps         float64
	// ClassWeights multiplies Cost per label. Missing labels weigh 1.
	ClassWeights map[int]float64
}

// DefaultConfig returns an RBF configuration with C=1 and gamma deferred.
func DefaultConfig() Config {
	return Config{
		Kernel:      KernelRBF,
		Cost:        1,
		Gamma:       GammaAuto,
		Probability: true,
		CacheSizeMB: 2000,
		Eps:         1e-3,
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	if c.ClassWeights != nil {
		out.ClassWeights = make(map[int]float64, len(c.ClassWeights))
		for k, v := range c.ClassWeights {
			out.ClassWeights[k] = v
		}
	}
	return out
}

// ClassWeight returns the weight of label, 1 when unset.
func (c Config) ClassWeight(label int) float64 {
	if w, ok := c.ClassWeights[label]; ok {
		return w
	}
	return 1
}

func (c Config) String() string {
	return fmt.Sprintf("Config{kernel=%s, C=%g, gamma=%g, probability=%t, eps=%g, weights=%v}",
		c.Kernel, c.Cost, c.Gamma, c.Probability, c.Eps, c.ClassWeights)
}
