package kernels

import (
	"fmt"
	"math"
	"sort"
)

// Kernel represents a covariance function for Gaussian Processes
type Kernel interface {
	// Name is the registry tag of the kernel family.
	Name() string

	// Eval computes the kernel value between two points x1 and x2
	Eval(x1, x2 []float64) float64

	// Hyperparameters returns the current hyperparameters: length scale
	// followed by signal variance.
	Hyperparameters() []float64

	// SetHyperparameters sets the kernel's hyperparameters
	SetHyperparameters(params []float64) error

	// Clone returns an independent copy.
	Clone() Kernel
}

// Factory builds a kernel from its hyperparameters.
type Factory func(lengthScale, signalVar float64) Kernel

var registry = map[string]Factory{
	"rbf":      func(l, s float64) Kernel { return NewRBFKernel(l, s) },
	"matern32": func(l, s float64) Kernel { return NewMatern32Kernel(l, s) },
	"matern52": func(l, s float64) Kernel { return NewMatern52Kernel(l, s) },
}

// New builds the kernel registered under name.
func New(name string, lengthScale, signalVar float64) (Kernel, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown kernel %q, expected one of %v", name, Names())
	}
	if lengthScale <= 0 || signalVar <= 0 {
		return nil, fmt.Errorf("hyperparameters must be positive, got [%v %v]", lengthScale, signalVar)
	}
	return f(lengthScale, signalVar), nil
}

// Names lists the registered kernel tags.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// stationary holds the hyperparameters shared by distance-based kernels.
type stationary struct {
	// Length scale parameter (larger = smoother function)
	lengthScale float64
	// Signal variance (controls the amplitude of the function)
	signalVar float64
}

func newStationary(lengthScale, signalVar float64) stationary {
	if lengthScale <= 0 {
		panic(fmt.Sprintf("lengthScale must be positive, got %v", lengthScale))
	}
	if signalVar <= 0 {
		panic(fmt.Sprintf("signalVar must be positive, got %v", signalVar))
	}
	return stationary{lengthScale: lengthScale, signalVar: signalVar}
}

// Hyperparameters returns the current hyperparameters
func (k *stationary) Hyperparameters() []float64 {
	return []float64{k.lengthScale, k.signalVar}
}

// SetHyperparameters sets the kernel's hyperparameters
func (k *stationary) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(params))
	}
	if params[0] <= 0 || params[1] <= 0 {
		return fmt.Errorf("hyperparameters must be positive, got %v", params)
	}
	k.lengthScale = params[0]
	k.signalVar = params[1]
	return nil
}

func (k *stationary) scaledDistance(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq) / k.lengthScale
}

// RBFKernel implements the Radial Basis Function (squared exponential) kernel
type RBFKernel struct{ stationary }

// NewRBFKernel creates a new RBF kernel with the given parameters
func NewRBFKernel(lengthScale, signalVar float64) *RBFKernel {
	return &RBFKernel{newStationary(lengthScale, signalVar)}
}

func (k *RBFKernel) Name() string { return "rbf" }

// Eval computes the RBF kernel value between x1 and x2
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	r := k.scaledDistance(x1, x2)
	return k.signalVar * math.Exp(-0.5*r*r)
}

func (k *RBFKernel) Clone() Kernel { c := *k; return &c }

// Matern32Kernel implements the Matérn 3/2 kernel
type Matern32Kernel struct{ stationary }

// NewMatern32Kernel creates a new Matérn 3/2 kernel with the given parameters
func NewMatern32Kernel(lengthScale, signalVar float64) *Matern32Kernel {
	return &Matern32Kernel{newStationary(lengthScale, signalVar)}
}

func (k *Matern32Kernel) Name() string { return "matern32" }

// Eval computes the Matérn 3/2 kernel value between x1 and x2
func (k *Matern32Kernel) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(3) * k.scaledDistance(x1, x2)
	return k.signalVar * (1 + r) * math.Exp(-r)
}

func (k *Matern32Kernel) Clone() Kernel { c := *k; return &c }

// Matern52Kernel implements the Matérn 5/2 kernel
type Matern52Kernel struct{ stationary }

// NewMatern52Kernel creates a new Matérn 5/2 kernel with the given parameters
func NewMatern52Kernel(lengthScale, signalVar float64) *Matern52Kernel {
	return &Matern52Kernel{newStationary(lengthScale, signalVar)}
}

func (k *Matern52Kernel) Name() string { return "matern52" }

// Eval computes the Matérn 5/2 kernel value between x1 and x2
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	r := k.scaledDistance(x1, x2)
	polyTerm := 1.0 + math.Sqrt(5)*r + (5.0/3.0)*r*r
	expTerm := math.Exp(-math.Sqrt(5) * r)
	return k.signalVar * polyTerm * expTerm
}

func (k *Matern52Kernel) Clone() Kernel { c := *k; return &c }
