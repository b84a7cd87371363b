package regression

import (
	"fmt"
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func benchData(nSamples, nFeatures int, seed int64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(nSamples, nFeatures, nil)
	y := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, rng.Float64())
		}
		y[i] = rng.NormFloat64()
	}
	return X, y
}

func benchGP(b *testing.B, kernel string, fitHyperparameters bool) *GaussianProcess {
	b.Helper()
	cfg := DefaultConfig().GaussianProcess
	cfg.Kernel = kernel
	cfg.FitHyperparameters = fitHyperparameters
	gp, err := NewGaussianProcess(cfg, nil)
	require.NoError(b, err)
	return gp
}

// BenchmarkGPFit measures fitting with and without the likelihood search
func BenchmarkGPFit(b *testing.B) {
	X, y := benchData(100, 5, 42)
	for _, fit := range []bool{false, true} {
		b.Run(fmt.Sprintf("FitHyperparameters=%v", fit), func(b *testing.B) {
			gp := benchGP(b, "matern52", fit)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = gp.Fit(X, y)
			}
		})
	}
}

// BenchmarkGPFitScaling measures how fitting scales with the training set
func BenchmarkGPFitScaling(b *testing.B) {
	for _, n := range []int{50, 100, 250, 500} {
		b.Run(fmt.Sprintf("Samples=%d", n), func(b *testing.B) {
			X, y := benchData(n, 5, 42)
			gp := benchGP(b, "matern52", false)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = gp.Fit(X, y)
			}
		})
	}
}

// BenchmarkKernelComparison compares fitting cost across kernels
func BenchmarkKernelComparison(b *testing.B) {
	X, y := benchData(250, 5, 42)
	for _, kernel := range []string{"rbf", "matern32", "matern52"} {
		b.Run(kernel, func(b *testing.B) {
			gp := benchGP(b, kernel, false)
			// Warm-up
			if err := gp.Fit(X, y); err != nil {
				b.Fatalf("Failed to fit GP: %v", err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = gp.Fit(X, y)
			}
		})
	}
}

// BenchmarkGPPredictConcurrent measures prediction under concurrent access
func BenchmarkGPPredictConcurrent(b *testing.B) {
	X, y := benchData(250, 5, 42)
	XTest, _ := benchData(100, 5, 7)

	tests := []struct {
		name        string
		concurrency int
	}{
		{"Sequential", 1},
		{"Concurrent", runtime.NumCPU()},
	}
	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			gp := benchGP(b, "matern52", false)
			if err := gp.Fit(X, y); err != nil {
				b.Fatalf("Failed to fit GP: %v", err)
			}
			b.SetParallelism(tt.concurrency)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					_, _ = gp.Predict(XTest)
				}
			})
		})
	}
}

// BenchmarkPolynomialFit measures the ridge regression fit
func BenchmarkPolynomialFit(b *testing.B) {
	X, y := benchData(500, 5, 42)
	p, err := NewPolynomialRegression(DefaultConfig().PolynomialRegression)
	require.NoError(b, err)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Fit(X, y)
	}
}
