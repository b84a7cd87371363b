package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/bayesopt/internal/optimization"
)

// gofAlpha gives the 90% intervals used for the hit rates.
const gofAlpha = 0.1

// GoodnessOfFit compares predictions against the observed values y.
// Predictions with zero degrees of freedom count as misses for both hit
// rates.
func GoodnessOfFit(objective string, y []float64, preds []optimization.PredictedValue, iteration int) optimization.GoodnessOfFitMetrics {
	m := optimization.GoodnessOfFitMetrics{
		ObjectiveName:            objective,
		LastRefitIterationNumber: iteration,
		NumObservations:          len(y),
	}
	n := len(y)
	if n == 0 || len(preds) != n {
		return m
	}

	mean := stat.Mean(y, nil)
	var absErr, sqErr, absDev, sqDev float64
	sampleHits, predictionHits := 0, 0
	for i, p := range preds {
		e := y[i] - p.Value
		absErr += math.Abs(e)
		sqErr += e * e
		dev := y[i] - mean
		absDev += math.Abs(dev)
		sqDev += dev * dev

		if pi, err := p.PredictionInterval(gofAlpha); err == nil && pi.Contains(y[i]) {
			sampleHits++
		}
		if ci, err := p.ConfidenceInterval(gofAlpha); err == nil && ci.Contains(y[i]) {
			predictionHits++
		}
	}

	m.MeanAbsoluteError = absErr / float64(n)
	m.RootMeanSquaredError = math.Sqrt(sqErr / float64(n))
	m.RelativeAbsoluteError = ratio(absErr, absDev)
	m.RelativeSquaredError = ratio(sqErr, sqDev)
	m.CoefficientOfDetermination = 1 - m.RelativeSquaredError
	m.Sample90CIHitRate = float64(sampleHits) / float64(n)
	m.Prediction90CIHitRate = float64(predictionHits) / float64(n)
	return m
}

// ratio is num/den, with a constant-target fit scoring 0 when exact and 1
// otherwise.
func ratio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	if num <= 1e-12 {
		return 0
	}
	return 1
}
