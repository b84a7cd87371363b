package optimization

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// PredictedValue holds the sufficient statistics a surrogate model reports
// for one query row.
type PredictedValue struct {
	// Value is the predicted mean.
	Value float64 `json:"predicted_value" msgpack:"predicted_value"`
	// Variance is the variance of the predicted mean.
	Variance float64 `json:"predicted_value_variance" msgpack:"predicted_value_variance"`
	// SampleVariance is the variance of a new observation at the row; it
	// adds observation noise to Variance and is never smaller.
	SampleVariance float64 `json:"sample_variance" msgpack:"sample_variance"`
	// SampleSize is the number of observations backing the prediction.
	SampleSize int `json:"sample_size" msgpack:"sample_size"`
	// DegreesOfFreedom gates confidence interval construction; zero means
	// the uncertainty cannot be bounded.
	DegreesOfFreedom int `json:"degrees_of_freedom" msgpack:"degrees_of_freedom"`
}

// Interval is a closed two-sided interval.
type Interval struct {
	Lower float64 `json:"lower" msgpack:"lower"`
	Upper float64 `json:"upper" msgpack:"upper"`
}

// Contains reports whether x lies in the interval.
func (i Interval) Contains(x float64) bool {
	return x >= i.Lower && x <= i.Upper
}

// ConfidenceInterval bounds the predicted mean at significance alpha.
func (p PredictedValue) ConfidenceInterval(alpha float64) (Interval, error) {
	return p.interval(alpha, p.Variance)
}

// PredictionInterval bounds a new observation at significance alpha.
func (p PredictedValue) PredictionInterval(alpha float64) (Interval, error) {
	return p.interval(alpha, p.SampleVariance)
}

func (p PredictedValue) interval(alpha, variance float64) (Interval, error) {
	const op = "PredictedValue.Interval"
	if !(alpha > 0 && alpha < 1) {
		return Interval{}, WrapErrorf(ErrInvalidArgument, "alpha must be in (0, 1), got %v", alpha).WithOperation(op)
	}
	if p.DegreesOfFreedom <= 0 {
		return Interval{}, WrapError(ErrInsufficientDegreesOfFreedom, "cannot bound a prediction with zero degrees of freedom").WithOperation(op)
	}
	half := TQuantile(1-alpha/2, p.DegreesOfFreedom) * math.Sqrt(math.Max(variance, 0))
	return Interval{Lower: p.Value - half, Upper: p.Value + half}, nil
}

// TQuantile returns the p-quantile of the standard Student-t distribution.
func TQuantile(p float64, dof int) float64 {
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	return t.Quantile(p)
}

// Prediction is the output of a surrogate model for one objective: one
// PredictedValue per query row.
type Prediction struct {
	Objective string           `json:"objective" msgpack:"objective"`
	Values    []PredictedValue `json:"values" msgpack:"values"`
}

// MultiObjectivePrediction holds one Prediction per objective, in the order
// of the problem's objectives.
type MultiObjectivePrediction []*Prediction

// ByObjective returns the prediction for the named objective.
func (m MultiObjectivePrediction) ByObjective(name string) (*Prediction, bool) {
	for _, p := range m {
		if p.Objective == name {
			return p, true
		}
	}
	return nil, false
}

// GoodnessOfFitMetrics summarizes how well a surrogate model fits the data
// it was last refit on.
type GoodnessOfFitMetrics struct {
	ObjectiveName              string  `json:"objective_name" msgpack:"objective_name"`
	LastRefitIterationNumber   int     `json:"last_refit_iteration_number" msgpack:"last_refit_iteration_number"`
	NumObservations            int     `json:"num_observations" msgpack:"num_observations"`
	RelativeAbsoluteError      float64 `json:"relative_absolute_error" msgpack:"relative_absolute_error"`
	RelativeSquaredError       float64 `json:"relative_squared_error" msgpack:"relative_squared_error"`
	CoefficientOfDetermination float64 `json:"coefficient_of_determination" msgpack:"coefficient_of_determination"`
	MeanAbsoluteError          float64 `json:"mean_absolute_error" msgpack:"mean_absolute_error"`
	RootMeanSquaredError       float64 `json:"root_mean_squared_error" msgpack:"root_mean_squared_error"`
	Sample90CIHitRate          float64 `json:"sample_90_ci_hit_rate" msgpack:"sample_90_ci_hit_rate"`
	Prediction90CIHitRate      float64 `json:"prediction_90_ci_hit_rate" msgpack:"prediction_90_ci_hit_rate"`
}
