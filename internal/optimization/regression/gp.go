package regression

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/kernels"
)

// Log-space bounds of the hyperparameter search: length scale, signal
// variance and noise variance, all relative to standardized targets.
var (
	logLengthScaleBounds = [2]float64{math.Log(1e-2), math.Log(1e1)}
	logSignalVarBounds   = [2]float64{math.Log(1e-2), math.Log(1e2)}
	logNoiseVarBounds    = [2]float64{math.Log(1e-8), math.Log(1.0)}
)

const maxJitterAttempts = 10

// GaussianProcess implements a Gaussian Process regression model.
// Targets are standardized before fitting and predictions are mapped back.
type GaussianProcess struct {
	cfg GPConfig

	// Kernel function
	kernel kernels.Kernel

	// Noise variance in standardized units
	noiseVar float64

	// Training data
	X *mat.Dense // Input points (n_samples, n_features)

	// Target standardization
	yMean, yStd float64

	// Precomputed values
	alpha *mat.VecDense
	L     *mat.Cholesky

	// Matrix pool for reusing kernel matrices across likelihood evaluations
	matrixPool *MatrixPool

	logger *zap.Logger
}

// NewGaussianProcess creates an unfitted Gaussian process.
func NewGaussianProcess(cfg GPConfig, logger *zap.Logger) (*GaussianProcess, error) {
	kernel, err := kernels.New(cfg.Kernel, cfg.LengthScale, cfg.SignalVar)
	if err != nil {
		return nil, optimization.WrapError(err, "gaussian_process: NewGaussianProcess")
	}
	if cfg.NoiseVariance <= 0 {
		return nil, optimization.NewErrorf("gaussian_process: noise variance must be positive, got %v", cfg.NoiseVariance)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GaussianProcess{
		cfg:        cfg,
		kernel:     kernel,
		noiseVar:   cfg.NoiseVariance,
		matrixPool: NewMatrixPool(),
		logger:     logger.Named("gaussian_process"),
	}, nil
}

// Kernel returns the (possibly re-estimated) kernel.
func (gp *GaussianProcess) Kernel() kernels.Kernel { return gp.kernel }

// NoiseVariance returns the noise variance in standardized target units.
func (gp *GaussianProcess) NoiseVariance() float64 { return gp.noiseVar }

// Fit fits the GP model to the training data
func (gp *GaussianProcess) Fit(X *mat.Dense, y []float64) error {
	const op = "GP.Fit"

	if X == nil || y == nil {
		err := errors.New("input matrices must not be nil")
		return optimization.WrapError(err, "gaussian_process: "+op)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		err := errors.New("input matrix X must not be empty")
		return optimization.WrapError(err, "gaussian_process: "+op)
	}
	if nSamples != len(y) {
		err := fmt.Errorf("dimension mismatch: X has %d samples but y has length %d", nSamples, len(y))
		return optimization.WrapError(err, "gaussian_process: "+op)
	}

	gp.X = mat.DenseCopyOf(X)
	gp.yMean, gp.yStd = stat.MeanStdDev(y, nil)
	if nSamples < 2 || !(gp.yStd > 1e-12) {
		gp.yStd = 1
	}
	ys := make([]float64, nSamples)
	for i, v := range y {
		ys[i] = (v - gp.yMean) / gp.yStd
	}

	if gp.cfg.FitHyperparameters && nSamples >= 3 {
		gp.fitHyperparameters(ys)
	}

	gp.logger.Debug("Fitting GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64s("hyperparameters", gp.kernel.Hyperparameters()),
		zap.Float64("noise_var", gp.noiseVar),
	)

	K := gp.computeKernelMatrix(gp.X, gp.kernel, gp.noiseVar, mat.NewSymDense(nSamples, nil))
	chol, jitter, err := factorize(K)
	if err != nil {
		return optimization.WrapError(err, "gaussian_process: "+op)
	}
	if jitter > 0 {
		gp.logger.Debug("Added jitter to kernel diagonal", zap.Float64("jitter", jitter))
	}
	gp.logConditionNumber(K)

	alpha := mat.NewVecDense(nSamples, nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(nSamples, ys)); err != nil {
		return optimization.WrapError(fmt.Errorf("failed to solve linear system: %w", err), "gaussian_process: "+op)
	}
	gp.alpha = alpha
	gp.L = chol
	return nil
}

// computeKernelMatrix fills K with the kernel matrix of X plus noise on the
// diagonal.
func (gp *GaussianProcess) computeKernelMatrix(X *mat.Dense, kernel kernels.Kernel, noiseVar float64, K *mat.SymDense) *mat.SymDense {
	n, _ := X.Dims()
	for i := 0; i < n; i++ {
		x1 := X.RawRowView(i)
		K.SetSym(i, i, kernel.Eval(x1, x1)+noiseVar)
		for j := i + 1; j < n; j++ {
			K.SetSym(i, j, kernel.Eval(x1, X.RawRowView(j)))
		}
	}
	return K
}

// factorize computes the Cholesky factor of K, escalating diagonal jitter
// until the factorization succeeds. K is modified in place.
func factorize(K *mat.SymDense) (*mat.Cholesky, float64, error) {
	n := K.SymmetricDim()
	var chol mat.Cholesky
	if chol.Factorize(K) {
		return &chol, 0, nil
	}

	scale := mat.Trace(K) / float64(n)
	if !(scale > 0) {
		scale = 1
	}
	jitter := 1e-10 * scale
	added := 0.0
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		for i := 0; i < n; i++ {
			K.SetSym(i, i, K.At(i, i)+jitter-added)
		}
		added = jitter
		if chol.Factorize(K) {
			return &chol, jitter, nil
		}
		jitter *= 10
	}
	return nil, added, fmt.Errorf("kernel matrix is not positive definite after %d jitter attempts", maxJitterAttempts)
}

func (gp *GaussianProcess) logConditionNumber(K *mat.SymDense) {
	ce := gp.logger.Check(zapcore.DebugLevel, "Kernel matrix condition number")
	if ce == nil {
		return
	}
	var svd mat.SVD
	if !svd.Factorize(K, mat.SVDNone) {
		return
	}
	s := svd.Values(nil)
	cond := math.Inf(1)
	if s[len(s)-1] > 0 {
		cond = s[0] / s[len(s)-1]
	}
	ce.Write(
		zap.Float64("condition_number", cond),
		zap.Float64("max_singular_value", s[0]),
		zap.Float64("min_singular_value", s[len(s)-1]),
	)
}

// fitHyperparameters maximizes the log marginal likelihood over length
// scale, signal variance and noise variance with Nelder-Mead in log space.
// It uses at most HyperparameterSamples of the most recent rows.
func (gp *GaussianProcess) fitHyperparameters(ys []float64) {
	X := gp.X
	n, d := X.Dims()
	if limit := gp.cfg.HyperparameterSamples; limit > 0 && n > limit {
		X = mat.DenseCopyOf(X.Slice(n-limit, n, 0, d))
		ys = ys[n-limit:]
		n = limit
	}
	y := mat.NewVecDense(n, ys)
	kernel := gp.kernel.Clone()

	nll := func(theta []float64) float64 {
		params := clampTheta(theta)
		if err := kernel.SetHyperparameters([]float64{math.Exp(params[0]), math.Exp(params[1])}); err != nil {
			return math.MaxFloat64
		}
		K := gp.matrixPool.GetSymDense(n)
		defer gp.matrixPool.PutSymDense(K)
		gp.computeKernelMatrix(X, kernel, math.Exp(params[2]), K)

		var chol mat.Cholesky
		if !chol.Factorize(K) {
			return math.MaxFloat64
		}
		alpha := gp.matrixPool.GetVecDense(n)
		defer gp.matrixPool.PutVecDense(alpha)
		if err := chol.SolveVecTo(alpha, y); err != nil {
			return math.MaxFloat64
		}
		v := 0.5*mat.Dot(y, alpha) + 0.5*chol.LogDet() + 0.5*float64(n)*math.Log(2*math.Pi)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.MaxFloat64
		}
		return v
	}

	hp := gp.kernel.Hyperparameters()
	start := clampTheta([]float64{math.Log(hp[0]), math.Log(hp[1]), math.Log(gp.noiseVar)})
	startValue := nll(start)

	problem := optimize.Problem{Func: nll}
	settings := &optimize.Settings{
		FuncEvaluations: gp.cfg.HyperparameterEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Iterations: 20,
		},
	}
	result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{SimplexSize: 1})
	if result == nil || !(result.F < startValue) {
		if err != nil {
			gp.logger.Debug("Hyperparameter search did not improve the likelihood", zap.Error(err))
		}
		return
	}

	best := clampTheta(result.X)
	if err := gp.kernel.SetHyperparameters([]float64{math.Exp(best[0]), math.Exp(best[1])}); err != nil {
		return
	}
	gp.noiseVar = math.Exp(best[2])
	gp.logger.Debug("Estimated hyperparameters",
		zap.Float64("length_scale", math.Exp(best[0])),
		zap.Float64("signal_var", math.Exp(best[1])),
		zap.Float64("noise_var", gp.noiseVar),
		zap.Float64("neg_log_likelihood", result.F),
		zap.Int("evaluations", result.Stats.FuncEvaluations),
	)
}

// clampTheta returns a copy of theta clamped into the search bounds.
func clampTheta(theta []float64) []float64 {
	out := make([]float64, 3)
	for i, b := range [][2]float64{logLengthScaleBounds, logSignalVarBounds, logNoiseVarBounds} {
		v := theta[i]
		if math.IsNaN(v) {
			v = b[0]
		}
		out[i] = math.Min(math.Max(v, b[0]), b[1])
	}
	return out
}

// Predict returns the posterior mean and variances at the given test points.
// Variance is the variance of the latent mean; SampleVariance adds the
// observation noise.
func (gp *GaussianProcess) Predict(X *mat.Dense) ([]optimization.PredictedValue, error) {
	const op = "GP.Predict"

	if X == nil {
		return nil, optimization.WrapError(errors.New("input matrix X is nil"), "gaussian_process: "+op)
	}
	if gp.X == nil || gp.alpha == nil {
		return nil, fmt.Errorf("gaussian_process: %s: %w", op, optimization.ErrModelNotFitted)
	}

	nTest, nFeatures := X.Dims()
	nTrain, trainFeatures := gp.X.Dims()
	if nFeatures != trainFeatures {
		return nil, optimization.WrapError(
			fmt.Errorf("dimension mismatch: model has %d features, got %d", trainFeatures, nFeatures),
			"gaussian_process: "+op,
		)
	}

	scale := gp.yStd * gp.yStd
	out := make([]optimization.PredictedValue, nTest)
	kStar := mat.NewVecDense(nTrain, nil)
	w := mat.NewVecDense(nTrain, nil)
	for i := 0; i < nTest; i++ {
		xStar := X.RawRowView(i)
		for j := 0; j < nTrain; j++ {
			kStar.SetVec(j, gp.kernel.Eval(xStar, gp.X.RawRowView(j)))
		}
		mean := mat.Dot(kStar, gp.alpha)

		if err := gp.L.SolveVecTo(w, kStar); err != nil {
			return nil, optimization.WrapError(fmt.Errorf("failed to solve linear system: %w", err), "gaussian_process: "+op)
		}
		latent := gp.kernel.Eval(xStar, xStar) - mat.Dot(kStar, w)
		if latent < 0 {
			latent = 0
		}

		out[i] = optimization.PredictedValue{
			Value:            gp.yMean + gp.yStd*mean,
			Variance:         scale * latent,
			SampleVariance:   scale * (latent + gp.noiseVar),
			SampleSize:       nTrain,
			DegreesOfFreedom: nTrain - 1,
		}
	}
	return out, nil
}
