package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/bayesopt/internal/optimization"
)

// PolynomialRegression is ordinary least squares over a polynomial feature
// expansion of degree 1 or 2, with an optional ridge penalty.
type PolynomialRegression struct {
	degree int
	ridge  float64

	nFeatures int
	beta      *mat.VecDense
	// Cholesky factor of the regularized normal matrix.
	normal *mat.Cholesky
	// Residual variance estimate; zero when there are no residual degrees
	// of freedom.
	s2  float64
	n   int
	dof int
}

// NewPolynomialRegression creates an unfitted polynomial model.
func NewPolynomialRegression(cfg PolynomialConfig) (*PolynomialRegression, error) {
	if cfg.Degree != 1 && cfg.Degree != 2 {
		return nil, optimization.NewErrorf("polynomial_regression: degree must be 1 or 2, got %d", cfg.Degree)
	}
	if cfg.Ridge < 0 {
		return nil, optimization.NewErrorf("polynomial_regression: ridge must be non-negative, got %v", cfg.Ridge)
	}
	return &PolynomialRegression{degree: cfg.Degree, ridge: cfg.Ridge}, nil
}

// NumTerms is the width of the expansion of d raw features.
func (p *PolynomialRegression) NumTerms(d int) int {
	if p.degree == 1 {
		return 1 + d
	}
	return 1 + d + d*(d+1)/2
}

// expand writes the intercept, linear and (for degree 2) all pairwise
// product terms of x.
func (p *PolynomialRegression) expand(x []float64) []float64 {
	out := make([]float64, 0, p.NumTerms(len(x)))
	out = append(out, 1)
	out = append(out, x...)
	if p.degree == 2 {
		for i := range x {
			for j := i; j < len(x); j++ {
				out = append(out, x[i]*x[j])
			}
		}
	}
	return out
}

// Fit solves the ridge-regularized normal equations.
func (p *PolynomialRegression) Fit(X *mat.Dense, y []float64) error {
	const op = "Polynomial.Fit"

	if X == nil {
		return optimization.WrapError(errors.New("input matrix X is nil"), "polynomial_regression: "+op)
	}
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return optimization.WrapError(errors.New("input matrix X must not be empty"), "polynomial_regression: "+op)
	}
	if n != len(y) {
		err := fmt.Errorf("dimension mismatch: X has %d samples but y has length %d", n, len(y))
		return optimization.WrapError(err, "polynomial_regression: "+op)
	}

	terms := p.NumTerms(d)
	design := mat.NewDense(n, terms, nil)
	for i := 0; i < n; i++ {
		design.SetRow(i, p.expand(X.RawRowView(i)))
	}

	var gram mat.Dense
	gram.Mul(design.T(), design)
	A := mat.NewSymDense(terms, nil)
	for i := 0; i < terms; i++ {
		for j := i; j < terms; j++ {
			A.SetSym(i, j, gram.At(i, j))
		}
	}
	ridge := p.ridge
	if terms > n && ridge == 0 {
		// Underdetermined systems need some regularization to factorize.
		ridge = 1e-8
	}
	for i := 0; i < terms; i++ {
		A.SetSym(i, i, A.At(i, i)+ridge)
	}
	chol, _, err := factorize(A)
	if err != nil {
		return optimization.WrapError(err, "polynomial_regression: "+op)
	}

	yv := mat.NewVecDense(n, y)
	var rhs mat.VecDense
	rhs.MulVec(design.T(), yv)
	beta := mat.NewVecDense(terms, nil)
	if err := chol.SolveVecTo(beta, &rhs); err != nil {
		return optimization.WrapError(fmt.Errorf("failed to solve normal equations: %w", err), "polynomial_regression: "+op)
	}

	var fitted mat.VecDense
	fitted.MulVec(design, beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}

	p.nFeatures = d
	p.beta = beta
	p.normal = chol
	p.n = n
	p.dof = n - terms
	if p.dof > 0 {
		p.s2 = rss / float64(p.dof)
	} else {
		p.dof = 0
		p.s2 = 0
	}
	return nil
}

// Predict returns the fitted values with the variance of the fitted mean
// and of a new observation.
func (p *PolynomialRegression) Predict(X *mat.Dense) ([]optimization.PredictedValue, error) {
	const op = "Polynomial.Predict"

	if X == nil {
		return nil, optimization.WrapError(errors.New("input matrix X is nil"), "polynomial_regression: "+op)
	}
	if p.beta == nil {
		return nil, fmt.Errorf("polynomial_regression: %s: %w", op, optimization.ErrModelNotFitted)
	}
	nTest, d := X.Dims()
	if d != p.nFeatures {
		return nil, optimization.WrapError(
			fmt.Errorf("dimension mismatch: model has %d features, got %d", p.nFeatures, d),
			"polynomial_regression: "+op,
		)
	}

	out := make([]optimization.PredictedValue, nTest)
	w := mat.NewVecDense(p.beta.Len(), nil)
	for i := 0; i < nTest; i++ {
		phi := mat.NewVecDense(p.beta.Len(), p.expand(X.RawRowView(i)))
		if err := p.normal.SolveVecTo(w, phi); err != nil {
			return nil, optimization.WrapError(err, "polynomial_regression: "+op)
		}
		leverage := math.Max(mat.Dot(phi, w), 0)
		out[i] = optimization.PredictedValue{
			Value:            mat.Dot(phi, p.beta),
			Variance:         p.s2 * leverage,
			SampleVariance:   p.s2 * (1 + leverage),
			SampleSize:       p.n,
			DegreesOfFreedom: p.dof,
		}
	}
	return out, nil
}

// Coefficients returns a copy of the fitted coefficients, intercept first.
func (p *PolynomialRegression) Coefficients() []float64 {
	if p.beta == nil {
		return nil
	}
	return mat.Col(nil, 0, p.beta)
}
