package regression

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// MatrixPool provides a pool of reusable matrices to reduce allocations.
// Matrices are keyed by size, so a Get never returns a matrix of the wrong
// shape.
type MatrixPool struct {
	mu   sync.Mutex
	syms map[int][]*mat.SymDense
	vecs map[int][]*mat.VecDense
}

// NewMatrixPool creates a new MatrixPool
func NewMatrixPool() *MatrixPool {
	return &MatrixPool{
		syms: make(map[int][]*mat.SymDense),
		vecs: make(map[int][]*mat.VecDense),
	}
}

// GetSymDense returns a zeroed n×n symmetric matrix from the pool or creates a new one
func (p *MatrixPool) GetSymDense(n int) *mat.SymDense {
	p.mu.Lock()
	defer p.mu.Unlock()
	if free := p.syms[n]; len(free) > 0 {
		m := free[len(free)-1]
		p.syms[n] = free[:len(free)-1]
		m.Zero()
		return m
	}
	return mat.NewSymDense(n, nil)
}

// PutSymDense returns a symmetric matrix to the pool
func (p *MatrixPool) PutSymDense(m *mat.SymDense) {
	if m == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := m.SymmetricDim()
	p.syms[n] = append(p.syms[n], m)
}

// GetVecDense returns a zeroed vector of length n from the pool or creates a new one
func (p *MatrixPool) GetVecDense(n int) *mat.VecDense {
	p.mu.Lock()
	defer p.mu.Unlock()
	if free := p.vecs[n]; len(free) > 0 {
		v := free[len(free)-1]
		p.vecs[n] = free[:len(free)-1]
		v.Zero()
		return v
	}
	return mat.NewVecDense(n, nil)
}

// PutVecDense returns a vector to the pool
func (p *MatrixPool) PutVecDense(v *mat.VecDense) {
	if v == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vecs[v.Len()] = append(p.vecs[v.Len()], v)
}
