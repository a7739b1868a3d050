// Package solver is a compact sparse-MNA DC solver for the Vth
// characterization fixture. It exists so device characterization still works
// on machines with no external SPICE binary installed.
package solver

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// Matrix wraps the sparse LU solver for real-valued modified nodal analysis.
// Rows/columns are 1-based; index 0 is ground and is never stamped.
type Matrix struct {
	Size     int
	mat      *sparse.Matrix
	rhs      []float64
	solution []float64
}

func NewMatrix(size int) (*Matrix, error) {
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		Translate:      true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	return &Matrix{
		Size:     size,
		mat:      mat,
		rhs:      make([]float64, size+1), // 1-based
		solution: make([]float64, size+1),
	}, nil
}

// SetupElements touches every element once so the sparse structure is fully
// allocated before the first factorization.
func (m *Matrix) SetupElements() {
	for i := 1; i <= m.Size; i++ {
		for j := 1; j <= m.Size; j++ {
			m.mat.GetElement(int64(i), int64(j))
		}
	}
}

func (m *Matrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 {
		return
	}
	m.mat.GetElement(int64(i), int64(j)).Real += value
}

func (m *Matrix) AddRHS(i int, value float64) {
	if i <= 0 {
		return
	}
	m.rhs[i] += value
}

// LoadGmin adds a small conductance on every diagonal to aid convergence.
func (m *Matrix) LoadGmin(gmin float64) {
	for i := 1; i <= m.Size; i++ {
		if diag := m.mat.Diags[i]; diag != nil {
			diag.Real += gmin
		}
	}
}

func (m *Matrix) Clear() {
	m.mat.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

func (m *Matrix) Solve() error {
	if err := m.mat.Factor(); err != nil {
		return fmt.Errorf("matrix factorization failed: %v", err)
	}
	sol, err := m.mat.Solve(m.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %v", err)
	}
	m.solution = sol
	return nil
}

// Solution returns the 1-based solution vector from the last Solve.
func (m *Matrix) Solution() []float64 {
	return m.solution
}

func (m *Matrix) Destroy() {
	if m.mat != nil {
		m.mat.Destroy()
	}
}
