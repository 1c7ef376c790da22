// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package design assembles the sensing matrix of the fit: one row per
// force component of a primitive-cell atom in a snapshot, one column
// per force-constant parameter, entries built from displacement
// products with combinatorial weights.
package design

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/quasiflux/latfit/constraint"
)

var (
	ErrShape   = errors.New("design: dataset width does not match the cell")
	ErrWorkers = errors.New("design: worker count must be positive")
)

// dropTol discards matrix entries indistinguishable from zero.
const dropTol = 1e-12

// Matrix is a dense column-major matrix with leading dimension Rows,
// the layout the triangularization routines consume directly.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// NewMatrix allocates a zeroed column-major matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Col returns the backing slice of one column.
func (m *Matrix) Col(j int) []float64 {
	return m.Data[j*m.Rows : (j+1)*m.Rows]
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.Data[j*m.Rows+i] }

// Set writes the element at row i, column j.
func (m *Matrix) Set(i, j int, v float64) { m.Data[j*m.Rows+i] = v }

// Mat adapts the matrix to the gonum interface without copying.
func (m *Matrix) Mat() mat.Matrix {
	return mat.NewDense(m.Cols, m.Rows, m.Data).T()
}

// Triplet is one entry of a sparse matrix in coordinate form.
type Triplet struct {
	Row, Col int
	Val      float64
}

// FromRows materializes sparse constraint rows into a dense matrix and
// right-hand side, for handing to the equality-constrained solver.
func FromRows(rows []*constraint.Row, ncols int) (*Matrix, []float64) {
	m := NewMatrix(len(rows), ncols)
	rhs := make([]float64, len(rows))
	for i, r := range rows {
		for _, e := range r.Elems {
			m.Set(i, e.Col, e.Val)
		}
		rhs[i] = r.RHS
	}
	return m, rhs
}
