// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"

	"github.com/quasiflux/latfit/design"
)

// Constrained solves min ||Ax - b|| subject to Cx = d.
//
// The constraint block is triangularized from the right by Householder
// reflections that are applied to A as well; the determined part of the
// solution follows from the triangular system and the remainder from a
// rank-revealing least-squares solve of the reduced block. Before
// factorizing, the pseudo-rank of the stacked [C; A] system is checked:
// a deficient stack cannot determine every parameter, but the solve
// still proceeds and the deficiency is reported through the status.
//
// Both matrices are overwritten by their factorizations.
func Constrained(a *design.Matrix, b []float64, c *design.Matrix, d []float64) (*Result, error) {
	m, n := a.Rows, a.Cols
	mc := c.Rows
	if c.Cols != n || len(b) != m || len(d) != mc {
		return nil, ErrDimension
	}
	if mc > n {
		return &Result{Status: IncompatibleConstraint}, ErrIncompatible
	}

	status := Solved
	if stackedRank(a, c) < n {
		status = RankDeficient
	}

	e, le := a.Data, m
	cc, lc := c.Data, mc
	x := make([]float64, n)

	// C K = [C1 0] with the same reflections applied to A.
	up := make([]float64, mc)
	for i := 0; i < mc; i++ {
		j := min(i+1, lc-1)
		up[i] = house(i, i+1, n, cc[i:], lc)
		applyHouse(i, i+1, n, cc[i:], lc, up[i], cc[j:], lc, 1, mc-i-1)
		applyHouse(i, i+1, n, cc[i:], lc, up[i], e, le, 1, m)
	}

	// Triangular solve C1 y1 = d.
	for i := 0; i < mc; i++ {
		diag := cc[i+lc*i]
		if math.Abs(diag) < machEps {
			return &Result{Status: SingularConstraint}, ErrSingularCons
		}
		dot := blas64.Dot(
			blas64.Vector{N: i, Inc: lc, Data: cc[i:]},
			blas64.Vector{N: i, Inc: 1, Data: x},
		)
		x[i] = (d[i] - dot) / diag
	}

	var resNorm float64
	rank := n
	if l := n - mc; l > 0 {
		// Reduce to the free least squares A2 y2 ~ b - A1 y1.
		wf := make([]float64, m)
		for i := 0; i < m; i++ {
			dot := blas64.Dot(
				blas64.Vector{N: mc, Inc: le, Data: e[i:]},
				blas64.Vector{N: mc, Inc: 1, Data: x},
			)
			wf[i] = b[i] - dot
		}
		we := make([]float64, m*l)
		for j := 0; j < l; j++ {
			copy(we[j*m:(j+1)*m], e[(mc+j)*le:(mc+j)*le+m])
		}
		var hrank int
		hrank, resNorm = hfti(we, m, m, l, wf, math.Sqrt(machEps))
		copy(x[mc:], wf[:l])
		rank = mc + hrank
		if hrank < l {
			// The stacked pre-check passed, so this is borderline
			// conditioning rather than structural deficiency.
			status = RankDeficient
		}
	}

	// x = K [y1 y2].
	for i := mc - 1; i >= 0; i-- {
		applyHouse(i, i+1, n, cc[i:], lc, up[i], x, 1, 1, 1)
	}

	return &Result{
		Params:       x,
		Rank:         rank,
		ResidualNorm: resNorm,
		FitError:     fitErrorPercent(resNorm, b),
		Status:       status,
	}, nil
}

// stackedRank computes the pseudo-rank of [C; A] stacked column-major.
func stackedRank(a, c *design.Matrix) int {
	m, mc, n := a.Rows, c.Rows, a.Cols
	stack := make([]float64, (m+mc)*n)
	ld := m + mc
	for j := 0; j < n; j++ {
		copy(stack[j*ld:j*ld+mc], c.Col(j))
		copy(stack[j*ld+mc:(j+1)*ld], a.Col(j))
	}
	return PseudoRank(stack, ld, m+mc, n)
}
