// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elnet

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/quasiflux/latfit/design"
)

// descender holds the reusable state of a coordinate-descent run: the
// design matrix, the right-hand side projection and a lazily filled
// Gram cache. Columns of At A are only computed the first time their
// coefficient moves, which is what makes whole-path sweeps affordable.
type descender struct {
	a    *design.Matrix
	m, n int
	atb  []float64
	gram [][]float64 // At A columns, nil until touched
	diag []float64   // At A diagonal / m
}

func newDescender(a *design.Matrix, b []float64) *descender {
	d := &descender{
		a:    a,
		m:    a.Rows,
		n:    a.Cols,
		atb:  make([]float64, a.Cols),
		gram: make([][]float64, a.Cols),
		diag: make([]float64, a.Cols),
	}
	for j := 0; j < d.n; j++ {
		col := a.Col(j)
		d.atb[j] = floats.Dot(col, b)
		d.diag[j] = floats.Dot(col, col) / float64(d.m)
	}
	return d
}

func (d *descender) gramCol(j int) []float64 {
	if d.gram[j] == nil {
		g := make([]float64, d.n)
		col := d.a.Col(j)
		for k := 0; k < d.n; k++ {
			g[k] = floats.Dot(d.a.Col(k), col)
		}
		d.gram[j] = g
	}
	return d.gram[j]
}

// descend runs cyclic coordinate descent from the warm start in beta.
// Each coefficient minimizes the one-dimensional elastic-net objective
// in closed form: soft-threshold of the partial residual correlation,
// divided by the curvature plus the ridge term. Convergence is the
// root-mean-square coefficient change over a full sweep.
func (d *descender) descend(beta []float64, alpha, l1Ratio, tol float64, maxIter int) (iters int, converged bool) {
	m := float64(d.m)
	thresh := alpha * l1Ratio
	ridge := alpha * (1 - l1Ratio)

	// grad = At(b - A beta) maintained incrementally.
	grad := append([]float64(nil), d.atb...)
	for j, bj := range beta {
		if bj != 0 {
			floats.AddScaled(grad, -bj, d.gramCol(j))
		}
	}

	prev := make([]float64, d.n)
	for iters = 1; iters <= maxIter; iters++ {
		copy(prev, beta)
		for j := 0; j < d.n; j++ {
			if d.diag[j] == 0 {
				continue
			}
			z := grad[j]/m + d.diag[j]*beta[j]
			next := shrink(z, thresh) / (d.diag[j] + ridge)
			if delta := next - beta[j]; delta != 0 {
				beta[j] = next
				floats.AddScaled(grad, -delta, d.gramCol(j))
			}
		}
		sum := 0.0
		for j := range beta {
			t := beta[j] - prev[j]
			sum += t * t
		}
		if math.Sqrt(sum/float64(d.n)) < tol {
			return iters, true
		}
	}
	return maxIter, false
}

// relError is the residual norm of A beta - b relative to the norm of b.
func relError(a *design.Matrix, beta, b []float64) float64 {
	res := append([]float64(nil), b...)
	for j, bj := range beta {
		if bj != 0 {
			floats.AddScaled(res, -bj, a.Col(j))
		}
	}
	nb := floats.Norm(b, 2)
	if nb == 0 {
		return 0
	}
	return floats.Norm(res, 2) / nb
}
