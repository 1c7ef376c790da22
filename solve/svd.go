// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/quasiflux/latfit/design"
)

// SVD computes the minimum-norm least-squares solution of Ax ~ b by
// singular value decomposition. Singular values below
// max(m,n)*eps*smax are treated as zero; a resulting rank below n is
// reported through the status without failing the solve.
func SVD(a *design.Matrix, b []float64) (*Result, error) {
	m, n := a.Rows, a.Cols
	if len(b) != m {
		return nil, ErrDimension
	}

	var svd mat.SVD
	if !svd.Factorize(a.Mat(), mat.SVDThin) {
		return nil, ErrFactorize
	}
	sv := svd.Values(nil)

	tol := float64(max(m, n)) * machEps * sv[0]
	rank := 0
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	bv := mat.NewVecDense(m, b)

	x := make([]float64, n)
	for j := 0; j < rank; j++ {
		cj := mat.Dot(u.ColView(j), bv) / sv[j]
		for i := 0; i < n; i++ {
			x[i] += cj * v.At(i, j)
		}
	}

	res := append([]float64(nil), b...)
	for j := 0; j < n; j++ {
		floats.AddScaled(res, -x[j], a.Col(j))
	}
	resNorm := floats.Norm(res, 2)

	status := Solved
	if rank < n {
		status = RankDeficient
	}
	return &Result{
		Params:       x,
		Rank:         rank,
		ResidualNorm: resNorm,
		FitError:     fitErrorPercent(resNorm, b),
		Status:       status,
	}, nil
}
