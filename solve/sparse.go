// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/quasiflux/latfit/design"
)

// Sparse solves min ||Ax - b|| for A given in coordinate form by
// factorizing the normal equations: AtA x = At b with a Cholesky
// decomposition. The normal matrix is n x n and dense even when A is
// sparse, which keeps memory bounded by the parameter count rather than
// by the data.
func Sparse(trips []design.Triplet, m, n int, b []float64) (*Result, error) {
	if len(b) != m {
		return nil, ErrDimension
	}

	sorted := append([]design.Triplet(nil), trips...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	ata := mat.NewSymDense(n, nil)
	atb := make([]float64, n)
	for lo := 0; lo < len(sorted); {
		hi := lo
		for hi < len(sorted) && sorted[hi].Row == sorted[lo].Row {
			hi++
		}
		row := sorted[lo].Row
		for i := lo; i < hi; i++ {
			ti := sorted[i]
			atb[ti.Col] += ti.Val * b[row]
			for j := i; j < hi; j++ {
				tj := sorted[j]
				ata.SetSym(ti.Col, tj.Col, ata.At(ti.Col, tj.Col)+ti.Val*tj.Val)
			}
		}
		lo = hi
	}

	var chol mat.Cholesky
	if !chol.Factorize(ata) {
		return &Result{Status: NotPositiveDefinite}, ErrNotPosDef
	}
	var xv mat.VecDense
	if err := chol.SolveVecTo(&xv, mat.NewVecDense(n, atb)); err != nil {
		return &Result{Status: NotPositiveDefinite}, err
	}
	x := make([]float64, n)
	copy(x, xv.RawVector().Data)

	res := append([]float64(nil), b...)
	for _, t := range trips {
		res[t.Row] -= t.Val * x[t.Col]
	}
	resNorm := 0.0
	for _, r := range res {
		resNorm += r * r
	}
	resNorm = math.Sqrt(resNorm)

	return &Result{
		Params:       x,
		Rank:         n,
		ResidualNorm: resNorm,
		FitError:     fitErrorPercent(resNorm, b),
		Status:       Solved,
	}, nil
}
