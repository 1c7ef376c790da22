// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"errors"
	"math"
	"testing"

	"github.com/quasiflux/latfit/design"
)

func almostEqual[T float64 | []float64](want, got T, tol float64) bool {
	switch w := any(want).(type) {
	case float64:
		return math.Abs(w-any(got).(float64)) <= tol
	case []float64:
		g := any(got).([]float64)
		if len(w) != len(g) {
			return false
		}
		for i := range w {
			if math.Abs(w[i]-g[i]) > tol {
				return false
			}
		}
	}
	return true
}

// colMajor builds a design.Matrix from row-major literals.
func colMajor(m, n int, rows []float64) *design.Matrix {
	out := design.NewMatrix(m, n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, rows[i*n+j])
		}
	}
	return out
}

func TestHFTISimple(t *testing.T) {
	// Overdetermined full-rank system with a known normal-equation
	// solution x = [4/3, 7/3].
	a := colMajor(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	b := []float64{1, 2, 4}
	rank, res := hfti(a.Data, 3, 3, 2, b, 1e-12)
	if rank != 2 {
		t.Fatalf("rank = %d, want 2", rank)
	}
	if !almostEqual([]float64{4. / 3, 7. / 3}, b[:2], 1e-12) {
		t.Fatalf("x = %v", b[:2])
	}
	if !almostEqual(1/math.Sqrt(3), res, 1e-12) {
		t.Fatalf("residual = %v", res)
	}
}

func TestHFTIRankDeficient(t *testing.T) {
	// Second column is twice the first; the minimum-norm solution of
	// min |x0 + 2 x1 - 3| spread over the rank-one range.
	a := colMajor(3, 2, []float64{
		1, 2,
		1, 2,
		1, 2,
	})
	b := []float64{3, 3, 3}
	rank, res := hfti(a.Data, 3, 3, 2, b, 1e-8)
	if rank != 1 {
		t.Fatalf("rank = %d, want 1", rank)
	}
	if !almostEqual(0.0, res, 1e-12) {
		t.Fatalf("residual = %v", res)
	}
	if !almostEqual([]float64{3. / 5, 6. / 5}, b[:2], 1e-12) {
		t.Fatalf("x = %v", b[:2])
	}
}

func TestPseudoRank(t *testing.T) {
	full := colMajor(3, 3, []float64{
		2, 0, 0,
		0, 3, 0,
		0, 0, 4,
	})
	if r := PseudoRank(full.Data, 3, 3, 3); r != 3 {
		t.Fatalf("rank = %d, want 3", r)
	}
	deficient := colMajor(3, 3, []float64{
		1, 2, 3,
		2, 4, 6,
		3, 6, 9,
	})
	if r := PseudoRank(deficient.Data, 3, 3, 3); r != 1 {
		t.Fatalf("rank = %d, want 1", r)
	}
}

func TestSVDSolve(t *testing.T) {
	a := colMajor(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	b := []float64{1, 2, 4}
	res, err := SVD(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Solved || res.Rank != 2 {
		t.Fatalf("status = %v, rank = %d", res.Status, res.Rank)
	}
	if !almostEqual([]float64{4. / 3, 7. / 3}, res.Params, 1e-12) {
		t.Fatalf("x = %v", res.Params)
	}
	if !almostEqual(1/math.Sqrt(3), res.ResidualNorm, 1e-12) {
		t.Fatalf("residual = %v", res.ResidualNorm)
	}
}

func TestSVDRankDeficient(t *testing.T) {
	a := colMajor(3, 2, []float64{
		1, 2,
		1, 2,
		1, 2,
	})
	b := []float64{3, 3, 3}
	res, err := SVD(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != RankDeficient || res.Rank != 1 {
		t.Fatalf("status = %v, rank = %d", res.Status, res.Rank)
	}
	if !almostEqual([]float64{3. / 5, 6. / 5}, res.Params, 1e-12) {
		t.Fatalf("x = %v", res.Params)
	}
}

func TestConstrained(t *testing.T) {
	// min |x - b| subject to x0 + x1 = 1.
	a := colMajor(2, 2, []float64{
		1, 0,
		0, 1,
	})
	b := []float64{1, 1}
	c := colMajor(1, 2, []float64{1, 1})
	d := []float64{1}
	res, err := Constrained(a, b, c, d)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Solved {
		t.Fatalf("status = %v", res.Status)
	}
	if !almostEqual([]float64{0.5, 0.5}, res.Params, 1e-12) {
		t.Fatalf("x = %v", res.Params)
	}
	if !almostEqual(math.Sqrt(0.5), res.ResidualNorm, 1e-12) {
		t.Fatalf("residual = %v", res.ResidualNorm)
	}
}

func TestConstrainedSatisfiesEqualities(t *testing.T) {
	a := colMajor(4, 3, []float64{
		1, 0, 1,
		0, 1, 1,
		1, 1, 0,
		1, 1, 1,
	})
	b := []float64{1, 2, 3, 4}
	c := colMajor(1, 3, []float64{1, 1, 1})
	d := []float64{2}
	res, err := Constrained(a, b, c, d)
	if err != nil {
		t.Fatal(err)
	}
	sum := res.Params[0] + res.Params[1] + res.Params[2]
	if !almostEqual(2.0, sum, 1e-12) {
		t.Fatalf("constraint violated: sum = %v", sum)
	}
}

func TestConstrainedDeficientStack(t *testing.T) {
	// Duplicate columns cannot be separated by one constraint; the
	// solve still proceeds and flags the deficiency.
	a := colMajor(3, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
	})
	b := []float64{1, 2, 3}
	c := colMajor(1, 2, []float64{1, 1})
	d := []float64{0}
	res, err := Constrained(a, b, c, d)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != RankDeficient {
		t.Fatalf("status = %v, want rank deficient", res.Status)
	}
	sum := res.Params[0] + res.Params[1]
	if !almostEqual(0.0, sum, 1e-12) {
		t.Fatalf("constraint violated: sum = %v", sum)
	}
	if !almostEqual(math.Sqrt(14), res.ResidualNorm, 1e-12) {
		t.Fatalf("residual = %v", res.ResidualNorm)
	}
}

func TestConstrainedIncompatible(t *testing.T) {
	a := colMajor(2, 1, []float64{1, 1})
	b := []float64{1, 1}
	c := colMajor(2, 1, []float64{1, 1})
	d := []float64{0, 1}
	_, err := Constrained(a, b, c, d)
	if !errors.Is(err, ErrIncompatible) {
		t.Fatalf("err = %v, want ErrIncompatible", err)
	}
}

func TestSparseMatchesDense(t *testing.T) {
	a := colMajor(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	b := []float64{1, 2, 4}
	var trips []design.Triplet
	for j := 0; j < a.Cols; j++ {
		for i := 0; i < a.Rows; i++ {
			if v := a.At(i, j); v != 0 {
				trips = append(trips, design.Triplet{Row: i, Col: j, Val: v})
			}
		}
	}
	res, err := Sparse(trips, 3, 2, b)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual([]float64{4. / 3, 7. / 3}, res.Params, 1e-12) {
		t.Fatalf("x = %v", res.Params)
	}
}

func TestSparseNotPositiveDefinite(t *testing.T) {
	// A column of zeros makes the normal matrix singular.
	trips := []design.Triplet{{Row: 0, Col: 0, Val: 1}, {Row: 1, Col: 0, Val: 1}}
	_, err := Sparse(trips, 2, 2, []float64{1, 1})
	if !errors.Is(err, ErrNotPosDef) {
		t.Fatalf("err = %v, want ErrNotPosDef", err)
	}
}
