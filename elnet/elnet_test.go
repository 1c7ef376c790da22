// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elnet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quasiflux/latfit/design"
)

func TestShrink(t *testing.T) {
	require.Equal(t, 2.0, shrink(3, 1))
	require.Equal(t, -2.0, shrink(-3, 1))
	require.Equal(t, 0.0, shrink(0.5, 1))
	require.Equal(t, 0.0, shrink(-0.5, 1))
	// Exactly at the threshold the coefficient dies.
	require.Equal(t, 0.0, shrink(1, 1))
	require.Equal(t, 0.0, shrink(-1, 1))
}

// orthogonal builds a matrix with orthogonal columns so the lasso
// solution is the soft threshold in closed form.
func orthogonal() (*design.Matrix, []float64) {
	a := design.NewMatrix(4, 2)
	copy(a.Col(0), []float64{1, 1, 1, 1})
	copy(a.Col(1), []float64{1, -1, 1, -1})
	// b = 3*col0 + 0.1*col1: the second coefficient is barely alive.
	b := make([]float64, 4)
	for i := range b {
		b[i] = 3*a.Col(0)[i] + 0.1*a.Col(1)[i]
	}
	return a, b
}

func TestDescentClosedForm(t *testing.T) {
	a, b := orthogonal()
	d := newDescender(a, b)
	beta := make([]float64, 2)
	_, conv := d.descend(beta, 0.2, 1, 1e-12, 100)
	require.True(t, conv)
	// Columns have diag = 1, so beta_j = shrink(atb_j/m, alpha).
	require.InDelta(t, shrink(3, 0.2), beta[0], 1e-10)
	require.InDelta(t, shrink(0.1, 0.2), beta[1], 1e-10) // dies
	require.Zero(t, beta[1])
}

func objective(a *design.Matrix, b, beta []float64, alpha, rho float64) float64 {
	res := append([]float64(nil), b...)
	for j, bj := range beta {
		for i, v := range a.Col(j) {
			res[i] -= v * bj
		}
	}
	sq, l1, l2 := 0.0, 0.0, 0.0
	for _, r := range res {
		sq += r * r
	}
	for _, bj := range beta {
		l1 += math.Abs(bj)
		l2 += bj * bj
	}
	m := float64(a.Rows)
	return sq/(2*m) + alpha*rho*l1 + alpha*(1-rho)*l2/2
}

func TestDescentMonotoneObjective(t *testing.T) {
	a := design.NewMatrix(5, 3)
	copy(a.Col(0), []float64{1, 2, 0, 1, -1})
	copy(a.Col(1), []float64{0, 1, 1, -2, 1})
	copy(a.Col(2), []float64{2, -1, 1, 0, 1})
	b := []float64{1, 2, -1, 0.5, 1}

	const alpha, rho = 0.05, 0.8
	d := newDescender(a, b)
	beta := make([]float64, 3)
	prev := objective(a, b, beta, alpha, rho)
	for sweep := 0; sweep < 6; sweep++ {
		d.descend(beta, alpha, rho, 0, 1) // exactly one sweep
		cur := objective(a, b, beta, alpha, rho)
		require.LessOrEqual(t, cur, prev+1e-12, "objective rose on sweep %d", sweep)
		prev = cur
	}
}

func TestMaxAlphaKillsEverything(t *testing.T) {
	a, b := orthogonal()
	alpha := MaxAlpha(a, b)
	d := newDescender(a, b)
	beta := make([]float64, 2)
	d.descend(beta, alpha, 1, 1e-12, 100)
	require.Equal(t, []float64{0, 0}, beta)
}

func TestSolveStandardized(t *testing.T) {
	a, b := orthogonal()
	opts := Default()
	opts.Alpha = 1e-6
	fit, err := Solve(a, b, opts)
	require.NoError(t, err)
	require.True(t, fit.Converged)
	require.InDelta(t, 3.0, fit.Coefs[0], 1e-4)
	require.InDelta(t, 0.1, fit.Coefs[1], 1e-4)
}

func TestSolveDebias(t *testing.T) {
	a, b := orthogonal()
	opts := Default()
	opts.Alpha = 0.05 // biases the surviving coefficient
	opts.Debias = true
	fit, err := Solve(a, b, opts)
	require.NoError(t, err)
	// The strong coefficient survives and the re-fit removes the bias.
	require.InDelta(t, 3.0, fit.Coefs[0], 1e-10)
}

func TestSolveRejectsBadOptions(t *testing.T) {
	a, b := orthogonal()
	opts := Default()
	opts.Alpha = 0.1
	opts.L1Ratio = 0
	_, err := Solve(a, b, opts)
	require.ErrorIs(t, err, ErrOptions)

	opts = Default()
	_, err = Solve(a, b, opts) // Alpha unset
	require.ErrorIs(t, err, ErrOptions)
}

func TestLogSpacedExactEndpoints(t *testing.T) {
	got := logSpaced(3, 1e-5, 8)
	require.Len(t, got, 8)
	require.Equal(t, 3.0, got[0])
	require.Equal(t, 1e-5, got[7])
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i], got[i-1])
	}
	require.Equal(t, []float64{2.0}, logSpaced(2, 1e-3, 1))
}

func TestCrossValidatePath(t *testing.T) {
	a, b := orthogonal()
	opts := Default()
	opts.NumAlpha = 8
	opts.AlphaMin = 1e-5
	opts.OrderOf = []int{0, 0}
	cv, err := CrossValidate(a, b, a, b, opts)
	require.NoError(t, err)
	require.Len(t, cv.Path, 8)

	// Alphas descend and the zero count never grows back.
	for i := 1; i < len(cv.Path); i++ {
		require.Less(t, cv.Path[i].Alpha, cv.Path[i-1].Alpha)
		require.LessOrEqual(t, cv.Path[i].ZeroCounts[0], cv.Path[i-1].ZeroCounts[0])
	}
	// The strongest penalty kills both columns, the weakest none.
	require.Equal(t, 2, cv.Path[0].ZeroCounts[0])
	require.Equal(t, 0, cv.Path[len(cv.Path)-1].ZeroCounts[0])
	require.NotNil(t, cv.Best)
	require.True(t, cv.Best.Converged)
	require.InDelta(t, 3.0, cv.Best.Coefs[0], 1e-3)

	// Path coefficients stay off unless requested.
	require.Nil(t, cv.Path[0].Coefs)
}

func TestCrossValidatePathCoefs(t *testing.T) {
	a, b := orthogonal()
	opts := Default()
	opts.NumAlpha = 5
	opts.AlphaMin = 1e-5
	opts.PathCoefs = true
	opts.Debias = true
	cv, err := CrossValidate(a, b, a, b, opts)
	require.NoError(t, err)
	for _, pt := range cv.Path {
		require.Len(t, pt.Coefs, 2)
	}
	require.Equal(t, []float64{0, 0}, cv.Path[0].Coefs)
	last := cv.Path[len(cv.Path)-1].Coefs
	require.InDelta(t, 3.0, last[0], 1e-3)
	require.InDelta(t, 0.1, last[1], 1e-3)
	// Debiasing the winner must not rewrite the recorded path: the
	// captured value still carries the shrinkage bias.
	require.Less(t, last[0], 3.0)
	require.InDelta(t, 3.0, cv.Best.Coefs[0], 1e-10)
}
