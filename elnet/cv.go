// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elnet

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quasiflux/latfit/design"
)

// Fit is the outcome of one penalized solve.
type Fit struct {
	Coefs      []float64
	Iters      int
	Converged  bool
	TrainError float64
	ZeroCounts []int
}

// PathPoint records the diagnostics of one sweep step. Coefs is only
// populated when Options.PathCoefs is set.
type PathPoint struct {
	Alpha      float64
	TrainError float64
	ValidError float64
	ZeroCounts []int
	Coefs      []float64
}

// CV is the outcome of a cross-validated regularization sweep.
type CV struct {
	Path      []PathPoint
	BestAlpha float64
	Best      *Fit
}

// Solve runs a single elastic-net fit at opts.Alpha, warm-started from
// zero.
func Solve(a *design.Matrix, b []float64, opts Options) (*Fit, error) {
	if err := opts.validate(a.Cols); err != nil {
		return nil, err
	}
	if opts.Alpha <= 0 {
		return nil, ErrOptions
	}
	if len(b) != a.Rows {
		return nil, ErrDimension
	}

	work := a
	var std *standardizer
	if opts.Standardize {
		std = newStandardizer(a)
		work = std.apply(a)
	}
	d := newDescender(work, b)
	beta := make([]float64, a.Cols)
	iters, conv := d.descend(beta, opts.Alpha, opts.L1Ratio, opts.Tol, opts.MaxIter)

	fit := &Fit{
		Iters:      iters,
		Converged:  conv,
		TrainError: relError(work, beta, b),
		ZeroCounts: zeroCounts(beta, opts.OrderOf),
	}
	if std != nil {
		std.restore(beta)
	}
	if opts.Debias {
		debias(a, b, beta)
		fit.TrainError = relError(a, beta, b)
	}
	fit.Coefs = beta
	return fit, nil
}

// CrossValidate sweeps the penalty from strong to weak, warm-starting
// every step from the previous solution, and scores each step on the
// held-out validation set. The best penalty is the one with the lowest
// validation error; its coefficients are returned as the final fit.
func CrossValidate(aT *design.Matrix, bT []float64, aV *design.Matrix, bV []float64, opts Options) (*CV, error) {
	if err := opts.validate(aT.Cols); err != nil {
		return nil, err
	}
	if len(bT) != aT.Rows || len(bV) != aV.Rows || aV.Cols != aT.Cols {
		return nil, ErrDimension
	}
	work := aT
	var std *standardizer
	if opts.Standardize {
		std = newStandardizer(aT)
		work = std.apply(aT)
	}

	// The default sweep head is taken from the matrix the descent
	// actually sees, so the first step zeroes every coefficient.
	amax := opts.AlphaMax
	if amax == 0 {
		amax = MaxAlpha(work, bT) / opts.L1Ratio
	}
	amin := opts.AlphaMin
	if amin <= 0 || amin >= amax || opts.NumAlpha < 1 {
		return nil, ErrOptions
	}
	alphas := logSpaced(amax, amin, opts.NumAlpha)

	d := newDescender(work, bT)

	cv := &CV{Path: make([]PathPoint, 0, len(alphas))}
	beta := make([]float64, aT.Cols)
	var bestBeta []float64
	bestErr := math.Inf(1)
	bestIters, bestConv := 0, false
	for _, alpha := range alphas {
		iters, conv := d.descend(beta, alpha, opts.L1Ratio, opts.Tol, opts.MaxIter)
		restored := append([]float64(nil), beta...)
		if std != nil {
			std.restore(restored)
		}
		pt := PathPoint{
			Alpha:      alpha,
			TrainError: relError(work, beta, bT),
			ValidError: relError(aV, restored, bV),
			ZeroCounts: zeroCounts(beta, opts.OrderOf),
		}
		if opts.PathCoefs {
			pt.Coefs = append([]float64(nil), restored...)
		}
		cv.Path = append(cv.Path, pt)
		if pt.ValidError < bestErr {
			bestErr = pt.ValidError
			cv.BestAlpha = alpha
			bestBeta = restored
			bestIters, bestConv = iters, conv
		}
	}
	if bestBeta == nil {
		return nil, ErrEmptyPath
	}
	if opts.Debias {
		debias(aT, bT, bestBeta)
	}
	cv.Best = &Fit{
		Coefs:      bestBeta,
		Iters:      bestIters,
		Converged:  bestConv,
		TrainError: relError(aT, bestBeta, bT),
		ZeroCounts: zeroCounts(bestBeta, opts.OrderOf),
	}
	return cv, nil
}

// debias re-fits the non-zero coefficients by unpenalized least
// squares through a QR factorization of the surviving columns.
func debias(a *design.Matrix, b, beta []float64) {
	var nz []int
	for j, bj := range beta {
		if bj != 0 {
			nz = append(nz, j)
		}
	}
	if len(nz) == 0 || len(nz) > a.Rows {
		return
	}
	sub := mat.NewDense(a.Rows, len(nz), nil)
	for k, j := range nz {
		sub.SetCol(k, a.Col(j))
	}
	var qr mat.QR
	qr.Factorize(sub)
	var x mat.Dense
	if err := qr.SolveTo(&x, false, mat.NewVecDense(len(b), b)); err != nil {
		return // keep the penalized values
	}
	for k, j := range nz {
		beta[j] = x.At(k, 0)
	}
}

// logSpaced interpolates n points from hi down to lo on a log scale.
// The endpoints are returned exactly: round-off in pow(10, log10(hi))
// would leave the sweep head just below the all-zero penalty.
func logSpaced(hi, lo float64, n int) []float64 {
	if n == 1 {
		return []float64{hi}
	}
	lh, ll := math.Log10(hi), math.Log10(lo)
	out := make([]float64, n)
	out[0] = hi
	out[n-1] = lo
	for i := 1; i < n-1; i++ {
		out[i] = math.Pow(10, lh-float64(i)*(lh-ll)/float64(n-1))
	}
	return out
}
