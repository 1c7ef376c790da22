// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elnet fits force constants with elastic-net regularization:
// cyclic coordinate descent over a soft-thresholded quadratic, an
// optional column standardizer, a warm-started regularization sweep
// with cross-validation and an optional unpenalized re-fit on the
// surviving parameters.
package elnet

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/quasiflux/latfit/design"
)

var (
	ErrOptions   = errors.New("elnet: invalid options")
	ErrDimension = errors.New("elnet: dimension mismatch")
	ErrEmptyPath = errors.New("elnet: regularization path is empty")
)

// Options controls an elastic-net fit. The zero value is not usable;
// call Default first and override what differs.
type Options struct {
	// L1Ratio blends the l1 and l2 penalties. 1 is the pure lasso;
	// values in (0,1) add a ridge term.
	L1Ratio float64
	// Alpha is the penalty strength for a single fit.
	Alpha float64
	// AlphaMax and AlphaMin bound the cross-validation sweep,
	// NumAlpha points log-spaced from high to low. A zero AlphaMax is
	// replaced by the MaxAlpha estimate.
	AlphaMax, AlphaMin float64
	NumAlpha           int
	// Tol is the convergence threshold on the root-mean-square change
	// of the coefficients over one sweep.
	Tol     float64
	MaxIter int
	// Standardize rescales every column to unit root-mean-square
	// before descending and undoes the scaling on exit.
	Standardize bool
	// Debias re-fits the surviving coefficients by ordinary least
	// squares after the penalized solve.
	Debias bool
	// PathCoefs keeps the coefficients of every sweep step on the
	// cross-validation path. Off by default, the path can be long.
	PathCoefs bool
	// OrderOf assigns each column to an interaction order for the
	// per-order zero counts. May be nil.
	OrderOf []int
}

// Default returns the options used when a field is left at zero.
func Default() Options {
	return Options{
		L1Ratio:     1,
		NumAlpha:    50,
		AlphaMin:    1e-4,
		Tol:         1e-8,
		MaxIter:     10000,
		Standardize: true,
	}
}

func (o *Options) validate(n int) error {
	if o.L1Ratio <= 0 || o.L1Ratio > 1 {
		return ErrOptions
	}
	if o.Tol <= 0 || o.MaxIter <= 0 {
		return ErrOptions
	}
	if o.OrderOf != nil && len(o.OrderOf) != n {
		return ErrOptions
	}
	return nil
}

// shrink is the soft-threshold operator: it moves x toward zero by t
// and clips at zero.
func shrink(x, t float64) float64 {
	if x > t {
		return x - t
	}
	if x < -t {
		return x + t
	}
	return 0
}

// MaxAlpha estimates the smallest penalty that zeroes every
// coefficient, max|At b| / M, the natural upper end of a sweep.
func MaxAlpha(a *design.Matrix, b []float64) float64 {
	maxv := 0.0
	for j := 0; j < a.Cols; j++ {
		if v := math.Abs(floats.Dot(a.Col(j), b)); v > maxv {
			maxv = v
		}
	}
	return maxv / float64(a.Rows)
}

// standardizer rescales matrix columns to unit root-mean-square.
// Columns of a force-displacement design have no intercept, so no mean
// is removed.
type standardizer struct {
	scale []float64 // per-column RMS
}

func newStandardizer(a *design.Matrix) *standardizer {
	s := &standardizer{scale: make([]float64, a.Cols)}
	inv := 1 / math.Sqrt(float64(a.Rows))
	for j := 0; j < a.Cols; j++ {
		s.scale[j] = floats.Norm(a.Col(j), 2) * inv
	}
	return s
}

// apply returns a scaled copy of the matrix. Dead columns keep scale
// one so the descent sees them as plain zeros.
func (s *standardizer) apply(a *design.Matrix) *design.Matrix {
	out := design.NewMatrix(a.Rows, a.Cols)
	copy(out.Data, a.Data)
	for j := 0; j < a.Cols; j++ {
		if s.scale[j] == 0 {
			s.scale[j] = 1
			continue
		}
		floats.Scale(1/s.scale[j], out.Col(j))
	}
	return out
}

// restore maps standardized coefficients back to the original columns.
func (s *standardizer) restore(beta []float64) {
	for j, sc := range s.scale {
		beta[j] /= sc
	}
}

// zeroCounts tallies the vanished coefficients per interaction order.
func zeroCounts(beta []float64, orderOf []int) []int {
	if orderOf == nil {
		n := 0
		for _, b := range beta {
			if b == 0 {
				n++
			}
		}
		return []int{n}
	}
	maxOrder := 0
	for _, o := range orderOf {
		maxOrder = max(maxOrder, o)
	}
	counts := make([]int, maxOrder+1)
	for j, b := range beta {
		if b == 0 {
			counts[orderOf[j]]++
		}
	}
	return counts
}
