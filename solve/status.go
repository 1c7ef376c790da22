// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solve provides the linear solvers of the fitting pipeline: a
// dense minimum-norm SVD solve, an equality-constrained least-squares
// solve built on Householder triangularization with column pivoting,
// and a normal-equation Cholesky solve for sparse systems.
package solve

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrDimension    = errors.New("solve: dimension mismatch")
	ErrFactorize    = errors.New("solve: factorization failed")
	ErrSingularCons = errors.New("solve: constraint block is singular")
	ErrIncompatible = errors.New("solve: more independent constraints than parameters")
	ErrNotPosDef    = errors.New("solve: normal matrix is not positive definite")
)

// machEps is the double precision machine epsilon.
const machEps = float64(7)/3 - float64(4)/3 - 1

// tolRank is the relative tolerance of the pivoted-QR pseudo-rank.
const tolRank = 1e-12

// Status classifies a solver outcome.
type Status int

const (
	Solved Status = iota
	RankDeficient
	SingularConstraint
	IncompatibleConstraint
	NotPositiveDefinite
	IterationLimit
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case RankDeficient:
		return "rank deficient"
	case SingularConstraint:
		return "singular constraint block"
	case IncompatibleConstraint:
		return "incompatible constraints"
	case NotPositiveDefinite:
		return "normal matrix not positive definite"
	case IterationLimit:
		return "iteration limit reached"
	}
	return "unknown"
}

// Result carries a solution together with its diagnostics.
type Result struct {
	Params       []float64
	Rank         int
	ResidualNorm float64
	FitError     float64 // percent of the force norm left unexplained
	Status       Status
}

// fitErrorPercent relates the residual norm to the norm of the data.
func fitErrorPercent(resNorm float64, b []float64) float64 {
	f2 := floats.Dot(b, b)
	if f2 == 0 {
		return 0
	}
	return math.Sqrt(resNorm*resNorm/f2) * 100
}
