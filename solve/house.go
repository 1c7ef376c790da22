// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

// house constructs the Householder reflection that zeroes elements
// l..m-1 of the strided vector v while pivoting on element p. On return
// v holds the reflection vector with v[p*inc] replaced by the resulting
// diagonal value; the pivot component of the reflection vector is
// returned separately.
//
// Lawson & Hanson, 'Solving least squares problems', chapter 10.
func house(p, l, m int, v []float64, inc int) (up float64) {
	if p < 0 || p >= l || l >= m {
		return 0
	}
	if (m-1)*inc >= len(v) {
		panic("bound check error")
	}
	vmax := math.Abs(v[p*inc])
	for j := l; j < m; j++ {
		vmax = math.Max(math.Abs(v[j*inc]), vmax)
	}
	if vmax == 0 {
		return 0
	}
	// Scale before squaring to dodge overflow.
	invMax := 1 / vmax
	sum := v[p*inc] * invMax * v[p*inc] * invMax
	for j := l; j < m; j++ {
		t := v[j*inc] * invMax
		sum += t * t
	}
	s := vmax * math.Sqrt(sum)
	if v[p*inc] > 0 {
		s = -s
	}
	up = v[p*inc] - s
	v[p*inc] = s
	return up
}

// applyHouse applies the reflection built by house to ncv vectors
// stored in c: element stride ice inside a vector, stride icv between
// vectors.
func applyHouse(p, l, m int, u []float64, incU int, up float64, c []float64, ice, icv, ncv int) {
	if p < 0 || p >= l || l >= m || ncv <= 0 {
		return
	}
	b := u[p*incU] * up
	if b >= 0 {
		return // identity transform
	}
	b = 1 / b
	if (m-1)*incU >= len(u) || ice*p+icv*(ncv-1)+(m-p-1)*ice >= len(c) {
		panic("bound check error")
	}
	tail := m - l
	uv := blas64.Vector{N: tail, Inc: incU, Data: u[l*incU:]}
	for j := 0; j < ncv; j++ {
		base := ice*p + icv*j
		cv := blas64.Vector{N: tail, Inc: ice, Data: c[base+(l-p)*ice:]}
		sm := c[base]*up + blas64.Dot(uv, cv)
		if sm == 0 {
			continue
		}
		sm *= b
		c[base] += sm * up
		blas64.Axpy(sm, uv, cv)
	}
}
