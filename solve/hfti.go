// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import "math"

// hfti solves min ||Ax - b|| for a possibly rank-deficient A using
// Householder forward triangulation with column interchanges. a is
// column-major with leading dimension lda and is overwritten by the
// factorization; the solution replaces the first n entries of b. tau is
// the absolute pseudo-rank tolerance. Returns the pseudo-rank and the
// residual norm.
//
// Lawson & Hanson, 'Solving least squares problems', chapter 14.
func hfti(a []float64, lda, m, n int, b []float64, tau float64) (rank int, resNorm float64) {
	const factor = 0.001

	diag := min(m, n)
	if diag <= 0 {
		return 0, 0
	}

	h := make([]float64, n)
	g := make([]float64, diag)
	ip := make([]int, diag)

	hmax := 0.0
	for j := 0; j < diag; j++ {
		// Track the squared lengths of the trailing columns and pick
		// the longest as pivot; recompute when cancellation has eaten
		// the running values.
		lmax := j
		if j > 0 {
			v := math.Inf(-1)
			for l := j; l < n; l++ {
				t := a[(j-1)+lda*l]
				if h[l] -= t * t; h[l] > v {
					lmax, v = l, h[l]
				}
			}
		}
		if j == 0 || factor*h[lmax] < hmax*machEps {
			v := math.Inf(-1)
			for l := j; l < n; l++ {
				sum := 0.0
				for _, t := range a[j+lda*l : m+lda*l] {
					sum += t * t
				}
				if h[l] = sum; h[l] > v {
					lmax, v = l, h[l]
				}
			}
			hmax = h[lmax]
		}

		ip[j] = lmax
		if lmax != j {
			c1, c2 := a[lda*j:lda*j+m], a[lda*lmax:lda*lmax+m]
			for i := 0; i < m; i++ {
				c1[i], c2[i] = c2[i], c1[i]
			}
			h[lmax] = h[j]
		}

		i := min(j+1, n-1)
		g[j] = house(j, j+1, m, a[lda*j:], 1)
		applyHouse(j, j+1, m, a[lda*j:], 1, g[j], a[lda*i:], 1, lda, n-j-1)
		applyHouse(j, j+1, m, a[lda*j:], 1, g[j], b, 1, len(b), 1)
	}

	rank = diag
	for j := 0; j < diag; j++ {
		if math.Abs(a[j+lda*j]) <= tau {
			rank = j
			break
		}
	}

	sum := 0.0
	if rank < m {
		for _, t := range b[rank:m] {
			sum += t * t
		}
	}
	resNorm = math.Sqrt(sum)

	if rank == 0 {
		for i := 0; i < n; i++ {
			b[i] = 0
		}
		return rank, resNorm
	}

	// Retriangularize the first rank rows from the right when the
	// pseudo-rank falls short of n.
	k := make([]float64, rank)
	if rank < n {
		for i := rank - 1; i >= 0; i-- {
			k[i] = house(i, rank, n, a[i:], lda)
			applyHouse(i, rank, n, a[i:], lda, k[i], a, lda, 1, i)
		}
	}

	// Back-substitute the triangular system.
	for i := rank - 1; i >= 0; i-- {
		sm := 0.0
		for j := i + 1; j < rank; j++ {
			sm += a[i+lda*j] * b[j]
		}
		b[i] = (b[i] - sm) / a[i+lda*i]
	}

	if rank < n {
		for i := rank; i < n; i++ {
			b[i] = 0
		}
		for i := 0; i < rank; i++ {
			applyHouse(i, rank, n, a[i:], lda, k[i], b, 1, len(b), 1)
		}
	}

	// Undo the column interchanges.
	for j := diag - 1; j >= 0; j-- {
		if l := ip[j]; l != j {
			b[l], b[j] = b[j], b[l]
		}
	}
	return rank, resNorm
}

// PseudoRank runs pivoted Householder triangularization on a copy of a
// column-major matrix and counts the diagonal entries exceeding
// tolRank relative to the leading one.
func PseudoRank(a []float64, lda, m, n int) int {
	work := append([]float64(nil), a...)
	diag := min(m, n)
	if diag <= 0 {
		return 0
	}
	h := make([]float64, n)
	for j := 0; j < diag; j++ {
		lmax := j
		v := math.Inf(-1)
		for l := j; l < n; l++ {
			sum := 0.0
			for _, t := range work[j+lda*l : m+lda*l] {
				sum += t * t
			}
			if h[l] = sum; h[l] > v {
				lmax, v = l, h[l]
			}
		}
		if lmax != j {
			c1, c2 := work[lda*j:lda*j+m], work[lda*lmax:lda*lmax+m]
			for i := 0; i < m; i++ {
				c1[i], c2[i] = c2[i], c1[i]
			}
		}
		up := house(j, j+1, m, work[lda*j:], 1)
		i := min(j+1, n-1)
		applyHouse(j, j+1, m, work[lda*j:], 1, up, work[lda*i:], 1, lda, n-j-1)
	}
	lead := math.Abs(work[0])
	rank := 0
	for j := 0; j < diag; j++ {
		if math.Abs(work[j+lda*j]) > tolRank*lead {
			rank++
		}
	}
	return rank
}
