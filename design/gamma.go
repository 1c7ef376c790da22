// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package design

import "sort"

// Gamma is the combinatorial weight of a force-constant term: the
// number of occurrences of the tuple's first index divided by the
// product of factorials of the repeated-index run lengths. It accounts
// for the multinomial factors picked up when differentiating the
// potential expansion.
func Gamma(elems []int) float64 {
	tmp := make([]int, len(elems))
	copy(tmp, elems)
	sort.Ints(tmp)

	first := elems[0]
	num := 0
	denom := 1
	run := 1
	for i := 1; i <= len(tmp); i++ {
		if i < len(tmp) && tmp[i] == tmp[i-1] {
			run++
			continue
		}
		denom *= factorial(run)
		if tmp[i-1] == first {
			num = run
		}
		run = 1
	}
	return float64(num) / float64(denom)
}

func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}
