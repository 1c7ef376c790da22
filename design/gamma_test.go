// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package design

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGamma(t *testing.T) {
	// Occurrences of the leading index over the factorials of the
	// repeated-index runs. The all-equal cubic tuple keeps the full
	// 3/3! = 1/2 weight.
	cases := []struct {
		elems []int
		want  float64
	}{
		{[]int{0, 0}, 1},
		{[]int{0, 3}, 1},
		{[]int{3, 0}, 1},
		{[]int{0, 0, 0}, 0.5},
		{[]int{0, 0, 3}, 1},
		{[]int{0, 3, 0}, 1},
		{[]int{0, 3, 3}, 0.5},
		{[]int{3, 0, 0}, 0.5},
		{[]int{0, 3, 6}, 1},
		{[]int{0, 0, 0, 0}, 4.0 / 24},
		{[]int{0, 0, 3, 3}, 0.5},
	}
	for _, c := range cases {
		require.InDelta(t, c.want, Gamma(c.elems), 1e-15, "elems %v", c.elems)
	}
}
