// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package constraint

import (
	"math"
	"sort"
)

// Reduce brings a set of sparse rows to reduced row-echelon form.
// Pivot coefficients are one, every pivot column appears in exactly one
// row and rows come back sorted by pivot column. Coefficients below the
// structural tolerance are treated as exact zeros. A row that cancels
// completely but keeps a non-zero right-hand side makes the set
// inconsistent.
func Reduce(rows []*Row) ([]*Row, error) {
	pivots := make(map[int]*Row)
	for _, r := range rows {
		work := &Row{Elems: append([]Element(nil), r.Elems...), RHS: r.RHS}
		work.canon(tolStruct)
		for len(work.Elems) > 0 {
			c := work.Elems[0].Col
			p, ok := pivots[c]
			if !ok {
				pivots[c] = work
				break
			}
			work.axpy(-work.Elems[0].Val, p)
			work.canon(tolStruct)
		}
		if len(work.Elems) == 0 && math.Abs(work.RHS) > tolPhys {
			return nil, ErrInconsistent
		}
	}

	cols := make([]int, 0, len(pivots))
	for c := range pivots {
		cols = append(cols, c)
	}
	sort.Ints(cols)

	// Back-substitute so pivot columns vanish from every other row.
	for i := len(cols) - 1; i >= 0; i-- {
		p := pivots[cols[i]]
		for j := 0; j < i; j++ {
			r := pivots[cols[j]]
			if v := r.find(cols[i]); v != 0 {
				r.axpy(-v, p)
				r.canon(tolStruct)
			}
		}
	}

	out := make([]*Row, len(cols))
	for i, c := range cols {
		out[i] = pivots[c]
	}
	return out, nil
}
