// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package constraint

import "math"

// FixedEntry pins one full-space parameter to a constant.
type FixedEntry struct {
	Col int
	Val float64
}

// RelatedEntry expresses one full-space parameter as an affine
// combination of free parameters: p[Col] = Val + sum(Coef_k * p[Src_k]).
type RelatedEntry struct {
	Col  int
	Val  float64
	Src  []int
	Coef []float64
}

// Mapping is the exact-cover partition of one order's parameters into
// fixed, related and free sets, together with the bijection between
// free-space indices and full-space columns.
type Mapping struct {
	N          int
	Fixed      []FixedEntry
	Related    []RelatedEntry
	FreeToFull []int
	FullToFree map[int]int
}

// NewMapping partitions n parameters according to a reduced constraint
// set. Rows must be in reduced row-echelon form (see Reduce): a
// single-element row pins its pivot, a longer row relates its pivot to
// the non-pivot columns, and columns untouched by any pivot stay free.
func NewMapping(n int, reduced []*Row) (*Mapping, error) {
	m := &Mapping{N: n, FullToFree: make(map[int]int)}
	pivot := make([]bool, n)
	for _, r := range reduced {
		if len(r.Elems) == 0 {
			continue
		}
		c := r.Elems[0].Col
		if c < 0 || c >= n || pivot[c] {
			return nil, ErrPartition
		}
		pivot[c] = true
		if len(r.Elems) == 1 {
			m.Fixed = append(m.Fixed, FixedEntry{Col: c, Val: r.RHS / r.Elems[0].Val})
			continue
		}
		rel := RelatedEntry{Col: c, Val: r.RHS / r.Elems[0].Val}
		for _, e := range r.Elems[1:] {
			rel.Src = append(rel.Src, e.Col)
			rel.Coef = append(rel.Coef, -e.Val/r.Elems[0].Val)
		}
		m.Related = append(m.Related, rel)
	}
	for c := 0; c < n; c++ {
		if !pivot[c] {
			m.FullToFree[c] = len(m.FreeToFull)
			m.FreeToFull = append(m.FreeToFull, c)
		}
	}
	if len(m.Fixed)+len(m.Related)+len(m.FreeToFull) != n {
		return nil, ErrPartition
	}
	return m, nil
}

// NFree returns the dimension of the free space.
func (m *Mapping) NFree() int { return len(m.FreeToFull) }

// Expand resolves a free vector to the full parameter space in one
// pass: fixed values first, then the free entries through the
// bijection, then the related entries, whose sources are free columns
// and therefore already resolved.
func (m *Mapping) Expand(free []float64) ([]float64, error) {
	if len(free) != len(m.FreeToFull) {
		return nil, ErrDimension
	}
	out := make([]float64, m.N)
	for _, f := range m.Fixed {
		out[f.Col] = f.Val
	}
	for i, c := range m.FreeToFull {
		out[c] = free[i]
	}
	for _, r := range m.Related {
		v := r.Val
		for k, s := range r.Src {
			v += r.Coef[k] * out[s]
		}
		out[r.Col] = v
	}
	return out, nil
}

// Contract gathers the free components out of a full vector.
func (m *Mapping) Contract(full []float64) ([]float64, error) {
	if len(full) != m.N {
		return nil, ErrDimension
	}
	out := make([]float64, len(m.FreeToFull))
	for i, c := range m.FreeToFull {
		out[i] = full[c]
	}
	return out, nil
}

// MappingSet stacks the per-order mappings. Full-space columns of
// order k start at the sum of the preceding orders' widths, free-space
// indices likewise.
type MappingSet struct {
	Orders []*Mapping
}

// NFull returns the total full-space width.
func (s *MappingSet) NFull() int {
	n := 0
	for _, m := range s.Orders {
		n += m.N
	}
	return n
}

// NFree returns the total free-space width.
func (s *MappingSet) NFree() int {
	n := 0
	for _, m := range s.Orders {
		n += m.NFree()
	}
	return n
}

// Expand resolves a stacked free vector order by order.
func (s *MappingSet) Expand(free []float64) ([]float64, error) {
	if len(free) != s.NFree() {
		return nil, ErrDimension
	}
	out := make([]float64, 0, s.NFull())
	at := 0
	for _, m := range s.Orders {
		part, err := m.Expand(free[at : at+m.NFree()])
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
		at += m.NFree()
	}
	return out, nil
}

// Contract gathers the stacked free components out of a full vector.
func (s *MappingSet) Contract(full []float64) ([]float64, error) {
	if len(full) != s.NFull() {
		return nil, ErrDimension
	}
	out := make([]float64, 0, s.NFree())
	at := 0
	for _, m := range s.Orders {
		part, err := m.Contract(full[at : at+m.N])
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
		at += m.N
	}
	return out, nil
}

// Verify re-checks the exact-cover partition of a mapping. It is cheap
// and run by callers before expensive assembly.
func (m *Mapping) Verify() error {
	seen := make([]int, m.N)
	for _, f := range m.Fixed {
		seen[f.Col]++
	}
	for _, r := range m.Related {
		seen[r.Col]++
	}
	for i, c := range m.FreeToFull {
		if j, ok := m.FullToFree[c]; !ok || j != i {
			return ErrPartition
		}
		seen[c]++
	}
	for _, s := range seen {
		if s != 1 {
			return ErrPartition
		}
	}
	for _, r := range m.Related {
		for k, s := range r.Src {
			if _, free := m.FullToFree[s]; !free && math.Abs(r.Coef[k]) > tolStruct {
				return ErrPartition
			}
		}
	}
	return nil
}
