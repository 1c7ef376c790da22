// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package constraint builds and reduces the linear constraints the
// force-constant parameters must satisfy: translational and rotational
// invariance of the potential and invariance under the space group of
// the crystal. Reduction partitions the parameters into fixed, related
// and free sets so solvers can work in the smaller free space.
package constraint

import (
	"errors"
	"math"
	"sort"
)

var (
	ErrInconsistent = errors.New("constraint: inconsistent constraint set")
	ErrPartition    = errors.New("constraint: parameter partition is not an exact cover")
	ErrDimension    = errors.New("constraint: vector length mismatch")
	ErrAxis         = errors.New("constraint: unknown rotation axis")
)

// tolStruct separates structural zeros from round-off when reducing
// constraint rows. tolPhys is the looser physical tolerance.
const (
	tolStruct = 1e-12
	tolPhys   = 1e-8
)

// Element is one non-zero of a constraint row.
type Element struct {
	Col int
	Val float64
}

// Row is a sparse constraint row: sum(Val_i * p[Col_i]) = RHS.
// Elements are kept sorted by column with no duplicates.
type Row struct {
	Elems []Element
	RHS   float64
}

// canon sorts the elements, merges duplicate columns, drops entries
// below tol and scales the row so its leading coefficient is one.
func (r *Row) canon(tol float64) {
	sort.Slice(r.Elems, func(i, j int) bool { return r.Elems[i].Col < r.Elems[j].Col })
	out := r.Elems[:0]
	for _, e := range r.Elems {
		if n := len(out); n > 0 && out[n-1].Col == e.Col {
			out[n-1].Val += e.Val
		} else {
			out = append(out, e)
		}
	}
	n := 0
	for _, e := range out {
		if math.Abs(e.Val) > tol {
			out[n] = e
			n++
		}
	}
	r.Elems = out[:n]
	if n > 0 {
		lead := r.Elems[0].Val
		for i := range r.Elems {
			r.Elems[i].Val /= lead
		}
		r.RHS /= lead
	}
}

// axpy adds a*other to the row, keeping elements sorted.
func (r *Row) axpy(a float64, other *Row) {
	merged := make([]Element, 0, len(r.Elems)+len(other.Elems))
	i, j := 0, 0
	for i < len(r.Elems) && j < len(other.Elems) {
		switch {
		case r.Elems[i].Col < other.Elems[j].Col:
			merged = append(merged, r.Elems[i])
			i++
		case r.Elems[i].Col > other.Elems[j].Col:
			merged = append(merged, Element{other.Elems[j].Col, a * other.Elems[j].Val})
			j++
		default:
			v := r.Elems[i].Val + a*other.Elems[j].Val
			if math.Abs(v) > tolStruct {
				merged = append(merged, Element{r.Elems[i].Col, v})
			}
			i++
			j++
		}
	}
	merged = append(merged, r.Elems[i:]...)
	for ; j < len(other.Elems); j++ {
		merged = append(merged, Element{other.Elems[j].Col, a * other.Elems[j].Val})
	}
	r.Elems = merged
	r.RHS += a * other.RHS
}

// find returns the value at column c, zero when absent.
func (r *Row) find(c int) float64 {
	i := sort.Search(len(r.Elems), func(i int) bool { return r.Elems[i].Col >= c })
	if i < len(r.Elems) && r.Elems[i].Col == c {
		return r.Elems[i].Val
	}
	return 0
}

func rowLess(a, b *Row) bool {
	for i := 0; i < len(a.Elems) && i < len(b.Elems); i++ {
		if a.Elems[i].Col != b.Elems[i].Col {
			return a.Elems[i].Col < b.Elems[i].Col
		}
		if math.Abs(a.Elems[i].Val-b.Elems[i].Val) > tolStruct {
			return a.Elems[i].Val < b.Elems[i].Val
		}
	}
	return len(a.Elems) < len(b.Elems)
}

func rowEqual(a, b *Row) bool {
	if len(a.Elems) != len(b.Elems) {
		return false
	}
	for i := range a.Elems {
		if a.Elems[i].Col != b.Elems[i].Col ||
			math.Abs(a.Elems[i].Val-b.Elems[i].Val) > tolStruct {
			return false
		}
	}
	return math.Abs(a.RHS-b.RHS) <= tolStruct
}

// Dedupe canonicalizes the rows, sorts them lexicographically and
// removes duplicates and empty rows.
func Dedupe(rows []*Row) []*Row {
	kept := rows[:0]
	for _, r := range rows {
		r.canon(tolStruct)
		if len(r.Elems) > 0 {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return rowLess(kept[i], kept[j]) })
	out := kept[:0]
	for i, r := range kept {
		if i == 0 || !rowEqual(out[len(out)-1], r) {
			out = append(out, r)
		}
	}
	return out
}

// leviCivita is the fully antisymmetric rank-3 tensor.
func leviCivita(i, j, k int) int {
	switch {
	case i == j || j == k || i == k:
		return 0
	case (i+1)%3 == j:
		return 1
	default:
		return -1
	}
}
