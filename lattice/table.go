// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

import (
	"encoding/binary"
	"sort"
)

// Term is one raw force-constant entry mapped onto a symmetry-distinct
// parameter. Elems holds flattened indices 3*atom+xyz; the slice length
// is order+2 for the 0-based interaction order. Sign carries the phase
// picked up while reducing the term to its representative.
type Term struct {
	Elems []int
	Sign  float64
}

// Group collects the terms that share one symmetry-distinct parameter.
// The first term is the representative. Multiplicity of the parameter
// is len(Terms).
type Group struct {
	Terms []Term
}

// Table holds the parameter groups of every interaction order.
// Groups[n] are the order-n parameters; full-space columns are the
// per-order group indices concatenated in order.
type Table struct {
	Groups [][]Group
}

// MaxOrder returns the number of interaction orders in the table.
func (t *Table) MaxOrder() int { return len(t.Groups) }

// NParams returns the number of symmetry-distinct parameters of one order.
func (t *Table) NParams(order int) int { return len(t.Groups[order]) }

// Offset returns the first full-space column of the given order.
func (t *Table) Offset(order int) int {
	n := 0
	for i := 0; i < order; i++ {
		n += len(t.Groups[i])
	}
	return n
}

// NTotal returns the full-space parameter count across all orders.
func (t *Table) NTotal() int { return t.Offset(len(t.Groups)) }

// TermIndex resolves arbitrary flattened index tuples to their
// order-local parameter column and sign. Tuples are keyed canonically:
// the first index is distinguished (it carries the force component),
// the remaining indices are sorted.
type TermIndex struct {
	byOrder []map[string]termRef
}

type termRef struct {
	col  int
	sign float64
}

// NewTermIndex builds the lookup from a parameter table.
func NewTermIndex(t *Table) *TermIndex {
	ti := &TermIndex{byOrder: make([]map[string]termRef, len(t.Groups))}
	for order, groups := range t.Groups {
		m := make(map[string]termRef)
		for col, g := range groups {
			for _, term := range g.Terms {
				m[canonKey(term.Elems)] = termRef{col: col, sign: term.Sign}
			}
		}
		ti.byOrder[order] = m
	}
	return ti
}

// Find returns the order-local column and sign of the parameter the
// tuple belongs to. ok is false when the tuple indexes no parameter,
// i.e. the force constant is zero beyond the interaction range.
func (ti *TermIndex) Find(order int, elems []int) (col int, sign float64, ok bool) {
	if order < 0 || order >= len(ti.byOrder) {
		return 0, 0, false
	}
	ref, ok := ti.byOrder[order][canonKey(elems)]
	if !ok {
		return 0, 0, false
	}
	return ref.col, ref.sign, true
}

func canonKey(elems []int) string {
	tmp := make([]int, len(elems))
	copy(tmp, elems)
	if len(tmp) > 2 {
		sort.Ints(tmp[1:])
	}
	buf := make([]byte, 4*len(tmp))
	for i, e := range tmp {
		binary.BigEndian.PutUint32(buf[4*i:], uint32(e))
	}
	return string(buf)
}
