// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package constraint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quasiflux/latfit/lattice"
)

var identity = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// chain is a periodic two-atom chain along x with one atom per
// primitive cell: two harmonic parameters, the on-site and the
// neighbour coupling.
func chain() (*lattice.Cell, *lattice.Symmetry, *lattice.Table) {
	cell := &lattice.Cell{
		NAtoms: 2,
		XCart:  [][3]float64{{0, 0, 0}, {1, 0, 0}},
	}
	ident := lattice.Operation{
		Rotation:       [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		RotationCart:   identity,
		IsTranslation:  true,
		CompatibleCart: true,
	}
	tran := ident
	tran.Translation = [3]float64{0.5, 0, 0}
	sym := &lattice.Symmetry{
		Ops:         []lattice.Operation{ident, tran},
		NPrim:       1,
		TranIndices: []int{0, 1},
		MapSym:      [][]int{{0, 1}, {1, 0}},
		MapP2S:      [][]int{{0, 1}},
		MapS2P:      []lattice.SiteMap{{Prim: 0, Tran: 0}, {Prim: 0, Tran: 1}},
	}
	table := &lattice.Table{Groups: [][]lattice.Group{{
		{Terms: []lattice.Term{
			{Elems: []int{0, 0}, Sign: 1},
			{Elems: []int{3, 3}, Sign: 1},
		}},
		{Terms: []lattice.Term{
			{Elems: []int{0, 3}, Sign: 1},
			{Elems: []int{3, 0}, Sign: 1},
		}},
	}}}
	return cell, sym, table
}

func TestTranslationalSumRule(t *testing.T) {
	gen := NewGenerator(chain())
	rows := gen.Translational(0)
	require.Len(t, rows, 1)
	r := rows[0]
	require.Len(t, r.Elems, 2)
	require.Equal(t, 0, r.Elems[0].Col)
	require.Equal(t, 1, r.Elems[1].Col)
	require.InDelta(t, 1.0, r.Elems[0].Val, 1e-14)
	require.InDelta(t, 1.0, r.Elems[1].Val, 1e-14)
	require.Zero(t, r.RHS)
}

func TestSymmetryCompatibleOpsEmitNothing(t *testing.T) {
	gen := NewGenerator(chain())
	require.Empty(t, gen.Symmetry(0))
}

func TestRotationalLongitudinalTable(t *testing.T) {
	// A table with only x components cannot couple through a rotation;
	// every candidate row cancels.
	gen := NewGenerator(chain())
	rows, err := gen.Rotational("xyz")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRotationalAxes(t *testing.T) {
	gen := NewGenerator(chain())
	_, err := gen.Rotational("")
	require.ErrorIs(t, err, ErrAxis)
	_, err = gen.Rotational("q")
	require.ErrorIs(t, err, ErrAxis)
}

// pairTable keeps all nine Cartesian components of the inter-atom
// coupling as separate parameters, so rotational rows survive.
func pairTable() (*lattice.Cell, *lattice.Symmetry, *lattice.Table) {
	cell, sym, _ := chain()
	var groups []lattice.Group
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			groups = append(groups, lattice.Group{Terms: []lattice.Term{
				{Elems: []int{a, 3 + b}, Sign: 1},
			}})
		}
	}
	return cell, sym, &lattice.Table{Groups: [][]lattice.Group{groups}}
}

func TestRotationalRows(t *testing.T) {
	gen := NewGenerator(pairTable())
	rows, err := gen.Rotational("z")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	ntotal := gen.Table.NTotal()
	for _, r := range rows {
		require.NotEmpty(t, r.Elems)
		require.InDelta(t, 1.0, r.Elems[0].Val, 1e-14)
		for _, e := range r.Elems {
			require.GreaterOrEqual(t, e.Col, 0)
			require.Less(t, e.Col, ntotal)
		}
	}
}

func TestRotationalDropsDependentAxis(t *testing.T) {
	gen := NewGenerator(pairTable())
	all, err := gen.Rotational("xyz")
	require.NoError(t, err)
	two, err := gen.Rotational("xy")
	require.NoError(t, err)
	require.Equal(t, len(two), len(all))
}
