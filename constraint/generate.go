// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package constraint

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/quasiflux/latfit/lattice"
)

// Generator emits constraint rows for the parameters of a table.
//
// Translational and symmetry rows carry order-local columns and feed
// the algebraic reduction of their order. Rotational rows couple
// neighbouring orders and carry full-space columns; they are meant for
// the explicitly constrained dense solver.
type Generator struct {
	Cell  *lattice.Cell
	Sym   *lattice.Symmetry
	Table *lattice.Table
	Index *lattice.TermIndex
}

// NewGenerator builds a generator with a fresh tuple index.
func NewGenerator(cell *lattice.Cell, sym *lattice.Symmetry, table *lattice.Table) *Generator {
	return &Generator{
		Cell:  cell,
		Sym:   sym,
		Table: table,
		Index: lattice.NewTermIndex(table),
	}
}

// Translational emits the acoustic sum rules of one order: for every
// distinct index prefix, the force constant summed over all periodic
// images of the remaining atom index vanishes.
func (g *Generator) Translational(order int) []*Row {
	nat := g.Cell.NAtoms
	seen := make(map[string]struct{})
	var rows []*Row
	for _, grp := range g.Table.Groups[order] {
		for _, term := range grp.Terms {
			if g.Sym.MapS2P[term.Elems[0]/3].Tran != 0 {
				continue
			}
			// Any trailing index may play the summed slot.
			for slot := 1; slot < len(term.Elems); slot++ {
				prefix := make([]int, 0, len(term.Elems)-1)
				for k, e := range term.Elems {
					if k != slot {
						prefix = append(prefix, e)
					}
				}
				dir := term.Elems[slot] % 3
				key := prefixKey(prefix, dir)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				if r := g.sumRule(order, prefix, dir, nat); r != nil {
					rows = append(rows, r)
				}
			}
		}
	}
	return Dedupe(rows)
}

func (g *Generator) sumRule(order int, prefix []int, dir, nat int) *Row {
	r := &Row{}
	tuple := make([]int, len(prefix)+1)
	copy(tuple, prefix)
	for jat := 0; jat < nat; jat++ {
		tuple[len(prefix)] = 3*jat + dir
		if col, sign, ok := g.Index.Find(order, tuple); ok {
			r.Elems = append(r.Elems, Element{col, sign})
		}
	}
	r.canon(tolStruct)
	if len(r.Elems) == 0 {
		return nil
	}
	return r
}

// Symmetry emits rows forcing the order-n parameters to be invariant
// under the space-group operations whose Cartesian rotation is not a
// signed axis permutation. Compatible operations are already folded
// into the parameter table and produce nothing here.
func (g *Generator) Symmetry(order int) []*Row {
	var rows []*Row
	for is, op := range g.Sym.Ops {
		if op.IsTranslation || op.CompatibleCart {
			continue
		}
		for col, grp := range g.Table.Groups[order] {
			rep := grp.Terms[0]
			rows = append(rows, g.symmetryRows(order, col, rep, is, &op)...)
		}
	}
	return Dedupe(rows)
}

// symmetryRows relates the representative tuple of one parameter to its
// images under one operation, one row per target direction combination.
func (g *Generator) symmetryRows(order, col int, rep lattice.Term, is int, op *lattice.Operation) []*Row {
	n := len(rep.Elems)
	atoms := make([]int, n)
	dirs := make([]int, n)
	for k, e := range rep.Elems {
		atoms[k] = g.Sym.MapSym[e/3][is]
		dirs[k] = e % 3
	}
	g.toPrimitive(atoms)

	var rows []*Row
	target := make([]int, n)
	tuple := make([]int, n)
	for combo := 0; combo < pow3(n); combo++ {
		decode3(combo, target)
		for k := range target {
			tuple[k] = 3*atoms[k] + target[k]
		}
		r := &Row{}
		if lc, ls, ok := g.Index.Find(order, tuple); ok {
			r.Elems = append(r.Elems, Element{lc, ls})
		}
		// Subtract the rotated originals.
		src := make([]int, n)
		for c := 0; c < pow3(n); c++ {
			decode3(c, src)
			coef := 1.0
			for k := range src {
				coef *= op.RotationCart[target[k]][src[k]]
			}
			if math.Abs(coef) < tolStruct {
				continue
			}
			for k := range src {
				tuple[k] = (rep.Elems[k]/3)*3 + src[k]
			}
			if sc, ss, ok := g.Index.Find(order, tuple); ok {
				r.Elems = append(r.Elems, Element{sc, -coef * ss})
			}
		}
		r.canon(tolStruct)
		if len(r.Elems) > 0 {
			rows = append(rows, r)
		}
	}
	return rows
}

// toPrimitive shifts the atom set by the inverse of the lattice
// translation that carries the first atom out of the primitive cell.
func (g *Generator) toPrimitive(atoms []int) {
	tran := g.Sym.MapS2P[atoms[0]].Tran
	if tran == 0 {
		return
	}
	isym := g.Sym.TranIndices[tran]
	inv := make(map[int]int, len(g.Sym.MapSym))
	for a := range g.Sym.MapSym {
		inv[g.Sym.MapSym[a][isym]] = a
	}
	for k, a := range atoms {
		atoms[k] = inv[a]
	}
}

// Rotational emits the invariance rows of the potential under an
// infinitesimal rotation about the requested axes ("x", "y", "z" or any
// combination). Each row mixes order-n terms with order-(n+1) terms
// weighted by atom coordinates; columns are full-space. When all three
// axes are requested the last is dropped as linearly dependent on the
// other two.
func (g *Generator) Rotational(axes string) ([]*Row, error) {
	mus, err := parseAxes(axes)
	if err != nil {
		return nil, err
	}
	var rows []*Row
	maxOrder := g.Table.MaxOrder()
	// Prefix length L indexes order L-2; L=1 couples only into the
	// harmonic cross term since first-order constants vanish at
	// equilibrium.
	for l := 1; l <= maxOrder+1; l++ {
		selfOrder := l - 2
		crossOrder := l - 1
		if selfOrder >= maxOrder {
			break
		}
		for _, prefix := range g.prefixes(l) {
			for _, mu := range mus {
				if r := g.rotationalRow(prefix, mu, selfOrder, crossOrder, maxOrder); r != nil {
					rows = append(rows, r)
				}
			}
		}
	}
	return Dedupe(rows), nil
}

func (g *Generator) rotationalRow(prefix []int, mu, selfOrder, crossOrder, maxOrder int) *Row {
	r := &Row{}
	// Cross part: sum over an extra atom index weighted by its
	// coordinate through the antisymmetric tensor.
	if crossOrder >= 0 && crossOrder < maxOrder {
		off := g.Table.Offset(crossOrder)
		tuple := make([]int, len(prefix)+1)
		copy(tuple, prefix)
		for jat := 0; jat < g.Cell.NAtoms; jat++ {
			for beta := 0; beta < 3; beta++ {
				w := 0.0
				for gamma := 0; gamma < 3; gamma++ {
					if e := leviCivita(mu, beta, gamma); e != 0 {
						w += float64(e) * g.Cell.XCart[jat][gamma]
					}
				}
				if math.Abs(w) < tolStruct {
					continue
				}
				tuple[len(prefix)] = 3*jat + beta
				if col, sign, ok := g.Index.Find(crossOrder, tuple); ok {
					r.Elems = append(r.Elems, Element{off + col, w * sign})
				}
			}
		}
	}
	// Self part: rotate each existing index in place.
	if selfOrder >= 0 {
		off := g.Table.Offset(selfOrder)
		tuple := make([]int, len(prefix))
		for k := range prefix {
			copy(tuple, prefix)
			ak := prefix[k] % 3
			for beta := 0; beta < 3; beta++ {
				e := leviCivita(mu, ak, beta)
				if e == 0 {
					continue
				}
				tuple[k] = (prefix[k]/3)*3 + beta
				if col, sign, ok := g.Index.Find(selfOrder, tuple); ok {
					r.Elems = append(r.Elems, Element{off + col, float64(e) * sign})
				}
			}
		}
	}
	r.canon(tolStruct)
	if len(r.Elems) == 0 {
		return nil
	}
	return r
}

// prefixes enumerates the distinct index tuples of length l that can
// head a rotational row: every order-(l-2) tuple and every order-(l-1)
// tuple with its last index dropped.
func (g *Generator) prefixes(l int) [][]int {
	seen := make(map[string][]int)
	add := func(p []int) {
		k := prefixKey(p, -1)
		if _, dup := seen[k]; !dup {
			cp := make([]int, len(p))
			copy(cp, p)
			seen[k] = cp
		}
	}
	if l == 1 {
		for p := 0; p < g.Sym.NPrim; p++ {
			iat := g.Sym.MapP2S[p][0]
			for a := 0; a < 3; a++ {
				add([]int{3*iat + a})
			}
		}
	} else if order := l - 2; order >= 0 && order < g.Table.MaxOrder() {
		for _, grp := range g.Table.Groups[order] {
			for _, term := range grp.Terms {
				if g.Sym.MapS2P[term.Elems[0]/3].Tran == 0 {
					add(term.Elems)
				}
			}
		}
	}
	if order := l - 1; order >= 0 && order < g.Table.MaxOrder() {
		for _, grp := range g.Table.Groups[order] {
			for _, term := range grp.Terms {
				if g.Sym.MapS2P[term.Elems[0]/3].Tran == 0 {
					add(term.Elems[:len(term.Elems)-1])
				}
			}
		}
	}
	out := make([][]int, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return out
}

func parseAxes(axes string) ([]int, error) {
	var mus []int
	for _, c := range axes {
		var mu int
		switch c {
		case 'x', 'X':
			mu = 0
		case 'y', 'Y':
			mu = 1
		case 'z', 'Z':
			mu = 2
		default:
			return nil, ErrAxis
		}
		dup := false
		for _, m := range mus {
			dup = dup || m == mu
		}
		if !dup {
			mus = append(mus, mu)
		}
	}
	if len(mus) == 0 {
		return nil, ErrAxis
	}
	if len(mus) == 3 {
		mus = mus[:2]
	}
	return mus, nil
}

func prefixKey(prefix []int, dir int) string {
	tmp := make([]int, len(prefix))
	copy(tmp, prefix)
	if len(tmp) > 1 {
		sort.Ints(tmp[1:])
	}
	buf := make([]byte, 4*(len(tmp)+1))
	for i, e := range tmp {
		binary.BigEndian.PutUint32(buf[4*i:], uint32(e))
	}
	binary.BigEndian.PutUint32(buf[4*len(tmp):], uint32(dir+1))
	return string(buf)
}

func pow3(n int) int {
	p := 1
	for i := 0; i < n; i++ {
		p *= 3
	}
	return p
}

func decode3(combo int, out []int) {
	for k := range out {
		out[k] = combo % 3
		combo /= 3
	}
}
