// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package design

import (
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quasiflux/latfit/constraint"
	"github.com/quasiflux/latfit/lattice"
)

// Builder assembles design matrices from displacement-force snapshots.
// Snapshots are distributed over Workers goroutines; each worker owns a
// disjoint block of rows, so dense assembly needs no locking.
//
// DispScale, when non-zero, divides every displacement during assembly.
// Solutions obtained from a scaled matrix must be unscaled per order by
// the caller.
type Builder struct {
	Cell      *lattice.Cell
	Sym       *lattice.Symmetry
	Table     *lattice.Table
	Workers   int
	DispScale float64
}

// NRows returns the number of matrix rows a dataset produces: three
// force components per primitive-cell atom per snapshot.
func (bd *Builder) NRows(ds *lattice.Dataset) int {
	return 3 * bd.Sym.NPrim * ds.NData()
}

func (bd *Builder) check(ds *lattice.Dataset) error {
	if bd.Workers <= 0 {
		return ErrWorkers
	}
	if err := ds.Validate(); err != nil {
		return err
	}
	if len(ds.Disp[0]) != 3*bd.Cell.NAtoms {
		return ErrShape
	}
	return nil
}

func (bd *Builder) invScale() float64 {
	if bd.DispScale == 0 || bd.DispScale == 1 {
		return 1
	}
	return 1 / bd.DispScale
}

// emit calls fn for every matrix contribution of one snapshot: the row
// inside the snapshot block, the full-space column and the value
// -gamma * sign * prod(u). The leading index of each term selects the
// force row, the trailing indices the displacement product.
func (bd *Builder) emit(u []float64, fn func(row, col int, v float64)) {
	inv := bd.invScale()
	for order := range bd.Table.Groups {
		off := bd.Table.Offset(order)
		for col, grp := range bd.Table.Groups[order] {
			for _, term := range grp.Terms {
				site := bd.Sym.MapS2P[term.Elems[0]/3]
				if site.Tran != 0 {
					continue
				}
				v := -Gamma(term.Elems) * term.Sign
				for _, e := range term.Elems[1:] {
					v *= u[e] * inv
				}
				if v == 0 {
					continue
				}
				fn(3*site.Prim+term.Elems[0]%3, off+col, v)
			}
		}
	}
}

// rhs fills the force block of one snapshot.
func (bd *Builder) rhs(f []float64, b []float64) {
	for p := 0; p < bd.Sym.NPrim; p++ {
		iat := bd.Sym.MapP2S[p][0]
		for k := 0; k < 3; k++ {
			b[3*p+k] = f[3*iat+k]
		}
	}
}

// parallel runs fn over snapshot index ranges split across the workers.
func (bd *Builder) parallel(ndata int, fn func(lo, hi int)) {
	var eg errgroup.Group
	chunk := (ndata + bd.Workers - 1) / bd.Workers
	for lo := 0; lo < ndata; lo += chunk {
		lo, hi := lo, min(lo+chunk, ndata)
		eg.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = eg.Wait()
}

// Dense assembles the full-space matrix and right-hand side.
func (bd *Builder) Dense(ds *lattice.Dataset) (*Matrix, []float64, error) {
	if err := bd.check(ds); err != nil {
		return nil, nil, err
	}
	nrowPer := 3 * bd.Sym.NPrim
	m := NewMatrix(nrowPer*ds.NData(), bd.Table.NTotal())
	b := make([]float64, m.Rows)
	bd.parallel(ds.NData(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			base := nrowPer * i
			bd.emit(ds.Disp[i], func(row, col int, v float64) {
				m.Data[col*m.Rows+base+row] += v
			})
			bd.rhs(ds.Force[i], b[base:base+nrowPer])
		}
	})
	return m, b, nil
}

// projection resolves full-space columns against a mapping set once, so
// assembly can route every contribution without map lookups.
type projection struct {
	kind []projKind
	val  []float64 // fixed value or related offset
	free []int     // global free index for free columns
	src  [][]int   // global free indices for related columns
	coef [][]float64
}

type projKind uint8

const (
	projFree projKind = iota
	projFixed
	projRelated
)

func newProjection(table *lattice.Table, maps *constraint.MappingSet) *projection {
	n := table.NTotal()
	p := &projection{
		kind: make([]projKind, n),
		val:  make([]float64, n),
		free: make([]int, n),
		src:  make([][]int, n),
		coef: make([][]float64, n),
	}
	offFull, offFree := 0, 0
	for _, m := range maps.Orders {
		for _, f := range m.Fixed {
			p.kind[offFull+f.Col] = projFixed
			p.val[offFull+f.Col] = f.Val
		}
		for c, i := range m.FullToFree {
			p.kind[offFull+c] = projFree
			p.free[offFull+c] = offFree + i
		}
		for _, r := range m.Related {
			c := offFull + r.Col
			p.kind[c] = projRelated
			p.val[c] = r.Val
			for k, s := range r.Src {
				p.src[c] = append(p.src[c], offFree+m.FullToFree[s])
				p.coef[c] = append(p.coef[c], r.Coef[k])
			}
		}
		offFull += m.N
		offFree += m.NFree()
	}
	return p
}

// DenseFree assembles the matrix directly in the free parameter space:
// fixed columns fold into the right-hand side, related columns
// accumulate into the free columns they depend on.
func (bd *Builder) DenseFree(ds *lattice.Dataset, maps *constraint.MappingSet) (*Matrix, []float64, error) {
	if err := bd.check(ds); err != nil {
		return nil, nil, err
	}
	proj := newProjection(bd.Table, maps)
	nrowPer := 3 * bd.Sym.NPrim
	m := NewMatrix(nrowPer*ds.NData(), maps.NFree())
	b := make([]float64, m.Rows)
	bd.parallel(ds.NData(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			base := nrowPer * i
			bd.rhs(ds.Force[i], b[base:base+nrowPer])
			bd.emit(ds.Disp[i], func(row, col int, v float64) {
				r := base + row
				switch proj.kind[col] {
				case projFixed:
					b[r] -= v * proj.val[col]
				case projFree:
					m.Data[proj.free[col]*m.Rows+r] += v
				case projRelated:
					b[r] -= v * proj.val[col]
					for k, s := range proj.src[col] {
						m.Data[s*m.Rows+r] += v * proj.coef[col][k]
					}
				}
			})
		}
	})
	return m, b, nil
}

// Sparse assembles the free-space matrix in coordinate form. Each
// worker accumulates one snapshot block densely, emits the entries that
// survive the drop tolerance into a private batch and merges batches
// under the lock.
func (bd *Builder) Sparse(ds *lattice.Dataset, maps *constraint.MappingSet) ([]Triplet, []float64, error) {
	if err := bd.check(ds); err != nil {
		return nil, nil, err
	}
	proj := newProjection(bd.Table, maps)
	nrowPer := 3 * bd.Sym.NPrim
	nfree := maps.NFree()
	b := make([]float64, nrowPer*ds.NData())

	var mu sync.Mutex
	var all []Triplet
	bd.parallel(ds.NData(), func(lo, hi int) {
		block := make([]float64, nrowPer*nfree)
		var batch []Triplet
		for i := lo; i < hi; i++ {
			base := nrowPer * i
			bd.rhs(ds.Force[i], b[base:base+nrowPer])
			for k := range block {
				block[k] = 0
			}
			bd.emit(ds.Disp[i], func(row, col int, v float64) {
				switch proj.kind[col] {
				case projFixed:
					b[base+row] -= v * proj.val[col]
				case projFree:
					block[proj.free[col]*nrowPer+row] += v
				case projRelated:
					b[base+row] -= v * proj.val[col]
					for k, s := range proj.src[col] {
						block[s*nrowPer+row] += v * proj.coef[col][k]
					}
				}
			})
			for j := 0; j < nfree; j++ {
				for r := 0; r < nrowPer; r++ {
					if v := block[j*nrowPer+r]; math.Abs(v) > dropTol {
						batch = append(batch, Triplet{Row: base + r, Col: j, Val: v})
					}
				}
			}
		}
		mu.Lock()
		all = append(all, batch...)
		mu.Unlock()
	})
	return all, b, nil
}
