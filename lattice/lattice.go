// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lattice holds the structural data model shared by the fitting
// pipeline: the supercell, its space-group symmetry, the tables of
// symmetry-distinct force-constant parameters and the displacement-force
// datasets the model is fitted against.
package lattice

import "math"

// Cell describes the supercell the force constants live on.
// Atom coordinates are Cartesian, one row per atom.
type Cell struct {
	NAtoms int
	XCart  [][3]float64
}

// Operation is one space-group element of the supercell.
//
// Rotation is expressed in the lattice basis and is exactly integer.
// RotationCart is the same rotation as direction cosines in the
// Cartesian frame. Translation is fractional.
type Operation struct {
	Rotation       [3][3]int
	RotationCart   [3][3]float64
	Translation    [3]float64
	IsTranslation  bool
	CompatibleCart bool
}

// SiteMap locates a supercell atom inside the primitive cell:
// atom = MapP2S[Prim][Tran].
type SiteMap struct {
	Prim int
	Tran int
}

// Symmetry bundles the operation list with the atom maps derived from it.
type Symmetry struct {
	Ops   []Operation
	NPrim int

	// TranIndices lists the operations that are pure lattice
	// translations, identity first.
	TranIndices []int

	MapSym [][]int // MapSym[atom][op] = image atom
	MapP2S [][]int // MapP2S[prim][tran] = supercell atom
	MapS2P []SiteMap
}

// NTrans returns the number of pure translations (the supercell
// multiplicity of the primitive cell).
func (s *Symmetry) NTrans() int { return len(s.TranIndices) }

// CartesianCompatible reports whether a Cartesian rotation matrix has
// integer entries only, i.e. maps Cartesian axes onto each other.
// Operations failing this need explicit symmetry constraint rows.
func CartesianCompatible(rc [3][3]float64, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(rc[i][j]-math.Round(rc[i][j])) > tol {
				return false
			}
		}
	}
	return true
}
