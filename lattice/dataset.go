// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

import "errors"

var (
	ErrEmptyDataset = errors.New("lattice: dataset holds no records")
	ErrRaggedData   = errors.New("lattice: displacement and force shapes disagree")
)

// Dataset is a set of displacement-force snapshots of the supercell.
// Disp and Force are ndata rows of 3*nat values each.
type Dataset struct {
	Disp  [][]float64
	Force [][]float64
}

// NData returns the number of snapshots.
func (d *Dataset) NData() int { return len(d.Disp) }

// Validate checks the two blocks are rectangular and congruent.
func (d *Dataset) Validate() error {
	if len(d.Disp) == 0 || len(d.Force) == 0 {
		return ErrEmptyDataset
	}
	if len(d.Disp) != len(d.Force) {
		return ErrRaggedData
	}
	w := len(d.Disp[0])
	for i := range d.Disp {
		if len(d.Disp[i]) != w || len(d.Force[i]) != w {
			return ErrRaggedData
		}
	}
	return nil
}

// Replicate expands every snapshot through the pure lattice translations
// of the supercell. Each input row yields NTrans output rows with atom
// values permuted through MapSym, so one primitive cell of data
// constrains every translated copy identically.
func (d *Dataset) Replicate(sym *Symmetry) *Dataset {
	ntran := sym.NTrans()
	nat := len(sym.MapSym)
	out := &Dataset{
		Disp:  make([][]float64, 0, len(d.Disp)*ntran),
		Force: make([][]float64, 0, len(d.Force)*ntran),
	}
	for i := range d.Disp {
		for _, isym := range sym.TranIndices {
			u := make([]float64, 3*nat)
			f := make([]float64, 3*nat)
			for j := 0; j < nat; j++ {
				jat := sym.MapSym[j][isym]
				for k := 0; k < 3; k++ {
					u[3*jat+k] = d.Disp[i][3*j+k]
					f[3*jat+k] = d.Force[i][3*j+k]
				}
			}
			out.Disp = append(out.Disp, u)
			out.Force = append(out.Force, f)
		}
	}
	return out
}
