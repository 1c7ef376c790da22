// Copyright ©2026 quasiflux. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fit wires the fitting pipeline together: constraint
// generation and reduction, design-matrix assembly and the solver
// dispatch, ending in full-space force constants.
package fit

import (
	"errors"
	"math"
	"runtime"

	"github.com/quasiflux/latfit/constraint"
	"github.com/quasiflux/latfit/design"
	"github.com/quasiflux/latfit/elnet"
	"github.com/quasiflux/latfit/lattice"
	"github.com/quasiflux/latfit/solve"
)

var (
	ErrSolver   = errors.New("fit: unknown solver")
	ErrRotation = errors.New("fit: rotational constraints need the constrained dense solver")
	ErrScale    = errors.New("fit: displacement scaling cannot coexist with pinned values")
	ErrValidate = errors.New("fit: cross-validation needs a validation dataset")
)

// Solver selects the algorithm behind Fit.
type Solver int

const (
	// DenseSVD eliminates the constraints algebraically and solves the
	// free system by minimum-norm SVD.
	DenseSVD Solver = iota
	// DenseConstrained keeps the constraints explicit and solves the
	// equality-constrained problem in the full space.
	DenseConstrained
	// SparseCholesky eliminates the constraints algebraically and
	// solves the normal equations of the sparse free system.
	SparseCholesky
	// ElasticNet eliminates the constraints algebraically and fits the
	// free system with an l1/l2 penalty.
	ElasticNet
)

// Config assembles a fitting run. New validates it into a Fitter.
type Config struct {
	Solver  Solver
	Workers int
	// RotationAxes enables rotational invariance rows about the named
	// axes ("x", "xy", "xyz", ...). Empty disables them. Only the
	// constrained dense solver can honor them since they couple
	// interaction orders.
	RotationAxes string
	// Pinned rows fix parameters to reference values, order-local
	// columns per entry.
	Pinned map[int][]*constraint.Row
	// DispScale divides displacements during elastic-net assembly to
	// condition the columns; solutions are unscaled transparently.
	DispScale float64
	// ElasticNet carries the penalty controls when Solver is ElasticNet.
	ElasticNet elnet.Options
}

// Fitter is a validated, immutable fitting pipeline.
type Fitter struct {
	cfg   Config
	cell  *lattice.Cell
	sym   *lattice.Symmetry
	table *lattice.Table
	gen   *constraint.Generator
	maps  *constraint.MappingSet
	rot   []*constraint.Row
}

// Result reports a finished fit in the full parameter space.
type Result struct {
	Params       []float64
	Status       solve.Status
	Rank         int
	ResidualNorm float64
	FitError     float64 // percent
	Iters        int     // elastic net only
	ZeroCounts   []int   // per order, elastic net only
	CV           *elnet.CV
}

// New validates the configuration, generates the constraints of every
// order and reduces them into the parameter partition. The returned
// fitter can run any number of datasets.
func (c Config) New(cell *lattice.Cell, sym *lattice.Symmetry, table *lattice.Table) (*Fitter, error) {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Solver < DenseSVD || c.Solver > ElasticNet {
		return nil, ErrSolver
	}
	if c.RotationAxes != "" && c.Solver != DenseConstrained {
		return nil, ErrRotation
	}

	f := &Fitter{
		cfg:   c,
		cell:  cell,
		sym:   sym,
		table: table,
		gen:   constraint.NewGenerator(cell, sym, table),
		maps:  &constraint.MappingSet{},
	}
	for order := 0; order < table.MaxOrder(); order++ {
		rows := f.gen.Translational(order)
		rows = append(rows, f.gen.Symmetry(order)...)
		rows = append(rows, c.Pinned[order]...)
		reduced, err := constraint.Reduce(rows)
		if err != nil {
			return nil, err
		}
		m, err := constraint.NewMapping(table.NParams(order), reduced)
		if err != nil {
			return nil, err
		}
		if err := m.Verify(); err != nil {
			return nil, err
		}
		if c.DispScale != 0 && c.DispScale != 1 {
			for _, fx := range m.Fixed {
				if fx.Val != 0 {
					return nil, ErrScale
				}
			}
		}
		f.maps.Orders = append(f.maps.Orders, m)
	}
	if c.RotationAxes != "" {
		rot, err := f.gen.Rotational(c.RotationAxes)
		if err != nil {
			return nil, err
		}
		f.rot = rot
	}
	return f, nil
}

// Mappings exposes the reduced parameter partition.
func (f *Fitter) Mappings() *constraint.MappingSet { return f.maps }

// Fit runs the configured solver on one dataset and expands the
// solution to the full parameter space.
func (f *Fitter) Fit(ds *lattice.Dataset) (*Result, error) {
	if f.cfg.Solver == ElasticNet && f.cfg.ElasticNet.Alpha <= 0 {
		return nil, ErrValidate // penalty sweeps go through FitValidate
	}
	data := ds.Replicate(f.sym)
	switch f.cfg.Solver {
	case DenseSVD:
		return f.fitSVD(data)
	case DenseConstrained:
		return f.fitConstrained(data)
	case SparseCholesky:
		return f.fitSparse(data)
	case ElasticNet:
		return f.fitElastic(data)
	}
	return nil, ErrSolver
}

// FitValidate runs the cross-validated elastic-net sweep with a
// held-out validation dataset.
func (f *Fitter) FitValidate(train, valid *lattice.Dataset) (*Result, error) {
	if f.cfg.Solver != ElasticNet {
		return nil, ErrSolver
	}
	bt := f.builder(true)
	aT, bT, err := bt.DenseFree(train.Replicate(f.sym), f.maps)
	if err != nil {
		return nil, err
	}
	aV, bV, err := bt.DenseFree(valid.Replicate(f.sym), f.maps)
	if err != nil {
		return nil, err
	}
	opts := f.elasticOptions()
	cv, err := elnet.CrossValidate(aT, bT, aV, bV, opts)
	if err != nil {
		return nil, err
	}
	free := f.unscaleFree(cv.Best.Coefs)
	full, err := f.maps.Expand(free)
	if err != nil {
		return nil, err
	}
	return &Result{
		Params:     full,
		Status:     descentStatus(cv.Best.Converged),
		Iters:      cv.Best.Iters,
		ZeroCounts: cv.Best.ZeroCounts,
		CV:         cv,
	}, nil
}

func (f *Fitter) builder(scaled bool) *design.Builder {
	b := &design.Builder{
		Cell:    f.cell,
		Sym:     f.sym,
		Table:   f.table,
		Workers: f.cfg.Workers,
	}
	if scaled {
		b.DispScale = f.cfg.DispScale
	}
	return b
}

func (f *Fitter) fitSVD(ds *lattice.Dataset) (*Result, error) {
	a, b, err := f.builder(false).DenseFree(ds, f.maps)
	if err != nil {
		return nil, err
	}
	res, err := solve.SVD(a, b)
	if err != nil {
		return nil, err
	}
	return f.expand(res)
}

func (f *Fitter) fitConstrained(ds *lattice.Dataset) (*Result, error) {
	a, b, err := f.builder(false).Dense(ds)
	if err != nil {
		return nil, err
	}
	rows := f.fullSpaceRows()
	reduced, err := constraint.Reduce(rows)
	if err != nil {
		return nil, err
	}
	cmat, d := design.FromRows(reduced, f.table.NTotal())
	res, err := solve.Constrained(a, b, cmat, d)
	if err != nil {
		return nil, err
	}
	return &Result{
		Params:       res.Params,
		Status:       res.Status,
		Rank:         res.Rank,
		ResidualNorm: res.ResidualNorm,
		FitError:     res.FitError,
	}, nil
}

func (f *Fitter) fitSparse(ds *lattice.Dataset) (*Result, error) {
	trips, b, err := f.builder(false).Sparse(ds, f.maps)
	if err != nil {
		return nil, err
	}
	res, err := solve.Sparse(trips, len(b), f.maps.NFree(), b)
	if err != nil {
		return nil, err
	}
	return f.expand(res)
}

func (f *Fitter) fitElastic(ds *lattice.Dataset) (*Result, error) {
	a, b, err := f.builder(true).DenseFree(ds, f.maps)
	if err != nil {
		return nil, err
	}
	fitted, err := elnet.Solve(a, b, f.elasticOptions())
	if err != nil {
		return nil, err
	}
	free := f.unscaleFree(fitted.Coefs)
	full, err := f.maps.Expand(free)
	if err != nil {
		return nil, err
	}
	return &Result{
		Params:     full,
		Status:     descentStatus(fitted.Converged),
		Iters:      fitted.Iters,
		ZeroCounts: fitted.ZeroCounts,
	}, nil
}

// descentStatus reports a hit iteration limit without failing the fit:
// the current iterate is still returned.
func descentStatus(converged bool) solve.Status {
	if converged {
		return solve.Solved
	}
	return solve.IterationLimit
}

func (f *Fitter) elasticOptions() elnet.Options {
	opts := f.cfg.ElasticNet
	opts.OrderOf = f.orderOfFree()
	return opts
}

// orderOfFree labels every free column with its interaction order.
func (f *Fitter) orderOfFree() []int {
	out := make([]int, 0, f.maps.NFree())
	for order, m := range f.maps.Orders {
		for i := 0; i < m.NFree(); i++ {
			out = append(out, order)
		}
	}
	return out
}

// unscaleFree undoes the displacement scaling per order: an order-n
// column carries n+1 displacement factors.
func (f *Fitter) unscaleFree(free []float64) []float64 {
	s := f.cfg.DispScale
	if s == 0 || s == 1 {
		return free
	}
	out := append([]float64(nil), free...)
	at := 0
	for order, m := range f.maps.Orders {
		inv := math.Pow(s, -float64(order+1))
		for i := 0; i < m.NFree(); i++ {
			out[at] *= inv
			at++
		}
	}
	return out
}

// fullSpaceRows offsets the per-order algebraic rows into global
// columns and appends the rotational rows.
func (f *Fitter) fullSpaceRows() []*constraint.Row {
	var rows []*constraint.Row
	for order := 0; order < f.table.MaxOrder(); order++ {
		off := f.table.Offset(order)
		local := f.gen.Translational(order)
		local = append(local, f.gen.Symmetry(order)...)
		local = append(local, f.cfg.Pinned[order]...)
		for _, r := range local {
			shifted := &constraint.Row{RHS: r.RHS}
			for _, e := range r.Elems {
				shifted.Elems = append(shifted.Elems, constraint.Element{Col: off + e.Col, Val: e.Val})
			}
			rows = append(rows, shifted)
		}
	}
	return append(rows, f.rot...)
}

func (f *Fitter) expand(res *solve.Result) (*Result, error) {
	full, err := f.maps.Expand(res.Params)
	if err != nil {
		return nil, err
	}
	return &Result{
		Params:       full,
		Status:       res.Status,
		Rank:         res.Rank,
		ResidualNorm: res.ResidualNorm,
		FitError:     res.FitError,
	}, nil
}
