// Public domain.

// Package fit adjusts free model parameters of datasets to minimize the
// summed fit statistic.
//
// Parameters are optimized in units of their starting values, so that a
// flux amplitude of 1e-12 and a position of 266 deg take comparable
// steps.  Errors come from the inverse of a finite difference Hessian of
// the statistic at the minimum.
package fit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/models"
)

// Backend names the optimizer.
const Backend = "gonum/optimize NelderMead"

// ErrNoFreeParameters is returned by Run when all parameters are frozen.
var ErrNoFreeParameters = errors.New("no free parameters to fit")

// penalty is added to the statistic outside parameter bounds.
const penalty = 1e10

var logger = slog.New(slog.DiscardHandler)

// SetLogger sets the logger for the package.  The default discards.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Fit holds datasets to fit and optimizer settings.
type Fit struct {
	Datasets dataset.Datasets
	// MaxEval limits statistic evaluations.  Zero means no limit.
	MaxEval int
	// Tolerance is the absolute change in statistic at convergence.
	Tolerance float64
}

// New returns a Fit of ds with default settings.
func New(ds dataset.Datasets) *Fit {
	return &Fit{Datasets: ds, MaxEval: 5000, Tolerance: 1e-6}
}

// Result summarizes an optimization.
type Result struct {
	Success    bool
	Message    string
	TotalStat  float64
	NFev       int
	Parameters models.Parameters // copies of the free parameters, with errors
	Backend    string
}

func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "OptimizeResult\n\n")
	fmt.Fprintf(&b, "  backend    : %s\n", r.Backend)
	fmt.Fprintf(&b, "  success    : %t\n", r.Success)
	fmt.Fprintf(&b, "  message    : %s\n", r.Message)
	fmt.Fprintf(&b, "  nfev       : %d\n", r.NFev)
	fmt.Fprintf(&b, "  total stat : %.2f\n", r.TotalStat)
	b.WriteString(r.Parameters.String())
	return b.String()
}

// objective evaluates the statistic on scaled parameter values.
type objective struct {
	ds    dataset.Datasets
	free  models.Parameters
	scale []float64
	err   error
}

func (o *objective) set(x []float64) bool {
	in := true
	for i, p := range o.free {
		v := x[i] * o.scale[i]
		if !p.InBounds(v) {
			in = false
		}
		p.Value = v
	}
	return in
}

func (o *objective) stat(x []float64) float64 {
	in := o.set(x)
	s, err := o.ds.StatSum()
	if err != nil {
		if o.err == nil {
			o.err = err
		}
		return math.Inf(1)
	}
	if !in {
		s += penalty
	}
	return s
}

// Run minimizes the total statistic over the free parameters.  On return
// the parameters hold the best values found and, if the Hessian could be
// inverted, their errors.  Cancelling ctx stops the optimizer.
func (f *Fit) Run(ctx context.Context) (*Result, error) {
	free := f.Datasets.Parameters().Free()
	if len(free) == 0 {
		return nil, ErrNoFreeParameters
	}
	o := &objective{ds: f.Datasets, free: free, scale: make([]float64, len(free))}
	x0 := make([]float64, len(free))
	for i, p := range free {
		o.scale[i] = math.Abs(p.Value)
		if o.scale[i] == 0 {
			o.scale[i] = 1
		}
		x0[i] = p.Value / o.scale[i]
	}
	if s := o.stat(x0); o.err != nil {
		return nil, o.err
	} else if math.IsInf(s, 0) || math.IsNaN(s) {
		return nil, fmt.Errorf("statistic at start is %g", s)
	}
	prob := optimize.Problem{
		Func: o.stat,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			if o.err != nil {
				return optimize.Failure, o.err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: f.MaxEval,
		Converger: &optimize.FunctionConverge{
			Absolute:   f.Tolerance,
			Iterations: 50,
		},
	}
	logger.Debug("fit start", "free", len(free), "datasets", len(f.Datasets))
	res, err := optimize.Minimize(prob, x0, settings, &optimize.NelderMead{})
	if res == nil {
		return nil, err
	}
	r := &Result{
		Success: err == nil && res.Status != optimize.FunctionEvaluationLimit,
		Message: res.Status.String(),
		NFev:    res.Stats.FuncEvaluations,
		Backend: Backend,
	}
	if err != nil {
		r.Message = err.Error()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	o.set(res.X)
	if r.TotalStat, err = f.Datasets.StatSum(); err != nil {
		return nil, err
	}
	if err := o.setErrors(res.X); err != nil {
		logger.Debug("no parameter errors", "err", err)
	}
	o.set(res.X)
	r.Parameters = free.Copy()
	logger.Debug("fit done", "success", r.Success, "nfev", r.NFev, "stat", r.TotalStat)
	return r, nil
}

// setErrors sets parameter errors from the covariance 2 H^-1 of the
// statistic, where H is its Hessian at x.  On error no parameter error
// is changed.
func (o *objective) setErrors(x []float64) error {
	n := len(x)
	h := mat.NewSymDense(n, nil)
	fd.Hessian(h, o.stat, x, &fd.Settings{Step: 1e-3})
	if o.err != nil {
		return o.err
	}
	var cov mat.Dense
	if err := cov.Inverse(h); err != nil {
		return err
	}
	return o.assignErrors(&cov)
}

// assignErrors sets each free parameter error to sqrt(2 cov_ii) in
// parameter units, or none of them if any variance is negative.
func (o *objective) assignErrors(cov mat.Matrix) error {
	errs := make([]float64, len(o.free))
	for i, p := range o.free {
		v := 2 * cov.At(i, i)
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("parameter %s: negative variance", p.Name)
		}
		errs[i] = math.Sqrt(v) * o.scale[i]
	}
	for i, p := range o.free {
		p.Error = errs[i]
	}
	return nil
}
