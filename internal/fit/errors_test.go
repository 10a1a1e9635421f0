// Public domain.

package fit

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/soniakeys/mapds/internal/models"
)

func TestAssignErrors(t *testing.T) {
	o := &objective{
		free: models.Parameters{
			models.NewParameter("amplitude", 1e-12, "cm-2 s-1 TeV-1"),
			models.NewParameter("index", 2, ""),
		},
		scale: []float64{1e-12, 2},
	}
	o.free[0].Error, o.free[1].Error = .1, .2
	// second variance negative
	if err := o.assignErrors(mat.NewSymDense(2, []float64{2, 0, 0, -.5})); err == nil {
		t.Fatal("expected error for negative variance")
	}
	if o.free[0].Error != .1 || o.free[1].Error != .2 {
		t.Fatal("errors changed", o.free[0].Error, o.free[1].Error)
	}
	if err := o.assignErrors(mat.NewSymDense(2, []float64{2, 0, 0, .5})); err != nil {
		t.Fatal(err)
	}
	if o.free[0].Error != 2e-12 || o.free[1].Error != 2 {
		t.Fatal(o.free[0].Error, o.free[1].Error)
	}
}
