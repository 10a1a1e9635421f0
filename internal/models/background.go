// Public domain.

package models

import (
	"fmt"
	"math"

	"github.com/soniakeys/mapds/internal/maps"
)

// BackgroundModel scales a background counts map by
// norm * (E/reference)^-tilt.
type BackgroundModel struct {
	name         string
	Map          *maps.Map
	params       Parameters
	DatasetNames []string
}

// NewBackgroundModel wraps m with norm 1 and a frozen tilt of 0.  An
// empty name is replaced by a unique one.
func NewBackgroundModel(m *maps.Map, name string, datasetNames ...string) *BackgroundModel {
	if name == "" {
		name = MakeName()
	}
	norm := NewParameter("norm", 1, "")
	norm.Min = 0
	tilt := NewParameter("tilt", 0, "")
	tilt.Frozen = true
	ref := NewParameter("reference", 1, "TeV")
	ref.Frozen = true
	return &BackgroundModel{
		name:         name,
		Map:          m,
		params:       Parameters{norm, tilt, ref},
		DatasetNames: append([]string{}, datasetNames...),
	}
}

func (b *BackgroundModel) Name() string            { return b.name }
func (b *BackgroundModel) Tag() string             { return "BackgroundModel" }
func (b *BackgroundModel) Parameters() Parameters  { return b.params }
func (b *BackgroundModel) DatasetsNames() []string { return b.DatasetNames }
func (b *BackgroundModel) Norm() *Parameter        { return b.params[0] }
func (b *BackgroundModel) Tilt() *Parameter        { return b.params[1] }

// Copy copies the map and parameters.
func (b *BackgroundModel) Copy(name string) Model {
	if name == "" {
		name = MakeName()
	}
	return &BackgroundModel{
		name:         name,
		Map:          b.Map.Copy(),
		params:       b.params.Copy(),
		DatasetNames: append([]string{}, b.DatasetNames...),
	}
}

// Evaluate returns the scaled background map.  Without an energy axis the
// tilt does not apply.
func (b *BackgroundModel) Evaluate() *maps.Map {
	r := b.Map.Copy()
	norm, tilt, ref := b.params[0].Value, b.params[1].Value, b.params[2].Value
	e, ie, err := r.Geom.AxisByName("energy")
	if err != nil || tilt == 0 {
		return r.Scale(norm)
	}
	for k := 0; k < r.Geom.NBands(); k++ {
		f := norm * math.Pow(e.Center(r.Geom.AxisIndexes(k)[ie])/ref, -tilt)
		band := r.Band(k)
		for i := range band {
			band[i] *= f
		}
	}
	return r
}

func (b *BackgroundModel) String() string {
	return fmt.Sprintf("BackgroundModel %s datasets %v\n%v", b.name, b.DatasetNames, b.params)
}
