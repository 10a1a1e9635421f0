// Public domain.

package models

import (
	"fmt"
	"strings"
)

// Model is a named component of a model collection.
type Model interface {
	Name() string
	Tag() string
	Parameters() Parameters
	// Copy returns a deep copy named name, or a fresh unique name when
	// name is empty.
	Copy(name string) Model
	// DatasetsNames lists the datasets the model applies to; empty means
	// all.
	DatasetsNames() []string
}

// SkyModel is a source: a spatial model times a spectral model.
type SkyModel struct {
	name         string
	Spatial      SpatialModel
	Spectral     SpectralModel
	DatasetNames []string
}

// NewSkyModel assembles a sky model.  An empty name is replaced by a
// unique one.
func NewSkyModel(spatial SpatialModel, spectral SpectralModel, name string) *SkyModel {
	if name == "" {
		name = MakeName()
	}
	return &SkyModel{name: name, Spatial: spatial, Spectral: spectral}
}

func (m *SkyModel) Name() string            { return m.name }
func (m *SkyModel) Tag() string             { return "SkyModel" }
func (m *SkyModel) DatasetsNames() []string { return m.DatasetNames }

// Parameters lists spatial then spectral parameters.
func (m *SkyModel) Parameters() Parameters {
	var ps Parameters
	if m.Spatial != nil {
		ps = append(ps, m.Spatial.Parameters()...)
	}
	if m.Spectral != nil {
		ps = append(ps, m.Spectral.Parameters()...)
	}
	return ps
}

func (m *SkyModel) Copy(name string) Model {
	if name == "" {
		name = MakeName()
	}
	c := &SkyModel{name: name, DatasetNames: append([]string{}, m.DatasetNames...)}
	if m.Spatial != nil {
		c.Spatial = m.Spatial.copySpatial()
	}
	if m.Spectral != nil {
		c.Spectral = m.Spectral.copySpectral()
	}
	return c
}

func (m *SkyModel) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SkyModel %s\n", m.name)
	if m.Spatial != nil {
		fmt.Fprintf(&b, " %s\n%v", m.Spatial.Tag(), m.Spatial.Parameters())
	}
	if m.Spectral != nil {
		fmt.Fprintf(&b, " %s\n%v", m.Spectral.Tag(), m.Spectral.Parameters())
	}
	return b.String()
}
