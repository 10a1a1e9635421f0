// Public domain.

package models

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/soniakeys/mapds/internal/geom"
)

// Models is an ordered collection of models.  Names should be unique.
type Models []Model

// Names lists model names in order.
func (ms Models) Names() []string {
	n := make([]string, len(ms))
	for i, m := range ms {
		n[i] = m.Name()
	}
	return n
}

// Get returns the model with the given name, or nil.
func (ms Models) Get(name string) Model {
	for _, m := range ms {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// Parameters concatenates the parameters of all models.
func (ms Models) Parameters() Parameters {
	var ps Parameters
	for _, m := range ms {
		ps = append(ps, m.Parameters()...)
	}
	return ps
}

// Copy deep copies every model, keeping names.
func (ms Models) Copy() Models {
	if ms == nil {
		return nil
	}
	c := make(Models, len(ms))
	for i, m := range ms {
		c[i] = m.Copy(m.Name())
	}
	return c
}

// SkyModels selects the sky models.
func (ms Models) SkyModels() []*SkyModel {
	var s []*SkyModel
	for _, m := range ms {
		if sm, ok := m.(*SkyModel); ok {
			s = append(s, sm)
		}
	}
	return s
}

// BackgroundModels selects the background models.
func (ms Models) BackgroundModels() []*BackgroundModel {
	var s []*BackgroundModel
	for _, m := range ms {
		if bm, ok := m.(*BackgroundModel); ok {
			s = append(s, bm)
		}
	}
	return s
}

// ForDataset selects models that apply to the named dataset.
func (ms Models) ForDataset(name string) Models {
	var s Models
	for _, m := range ms {
		dn := m.DatasetsNames()
		if len(dn) == 0 {
			s = append(s, m)
			continue
		}
		for _, n := range dn {
			if n == name {
				s = append(s, m)
				break
			}
		}
	}
	return s
}

func (ms Models) String() string {
	var b strings.Builder
	for i, m := range ms {
		fmt.Fprintf(&b, "Component %d: %v\n", i, m)
	}
	return b.String()
}

// yaml document layout

type componentYAML struct {
	Name          string      `yaml:"name"`
	Type          string      `yaml:"type"`
	DatasetsNames []string    `yaml:"datasets_names,omitempty"`
	Spatial       *partYAML   `yaml:"spatial,omitempty"`
	Spectral      *partYAML   `yaml:"spectral,omitempty"`
	Parameters    []Parameter `yaml:"parameters,omitempty"`
}

type partYAML struct {
	Type       string      `yaml:"type"`
	Frame      string      `yaml:"frame,omitempty"`
	Parameters []Parameter `yaml:"parameters"`
}

type modelsYAML struct {
	Components []componentYAML `yaml:"components"`
}

func paramValues(ps Parameters) []Parameter {
	v := make([]Parameter, len(ps))
	for i, p := range ps {
		v[i] = *p
	}
	return v
}

func paramPointers(v []Parameter) Parameters {
	ps := make(Parameters, len(v))
	for i := range v {
		ps[i] = &v[i]
	}
	return ps
}

// WriteYAML writes the collection as a YAML document.  Background maps
// are not included; they are stored with their dataset.
func (ms Models) WriteYAML(w io.Writer) error {
	var doc modelsYAML
	for _, m := range ms {
		c := componentYAML{Name: m.Name(), Type: m.Tag(), DatasetsNames: m.DatasetsNames()}
		switch t := m.(type) {
		case *SkyModel:
			if t.Spatial != nil {
				c.Spatial = &partYAML{t.Spatial.Tag(), t.Spatial.Frame(),
					paramValues(t.Spatial.Parameters())}
			}
			if t.Spectral != nil {
				c.Spectral = &partYAML{Type: t.Spectral.Tag(),
					Parameters: paramValues(t.Spectral.Parameters())}
			}
		default:
			c.Parameters = paramValues(m.Parameters())
		}
		doc.Components = append(doc.Components, c)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// WriteYAMLFile writes the collection to path.
func (ms Models) WriteYAMLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ms.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newSpatial(p *partYAML) (SpatialModel, error) {
	if err := geom.CheckFrame(p.Frame); err != nil {
		return nil, err
	}
	var m SpatialModel
	switch p.Type {
	case "PointSpatialModel":
		m = NewPointSpatialModel(0, 0, p.Frame)
	case "GaussianSpatialModel":
		m = NewGaussianSpatialModel(0, 0, 0, p.Frame)
	case "DiskSpatialModel":
		m = NewDiskSpatialModel(0, 0, 0, p.Frame)
	default:
		return nil, fmt.Errorf("unknown spatial model type %q", p.Type)
	}
	m.Parameters().assign(paramPointers(p.Parameters))
	return m, nil
}

func newSpectral(p *partYAML) (SpectralModel, error) {
	var m SpectralModel
	switch p.Type {
	case "PowerLawSpectralModel":
		m = NewPowerLawSpectralModel(2, 1e-12, 1)
	default:
		return nil, fmt.Errorf("unknown spectral model type %q", p.Type)
	}
	m.Parameters().assign(paramPointers(p.Parameters))
	return m, nil
}

// ReadYAML reads a document written by WriteYAML.  Background models are
// returned without a map.
func ReadYAML(r io.Reader) (Models, error) {
	var doc modelsYAML
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	var ms Models
	for _, c := range doc.Components {
		switch c.Type {
		case "SkyModel":
			sm := NewSkyModel(nil, nil, c.Name)
			sm.DatasetNames = c.DatasetsNames
			var err error
			if c.Spatial != nil {
				if sm.Spatial, err = newSpatial(c.Spatial); err != nil {
					return nil, err
				}
			}
			if c.Spectral != nil {
				if sm.Spectral, err = newSpectral(c.Spectral); err != nil {
					return nil, err
				}
			}
			ms = append(ms, sm)
		case "BackgroundModel":
			bm := NewBackgroundModel(nil, c.Name, c.DatasetsNames...)
			bm.params.assign(paramPointers(c.Parameters))
			ms = append(ms, bm)
		default:
			return nil, fmt.Errorf("component %q: unknown type %q", c.Name, c.Type)
		}
	}
	return ms, nil
}

// ReadYAMLFile reads a collection from path.
func ReadYAMLFile(path string) (Models, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadYAML(f)
}

// SetParameters copies parameter values from src into the models of ms
// with the same name and type.  Background maps are untouched.
func (ms Models) SetParameters(src Models) {
	for _, s := range src {
		if m := ms.Get(s.Name()); m != nil && m.Tag() == s.Tag() {
			m.Parameters().assign(s.Parameters())
		}
	}
}
