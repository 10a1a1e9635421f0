// Public domain.

package models

import "math"

// SpectralModel is a differential flux as a function of energy in TeV.
type SpectralModel interface {
	Tag() string
	Parameters() Parameters
	// Evaluate returns dN/dE in cm-2 s-1 TeV-1.
	Evaluate(e float64) float64
	// Integral returns the flux in cm-2 s-1 between e1 and e2.
	Integral(e1, e2 float64) float64
	copySpectral() SpectralModel
}

// PowerLawSpectralModel is amplitude * (E/reference)^-index.
type PowerLawSpectralModel struct {
	params Parameters
}

// NewPowerLawSpectralModel takes amplitude in cm-2 s-1 TeV-1 and
// reference in TeV.  Reference is frozen.
func NewPowerLawSpectralModel(index, amplitude, reference float64) *PowerLawSpectralModel {
	ref := NewParameter("reference", reference, "TeV")
	ref.Frozen = true
	return &PowerLawSpectralModel{Parameters{
		NewParameter("index", index, ""),
		NewParameter("amplitude", amplitude, "cm-2 s-1 TeV-1"),
		ref,
	}}
}

func (m *PowerLawSpectralModel) Tag() string            { return "PowerLawSpectralModel" }
func (m *PowerLawSpectralModel) Parameters() Parameters { return m.params }

func (m *PowerLawSpectralModel) values() (idx, amp, ref float64) {
	return m.params[0].Value, m.params[1].Value, m.params[2].Value
}

func (m *PowerLawSpectralModel) Evaluate(e float64) float64 {
	idx, amp, ref := m.values()
	return amp * math.Pow(e/ref, -idx)
}

func (m *PowerLawSpectralModel) Integral(e1, e2 float64) float64 {
	idx, amp, ref := m.values()
	if math.Abs(idx-1) < 1e-10 {
		return amp * ref * math.Log(e2/e1)
	}
	g := 1 - idx
	return amp * ref / g * (math.Pow(e2/ref, g) - math.Pow(e1/ref, g))
}

func (m *PowerLawSpectralModel) copySpectral() SpectralModel {
	return &PowerLawSpectralModel{m.params.Copy()}
}
