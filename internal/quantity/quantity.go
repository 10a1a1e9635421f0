// Public domain.

// Package quantity converts between the physical unit strings carried by
// maps and models.
//
// Units are written as space separated factors with optional integer
// powers, e.g. "cm2 s", "m2", "s-1 cm-2 TeV-1", "sr-1".
package quantity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrIncompatible is returned when two units differ in dimension.
var ErrIncompatible = errors.New("incompatible units")

// base dimensions
const (
	dLength = iota
	dTime
	dEnergy
	dAngle
	nDim
)

type unitDef struct {
	scale float64 // to SI-ish base: m, s, TeV, sr
	dim   [nDim]int
}

var units = map[string]unitDef{
	"":    {1, [nDim]int{}},
	"m":   {1, [nDim]int{dLength: 1}},
	"cm":  {1e-2, [nDim]int{dLength: 1}},
	"km":  {1e3, [nDim]int{dLength: 1}},
	"s":   {1, [nDim]int{dTime: 1}},
	"min": {60, [nDim]int{dTime: 1}},
	"h":   {3600, [nDim]int{dTime: 1}},
	"d":   {86400, [nDim]int{dTime: 1}},
	"eV":  {1e-12, [nDim]int{dEnergy: 1}},
	"keV": {1e-9, [nDim]int{dEnergy: 1}},
	"MeV": {1e-6, [nDim]int{dEnergy: 1}},
	"GeV": {1e-3, [nDim]int{dEnergy: 1}},
	"TeV": {1, [nDim]int{dEnergy: 1}},
	"erg": {1 / 1.602176634, [nDim]int{dEnergy: 1}},
	"sr":  {1, [nDim]int{dAngle: 2}},
	"deg": {math.Pi / 180, [nDim]int{dAngle: 1}},
	"rad": {1, [nDim]int{dAngle: 1}},
}

// parse reduces a unit string to a scale and dimension vector.
func parse(u string) (float64, [nDim]int, error) {
	scale := 1.
	var dim [nDim]int
	for _, f := range strings.Fields(u) {
		name, pow := splitPower(f)
		d, ok := units[name]
		if !ok {
			return 0, dim, fmt.Errorf("unknown unit %q in %q", name, u)
		}
		scale *= math.Pow(d.scale, float64(pow))
		for i := range dim {
			dim[i] += d.dim[i] * pow
		}
	}
	return scale, dim, nil
}

// splitPower splits "cm-2" into "cm", -2.
func splitPower(f string) (string, int) {
	i := strings.IndexAny(f, "-0123456789")
	if i <= 0 {
		return f, 1
	}
	p, err := strconv.Atoi(f[i:])
	if err != nil {
		return f, 1
	}
	return f[:i], p
}

// Scale returns the factor converting a value in unit from to unit to.
func Scale(from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}
	sf, df, err := parse(from)
	if err != nil {
		return 0, err
	}
	st, dt, err := parse(to)
	if err != nil {
		return 0, err
	}
	if df != dt {
		return 0, fmt.Errorf("%w: %q and %q", ErrIncompatible, from, to)
	}
	return sf / st, nil
}

// MustScale is Scale for unit pairs known to be valid.
func MustScale(from, to string) float64 {
	s, err := Scale(from, to)
	if err != nil {
		panic(err)
	}
	return s
}

// Known lists the recognized unit names.
func Known() []string {
	k := make([]string, 0, len(units))
	for n := range units {
		if n != "" {
			k = append(k, n)
		}
	}
	sort.Strings(k)
	return k
}

// Multiply returns the unit of a product.  Factors are concatenated, not
// simplified.
func Multiply(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// Invert returns the reciprocal unit, negating the power of each factor.
func Invert(u string) string {
	fs := strings.Fields(u)
	for i, f := range fs {
		name, pow := splitPower(f)
		if pow == -1 {
			fs[i] = name
		} else {
			fs[i] = name + strconv.Itoa(-pow)
		}
	}
	return strings.Join(fs, " ")
}
