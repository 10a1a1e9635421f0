// Public domain.

package quantity_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/soniakeys/mapds/internal/quantity"
)

func ExampleScale() {
	s, _ := quantity.Scale("h", "s")
	fmt.Println(s)
	// Output:
	// 3600
}

var scaleTestCases = []struct {
	from, to string
	want     float64
}{
	{"cm2 s", "m2 s", 1e-4},
	{"h", "s", 3600},
	{"GeV", "TeV", 1e-3},
	{"TeV-1 cm-2 s-1", "TeV-1 m-2 s-1", 1e4},
	{"", "", 1},
	{"deg2", "sr", math.Pow(math.Pi/180, 2)},
}

func TestScale(t *testing.T) {
	for _, c := range scaleTestCases {
		s, err := quantity.Scale(c.from, c.to)
		if err != nil {
			t.Fatal(c.from, c.to, err)
		}
		if math.Abs(s-c.want) > 1e-12*c.want {
			t.Fatal(c.from, "->", c.to, s, "want", c.want)
		}
	}
}

func TestIncompatible(t *testing.T) {
	if _, err := quantity.Scale("m2", "s"); !errors.Is(err, quantity.ErrIncompatible) {
		t.Fatal("expected ErrIncompatible, got", err)
	}
	if _, err := quantity.Scale("furlong", "m"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestInvert(t *testing.T) {
	switch {
	case quantity.Invert("cm2 s") != "cm-2 s-1":
		t.Fatal(quantity.Invert("cm2 s"))
	case quantity.Invert("sr-1") != "sr":
		t.Fatal(quantity.Invert("sr-1"))
	case quantity.Multiply("", "m2") != "m2":
		t.Fatal("multiply")
	}
}
