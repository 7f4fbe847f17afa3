package exif

import (
	"fmt"
	"strings"
)

// SexagesimalToDecimal converts a degrees/minutes/seconds triple to decimal
// degrees, negated for the southern and western hemispheres. Each element may
// be a Number or a Rational.
func SexagesimalToDecimal(dms []Value, ref string) (float64, error) {
	if len(dms) != 3 {
		return 0, fmt.Errorf("%w: want 3 components, got %d", ErrMalformedDMS, len(dms))
	}

	var parts [3]float64
	for i, v := range dms {
		f, err := toFloat(v)
		if err != nil {
			return 0, fmt.Errorf("%w: component %d: %v", ErrMalformedDMS, i, err)
		}
		parts[i] = f
	}

	decimal := parts[0] + parts[1]/60 + parts[2]/3600
	switch normalizeRef(ref) {
	case "S", "W":
		decimal = -decimal
	}
	return decimal, nil
}

func normalizeRef(ref string) string {
	return strings.TrimSpace(strings.TrimRight(ref, "\x00"))
}

// dmsComponents unwraps a GPS coordinate value into its components.
func dmsComponents(v Value) ([]Value, bool) {
	switch x := v.(type) {
	case List:
		return x, len(x) > 0
	case nil:
		return nil, false
	default:
		return []Value{x}, true
	}
}
