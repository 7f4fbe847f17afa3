package exif

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a decoded tag value. The concrete types are Number, Rational,
// Text, Bytes, List and Nested; decoders never hand library types to the
// rest of the package.
type Value interface {
	isValue()
}

// Number is a plain numeric tag value.
type Number float64

// Rational is an unreduced numerator/denominator pair as stored in the file.
type Rational struct {
	Num int64
	Den int64
}

// Text is an ASCII tag value with trailing NULs removed.
type Text string

// Bytes is an opaque UNDEFINED-typed payload.
type Bytes []byte

// List is a multi-valued tag, e.g. a degrees/minutes/seconds triple.
type List []Value

// Nested holds a sub-directory that has not been resolved into names yet.
// Dir is one of IDMap, ItemSource or EntryList.
type Nested struct {
	Dir any
}

func (Number) isValue()   {}
func (Rational) isValue() {}
func (Text) isValue()     {}
func (Bytes) isValue()    {}
func (List) isValue()     {}
func (Nested) isValue()   {}

// Float converts the rational to a float, failing on a zero denominator.
func (r Rational) Float() (float64, error) {
	if r.Den == 0 {
		return 0, fmt.Errorf("%w: %d/0", ErrZeroDenominator, r.Num)
	}
	return float64(r.Num) / float64(r.Den), nil
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// toFloat converts a numeric value. Single-element lists are unwrapped, which
// is how several decoders report count-1 tags.
func toFloat(v Value) (float64, error) {
	switch x := v.(type) {
	case Number:
		return float64(x), nil
	case Rational:
		return x.Float()
	case List:
		if len(x) == 1 {
			return toFloat(x[0])
		}
		return 0, fmt.Errorf("expected a single number, got %d values", len(x))
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}

// toText renders a value for display. The second result is false when the
// value carries nothing printable.
func toText(v Value) (string, bool) {
	switch x := v.(type) {
	case Text:
		s := strings.TrimSpace(strings.TrimRight(string(x), "\x00"))
		return s, s != ""
	case Number:
		return strconv.FormatFloat(float64(x), 'f', -1, 64), true
	case Rational:
		f, err := x.Float()
		if err != nil {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	case Bytes:
		s := strings.TrimSpace(strings.TrimRight(string(x), "\x00"))
		return s, s != "" && isPrintable(s)
	case List:
		if len(x) == 1 {
			return toText(x[0])
		}
		return "", false
	default:
		return "", false
	}
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// collapse returns the single element of a one-element list, the list itself
// otherwise.
func collapse(vs []Value) Value {
	if len(vs) == 1 {
		return vs[0]
	}
	return List(vs)
}
