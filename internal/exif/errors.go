package exif

import "errors"

// Errors reported by the extractor. They are logged or returned from the
// low-level helpers; the public pipeline never propagates them.
var (
	ErrNotImage        = errors.New("not a recognized image")
	ErrNoTags          = errors.New("no metadata tags")
	ErrZeroDenominator = errors.New("rational with zero denominator")
	ErrMalformedDMS    = errors.New("malformed degrees/minutes/seconds value")
)
