package huffman

import "errors"

// Error kinds surfaced by the coder. Callers branch with errors.Is.
var (
	ErrInvalidFrequencyTable = errors.New("frequency table must be non-empty with positive counts")
	ErrDegenerateAlphabet    = errors.New("alphabet must contain at least two distinct symbols")
	ErrCorruptStream         = errors.New("compressed stream is corrupt")
)
