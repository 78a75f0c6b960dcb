package trees

import "errors"

// Error kinds surfaced by the index engines. ErrKeyNotFound is a normal
// outcome callers branch on with errors.Is; ErrInvariantViolation marks an
// implementation defect found by an integrity check, never a caller mistake.
var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrDuplicateKey       = errors.New("key already indexed")
	ErrMalformedKey       = errors.New("malformed key")
	ErrInvariantViolation = errors.New("tree invariant violated")
)
