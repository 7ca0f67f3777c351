package shared

import "errors"

// ErrValidation indicates malformed or rejected input.
var ErrValidation = errors.New("validation failed")
