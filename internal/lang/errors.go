package lang

import "errors"

// ErrInvalid indicates an unrecognized language hint.
var ErrInvalid = errors.New("invalid language code")
