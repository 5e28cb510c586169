package ir

import "errors"

// ErrIR marks malformed or inconsistent IR documents.
var ErrIR = errors.New("ir error")
