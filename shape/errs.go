package shape

import "errors"

var (
	// ErrDecl marks malformed shape declarations. Declaration errors
	// are fatal at declaration time.
	ErrDecl = errors.New("shape declaration error")

	// ErrCheck marks values that do not match their declared type.
	ErrCheck = errors.New("type check error")

	// ErrSerialize marks serialization-policy violations, notably a
	// target reference reached under PolicyFailOnTarget.
	ErrSerialize = errors.New("serialization error")
)
