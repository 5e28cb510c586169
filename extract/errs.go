package extract

import "errors"

var (
	// ErrExtract tags failures converting shape declarations to IR.
	ErrExtract = errors.New("extract error")

	// ErrDeclFile tags failures loading YAML declaration files.
	ErrDeclFile = errors.New("declaration file error")
)
