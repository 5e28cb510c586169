package codegen

import "errors"

var ErrCodegen = errors.New("codegen error")
