// Package debug holds env-gated trace switches. Each switch is read
// once at startup from a SHAPE_DEBUG_* variable, so tracing costs
// nothing when off.
package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Extract  bool
	Declfile bool
	Codegen  bool
	Wire     bool
}

var d *debug

func init() {
	d = &debug{}
	d.Extract = boolEnv("SHAPE_DEBUG_EXTRACT")
	d.Declfile = boolEnv("SHAPE_DEBUG_DECLFILE")
	d.Codegen = boolEnv("SHAPE_DEBUG_CODEGEN")
	d.Wire = boolEnv("SHAPE_DEBUG_WIRE")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Extract() bool {
	return d.Extract
}
func Declfile() bool {
	return d.Declfile
}
func Codegen() bool {
	return d.Codegen
}
func Wire() bool {
	return d.Wire
}
