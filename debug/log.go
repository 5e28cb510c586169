package debug

import (
	"encoding/json"
	"fmt"
	"os"
)

// Logf writes a trace line to stderr. Map, slice and json.Number
// arguments are pretty-printed as indented JSON so IR fragments stay
// readable.
func Logf(msg string, args ...any) {
	for i := range args {
		a := args[i]
		switch a.(type) {
		case map[string]any, []any, json.Number, json.RawMessage:
			d, err := json.MarshalIndent(a, "   |", "  ")
			if err != nil {
				args[i] = fmt.Sprintf("%v", a)
				continue
			}
			args[i] = string(d)
		case bool, string, float64, int:

		default:
		}
	}
	fmt.Fprintf(os.Stderr, msg, args...)
}
