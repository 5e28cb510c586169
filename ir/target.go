package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Target is a build target that uniquely identifies a shape module.
// It must contain exactly one ':' and end with ".shape", eg
// "//some/project:defs.shape" or ":defs.shape".
type Target string

// ParseTarget validates s as a shape target.
func ParseTarget(s string) (Target, error) {
	if strings.Count(s, ":") != 1 {
		return "", fmt.Errorf("%w: target %q must contain exactly one ':'", ErrIR, s)
	}
	if !strings.HasSuffix(s, ".shape") {
		return "", fmt.Errorf("%w: shape target %q must end with '.shape'", ErrIR, s)
	}
	return Target(s), nil
}

// Basename returns the rule-name portion of the target without the
// ".shape" suffix.
func (t Target) Basename() string {
	s := string(t)
	s = s[strings.Index(s, ":")+1:]
	return strings.TrimSuffix(s, ".shape")
}

// BaseTarget returns the cell-relative portion of the target without
// the ".shape" suffix, eg "cell//a/b:x.shape" -> "//a/b:x".
func (t Target) BaseTarget() string {
	s := string(t)
	if idx := strings.Index(s, "//"); idx >= 0 {
		s = s[idx:]
	}
	return strings.TrimSuffix(s, ".shape")
}

func (t Target) String() string { return string(t) }

func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

func (t *Target) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTarget(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
