package ir

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeJSON writes the module as indented JSON. Field and type order
// is declaration order, making the output reproducible.
func EncodeJSON(w io.Writer, m *Module) error {
	if err := m.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// DecodeJSON reads and validates one module document.
func DecodeJSON(r io.Reader) (*Module, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	m := &Module{}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIR, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
