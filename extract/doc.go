// Package extract converts in-memory shape declarations into the
// language-independent IR consumed by code generators.
//
// Extraction hoists every complex type (struct, union, enum) into a
// named top-level IR type; nested anonymous types receive names
// derived from their enclosing struct and field. It also performs the
// checks that only make sense at module granularity: thrift field-id
// coverage of wire-enabled shapes, wire-compatibility of field types,
// and resolution of foreign references against dependency modules.
//
// Declarations can come from Go code (shape.New et al) or from YAML
// declaration files, see LoadFile.
package extract
