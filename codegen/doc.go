// Package codegen renders IR modules into language-specific source
// code.
//
// Each backend pairs an embedded file template with helper methods
// that do the type mapping; the template controls layout, the helpers
// control semantics. Templates can be overridden per invocation with
// a templates directory, which makes output layout customizable
// without rebuilding the generator.
//
// Types are emitted in dependency order so that generated files never
// need forward declarations.
package codegen
