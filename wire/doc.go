// Package wire implements the binary wire format used by generated
// shape code: the Thrift binary protocol's struct framing.
//
// A struct is a sequence of fields, each introduced by a field header
// (one type byte, one big-endian int16 field id) and terminated by a
// single Stop byte. There is no length prefix on structs; readers
// loop on field headers until Stop. Unknown field ids are skippable
// via Skip, which is the format's forward-compatibility mechanism:
// decoders ignore fields they do not know.
//
// The package is the runtime support library for generated code;
// generated readers and writers call into Writer, Reader and Skip
// and never touch raw bytes themselves.
package wire
