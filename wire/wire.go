package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/shape-lang/go-shape/debug"
)

// TypeID is a wire type code, compatible with the Thrift binary
// protocol.
type TypeID byte

const (
	Stop    TypeID = 0
	TBool   TypeID = 2
	TByte   TypeID = 3
	TDouble TypeID = 4
	TI16    TypeID = 6
	TI32    TypeID = 8
	TI64    TypeID = 10
	TString TypeID = 11
	TStruct TypeID = 12
	TMap    TypeID = 13
	TSet    TypeID = 14
	TList   TypeID = 15
)

func (t TypeID) String() string {
	switch t {
	case Stop:
		return "stop"
	case TBool:
		return "bool"
	case TByte:
		return "byte"
	case TDouble:
		return "double"
	case TI16:
		return "i16"
	case TI32:
		return "i32"
	case TI64:
		return "i64"
	case TString:
		return "string"
	case TStruct:
		return "struct"
	case TMap:
		return "map"
	case TSet:
		return "set"
	case TList:
		return "list"
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// ErrDecode marks malformed wire data.
var ErrDecode = errors.New("wire decode error")

// ErrEncode marks values that cannot be represented on the wire,
// notably strings and containers larger than readers accept.
var ErrEncode = errors.New("wire encode error")

// MissingFieldError is returned by generated readers when a required
// field was absent by the time the stop marker was read. It is a
// recoverable decode error, not a build abort: decoding happens at
// runtime.
type MissingFieldError struct {
	Struct string
	Field  string
	ID     int16
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %s (id %d)", e.Struct, e.Field, e.ID)
}

// TypeMismatchError is returned when a known field id arrives with an
// unexpected wire type.
type TypeMismatchError struct {
	Struct string
	Field  string
	Want   TypeID
	Got    TypeID
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s.%s: expected wire type %s, got %s", e.Struct, e.Field, e.Want, e.Got)
}

// maxContainerSize bounds decoded string/container lengths as a guard
// against corrupt size prefixes.
const maxContainerSize = 1 << 28

// Writer encodes values in the binary protocol.
type Writer struct {
	w   io.Writer
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteStructBegin is a framing no-op: structs have no wire header.
func (w *Writer) WriteStructBegin(name string) error { return nil }

// WriteStructEnd is a framing no-op; the stop marker written by
// WriteFieldStop terminates the struct.
func (w *Writer) WriteStructEnd() error { return nil }

func (w *Writer) WriteFieldBegin(typ TypeID, id int16) error {
	w.buf[0] = byte(typ)
	binary.BigEndian.PutUint16(w.buf[1:3], uint16(id))
	_, err := w.w.Write(w.buf[:3])
	return err
}

// WriteFieldEnd is a framing no-op.
func (w *Writer) WriteFieldEnd() error { return nil }

func (w *Writer) WriteFieldStop() error {
	w.buf[0] = byte(Stop)
	_, err := w.w.Write(w.buf[:1])
	return err
}

func (w *Writer) WriteBool(v bool) error {
	w.buf[0] = 0
	if v {
		w.buf[0] = 1
	}
	_, err := w.w.Write(w.buf[:1])
	return err
}

func (w *Writer) WriteByte(v int8) error {
	w.buf[0] = byte(v)
	_, err := w.w.Write(w.buf[:1])
	return err
}

func (w *Writer) WriteI16(v int16) error {
	binary.BigEndian.PutUint16(w.buf[:2], uint16(v))
	_, err := w.w.Write(w.buf[:2])
	return err
}

func (w *Writer) WriteI32(v int32) error {
	binary.BigEndian.PutUint32(w.buf[:4], uint32(v))
	_, err := w.w.Write(w.buf[:4])
	return err
}

func (w *Writer) WriteI64(v int64) error {
	binary.BigEndian.PutUint64(w.buf[:8], uint64(v))
	_, err := w.w.Write(w.buf[:8])
	return err
}

func (w *Writer) WriteDouble(v float64) error {
	binary.BigEndian.PutUint64(w.buf[:8], math.Float64bits(v))
	_, err := w.w.Write(w.buf[:8])
	return err
}

func (w *Writer) WriteString(s string) error {
	if err := w.writeSize(len(s)); err != nil {
		return err
	}
	_, err := io.WriteString(w.w, s)
	return err
}

func (w *Writer) WriteListBegin(elem TypeID, size int) error {
	w.buf[0] = byte(elem)
	if _, err := w.w.Write(w.buf[:1]); err != nil {
		return err
	}
	return w.writeSize(size)
}

func (w *Writer) WriteMapBegin(key, value TypeID, size int) error {
	w.buf[0] = byte(key)
	w.buf[1] = byte(value)
	if _, err := w.w.Write(w.buf[:2]); err != nil {
		return err
	}
	return w.writeSize(size)
}

// writeSize bounds written sizes to what readSize accepts, so a
// writer can never produce data its own reader rejects.
func (w *Writer) writeSize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative size %d", ErrEncode, n)
	}
	if n > maxContainerSize {
		return fmt.Errorf("%w: size %d exceeds limit", ErrEncode, n)
	}
	return w.WriteI32(int32(n))
}

// Reader decodes values in the binary protocol.
type Reader struct {
	r   io.Reader
	buf [8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFieldBegin reads the next field header. A Stop type means the
// enclosing struct is complete; id is meaningless then.
func (r *Reader) ReadFieldBegin() (TypeID, int16, error) {
	if _, err := io.ReadFull(r.r, r.buf[:1]); err != nil {
		return 0, 0, err
	}
	typ := TypeID(r.buf[0])
	if typ == Stop {
		return Stop, 0, nil
	}
	if _, err := io.ReadFull(r.r, r.buf[:2]); err != nil {
		return 0, 0, err
	}
	return typ, int16(binary.BigEndian.Uint16(r.buf[:2])), nil
}

func (r *Reader) ReadBool() (bool, error) {
	if _, err := io.ReadFull(r.r, r.buf[:1]); err != nil {
		return false, err
	}
	// Anything nonzero decodes as true; some writers emit 1, some -1.
	return r.buf[0] != 0, nil
}

func (r *Reader) ReadByte() (int8, error) {
	if _, err := io.ReadFull(r.r, r.buf[:1]); err != nil {
		return 0, err
	}
	return int8(r.buf[0]), nil
}

func (r *Reader) ReadI16() (int16, error) {
	if _, err := io.ReadFull(r.r, r.buf[:2]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(r.buf[:2])), nil
}

func (r *Reader) ReadI32() (int32, error) {
	if _, err := io.ReadFull(r.r, r.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(r.buf[:4])), nil
}

func (r *Reader) ReadI64() (int64, error) {
	if _, err := io.ReadFull(r.r, r.buf[:8]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(r.buf[:8])), nil
}

func (r *Reader) ReadDouble() (float64, error) {
	if _, err := io.ReadFull(r.r, r.buf[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(r.buf[:8])), nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.readSize()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadListBegin() (TypeID, int, error) {
	if _, err := io.ReadFull(r.r, r.buf[:1]); err != nil {
		return 0, 0, err
	}
	elem := TypeID(r.buf[0])
	n, err := r.readSize()
	return elem, n, err
}

func (r *Reader) ReadMapBegin() (TypeID, TypeID, int, error) {
	if _, err := io.ReadFull(r.r, r.buf[:2]); err != nil {
		return 0, 0, 0, err
	}
	key, value := TypeID(r.buf[0]), TypeID(r.buf[1])
	n, err := r.readSize()
	return key, value, n, err
}

func (r *Reader) readSize() (int, error) {
	n, err := r.ReadI32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative size %d", ErrDecode, n)
	}
	if n > maxContainerSize {
		return 0, fmt.Errorf("%w: size %d exceeds limit", ErrDecode, n)
	}
	return int(n), nil
}

// Skip consumes and discards one value of the given wire type,
// recursing through nested containers and structs. Generated readers
// use it for unknown field ids.
func (r *Reader) Skip(typ TypeID) error {
	if debug.Wire() {
		debug.Logf("wire: skipping value of type %s\n", typ)
	}
	switch typ {
	case TBool, TByte:
		_, err := r.ReadByte()
		return err
	case TI16:
		_, err := r.ReadI16()
		return err
	case TI32:
		_, err := r.ReadI32()
		return err
	case TI64:
		_, err := r.ReadI64()
		return err
	case TDouble:
		_, err := r.ReadDouble()
		return err
	case TString:
		_, err := r.ReadString()
		return err
	case TStruct:
		for {
			ftyp, _, err := r.ReadFieldBegin()
			if err != nil {
				return err
			}
			if ftyp == Stop {
				return nil
			}
			if err := r.Skip(ftyp); err != nil {
				return err
			}
		}
	case TList, TSet:
		elem, n, err := r.ReadListBegin()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := r.Skip(elem); err != nil {
				return err
			}
		}
		return nil
	case TMap:
		key, value, n, err := r.ReadMapBegin()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := r.Skip(key); err != nil {
				return err
			}
			if err := r.Skip(value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: cannot skip wire type %s", ErrDecode, typ)
}
