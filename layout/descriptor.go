// SPDX-License-Identifier: GPL-2.0-or-later

// Package layout describes fixed-size little-endian binary records and
// converts between their bytes and Record values.
//
// A Descriptor is one of Scalar, Array, Fields or Bits. Descriptors nest
// freely and are validated once, when a RecordLayout is registered.
package layout

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrLayoutMismatch = errors.New("layout mismatch")
	ErrInvalidLayout  = errors.New("invalid layout")
)

// Type is the primitive type of a Scalar.
type Type uint8

const (
	Int8 Type = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Bytes // fixed length byte string, length given by Scalar.Len
)

var typeNames = [...]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	Bytes:   "bytes",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Size returns the width in bytes. Bytes has no intrinsic width and returns 0.
func (t Type) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

func (t Type) integer() bool {
	return t >= Int8 && t <= Uint64
}

func (t Type) signed() bool {
	return t == Int8 || t == Int16 || t == Int32 || t == Int64
}

// Descriptor is the shape of a binary record or of one of its fields.
type Descriptor interface {
	// Size is the number of bytes the described value occupies.
	Size() int
	descriptor()
}

// Scalar is a single primitive value.
type Scalar struct {
	Type Type
	Len  int // only for Bytes
}

// Array is Count repetitions of Elem.
type Array struct {
	Elem  Descriptor
	Count int
}

// Field is one named member of Fields.
type Field struct {
	Name string
	Desc Descriptor
}

// Fields is an ordered list of named sub-descriptors.
type Fields []Field

// BitField is one named sub-field of Bits, Width bits wide.
type BitField struct {
	Name  string
	Width int
}

// Bits packs named sub-fields into one backing integer. The first declared
// field occupies the most significant bits.
type Bits struct {
	Backing Type
	Fields  []BitField
}

func (Scalar) descriptor() {}
func (Array) descriptor()  {}
func (Fields) descriptor() {}
func (Bits) descriptor()   {}

func (s Scalar) Size() int {
	if s.Type == Bytes {
		return s.Len
	}
	return s.Type.Size()
}

func (a Array) Size() int {
	if a.Elem == nil {
		return 0
	}
	return a.Elem.Size() * a.Count
}

func (f Fields) Size() int {
	n := 0
	for _, fd := range f {
		if fd.Desc != nil {
			n += fd.Desc.Size()
		}
	}
	return n
}

func (b Bits) Size() int {
	return b.Backing.Size()
}

// Names returns the field names in declaration order.
func (f Fields) Names() []string {
	n := make([]string, len(f))
	for i, fd := range f {
		n[i] = fd.Name
	}
	return n
}

// Index returns the position of the named field or -1.
func (f Fields) Index(name string) int {
	for i, fd := range f {
		if fd.Name == name {
			return i
		}
	}
	return -1
}

var (
	I8  = Scalar{Type: Int8}
	U8  = Scalar{Type: Uint8}
	I16 = Scalar{Type: Int16}
	U16 = Scalar{Type: Uint16}
	I32 = Scalar{Type: Int32}
	U32 = Scalar{Type: Uint32}
	I64 = Scalar{Type: Int64}
	U64 = Scalar{Type: Uint64}
	F32 = Scalar{Type: Float32}
	F64 = Scalar{Type: Float64}
)

// Char is a fixed length byte string of n bytes.
func Char(n int) Scalar {
	return Scalar{Type: Bytes, Len: n}
}

func ArrayOf(elem Descriptor, n int) Array {
	return Array{Elem: elem, Count: n}
}

func F(name string, d Descriptor) Field {
	return Field{Name: name, Desc: d}
}

func Struct(fields ...Field) Fields {
	return Fields(fields)
}

func B(name string, width int) BitField {
	return BitField{Name: name, Width: width}
}

func BitFields(backing Type, fields ...BitField) Bits {
	return Bits{Backing: backing, Fields: fields}
}

// Vec3 is the ubiquitous three float32 field.
func Vec3() Fields {
	return Struct(F("x", F32), F("y", F32), F("z", F32))
}

// Validate checks the structural invariants of d: known scalar types,
// non-negative counts, unique field names and bit widths that fill their
// backing integer exactly.
func Validate(d Descriptor) error {
	switch v := d.(type) {
	case Scalar:
		if v.Type == Bytes {
			if v.Len <= 0 {
				return errors.Wrapf(ErrInvalidLayout, "byte string of length %d", v.Len)
			}
			return nil
		}
		if v.Type.Size() == 0 {
			return errors.Wrapf(ErrInvalidLayout, "unknown scalar %v", v.Type)
		}
		return nil
	case Array:
		if v.Elem == nil {
			return errors.Wrap(ErrInvalidLayout, "array without element")
		}
		if v.Count < 0 {
			return errors.Wrapf(ErrInvalidLayout, "array count %d", v.Count)
		}
		return Validate(v.Elem)
	case Fields:
		if len(v) == 0 {
			return errors.Wrap(ErrInvalidLayout, "no fields")
		}
		seen := make(map[string]bool, len(v))
		for _, f := range v {
			if f.Name == "" {
				return errors.Wrap(ErrInvalidLayout, "unnamed field")
			}
			if seen[f.Name] {
				return errors.Wrapf(ErrInvalidLayout, "duplicate field %q", f.Name)
			}
			seen[f.Name] = true
			if f.Desc == nil {
				return errors.Wrapf(ErrInvalidLayout, "field %q has no layout", f.Name)
			}
			if err := Validate(f.Desc); err != nil {
				return errors.Wrapf(err, "field %q", f.Name)
			}
		}
		return nil
	case Bits:
		if !v.Backing.integer() {
			return errors.Wrapf(ErrInvalidLayout, "bit fields backed by %v", v.Backing)
		}
		if len(v.Fields) == 0 {
			return errors.Wrap(ErrInvalidLayout, "no bit fields")
		}
		total := 0
		seen := make(map[string]bool, len(v.Fields))
		for _, f := range v.Fields {
			if f.Name == "" || seen[f.Name] {
				return errors.Wrapf(ErrInvalidLayout, "bad bit field name %q", f.Name)
			}
			seen[f.Name] = true
			if f.Width < 1 {
				return errors.Wrapf(ErrInvalidLayout, "bit field %q width %d", f.Name, f.Width)
			}
			total += f.Width
		}
		if total != v.Backing.Size()*8 {
			return errors.Wrapf(ErrInvalidLayout, "bit widths sum to %d, backing %v has %d", total, v.Backing, v.Backing.Size()*8)
		}
		return nil
	case nil:
		return errors.Wrap(ErrInvalidLayout, "nil descriptor")
	}
	return errors.Wrapf(ErrInvalidLayout, "unknown descriptor %T", d)
}

// RecordLayout is a named, validated descriptor of a record with a known
// byte size.
type RecordLayout struct {
	Name string
	Desc Descriptor
	Size int
}

// NewRecordLayout validates d and checks that it occupies exactly size bytes.
func NewRecordLayout(name string, size int, d Descriptor) (*RecordLayout, error) {
	if err := Validate(d); err != nil {
		return nil, errors.Wrapf(err, "layout %s", name)
	}
	if d.Size() != size {
		return nil, errors.Wrapf(ErrInvalidLayout, "layout %s: declared size %d, fields sum to %d", name, size, d.Size())
	}
	return &RecordLayout{Name: name, Desc: d, Size: size}, nil
}

// MustRecordLayout is NewRecordLayout for package level tables.
func MustRecordLayout(name string, size int, d Descriptor) *RecordLayout {
	l, err := NewRecordLayout(name, size, d)
	if err != nil {
		panic(err)
	}
	return l
}

// New returns a zeroed value of the layout.
func (l *RecordLayout) New() any {
	return Zero(l.Desc)
}

// Decode decodes one record from the start of b.
func (l *RecordLayout) Decode(b []byte) (any, error) {
	v, err := Decode(l.Desc, b)
	if err != nil {
		return nil, errors.Wrap(err, l.Name)
	}
	return v, nil
}

func (l *RecordLayout) Encode(v any) ([]byte, error) {
	b, err := Encode(l.Desc, v)
	if err != nil {
		return nil, errors.Wrap(err, l.Name)
	}
	return b, nil
}

// Zero returns the zero value for d.
func Zero(d Descriptor) any {
	switch v := d.(type) {
	case Scalar:
		return zeroScalar(v)
	case Array:
		a := make([]any, v.Count)
		for i := range a {
			a[i] = Zero(v.Elem)
		}
		return a
	case Fields:
		r := &Record{names: v.Names(), values: make([]any, len(v))}
		for i, f := range v {
			r.values[i] = Zero(f.Desc)
		}
		return r
	case Bits:
		r := &Record{names: make([]string, len(v.Fields)), values: make([]any, len(v.Fields))}
		for i, f := range v.Fields {
			r.names[i] = f.Name
			r.values[i] = uint64(0)
		}
		return r
	}
	return nil
}

func zeroScalar(s Scalar) any {
	switch s.Type {
	case Int8:
		return int8(0)
	case Uint8:
		return uint8(0)
	case Int16:
		return int16(0)
	case Uint16:
		return uint16(0)
	case Int32:
		return int32(0)
	case Uint32:
		return uint32(0)
	case Int64:
		return int64(0)
	case Uint64:
		return uint64(0)
	case Float32:
		return float32(0)
	case Float64:
		return float64(0)
	case Bytes:
		return make([]byte, s.Len)
	}
	return nil
}
