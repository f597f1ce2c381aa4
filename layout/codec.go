// SPDX-License-Identifier: GPL-2.0-or-later

package layout

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Decode reads one value of shape d from the start of b. It fails with
// ErrLayoutMismatch when b is shorter than d.Size(); extra bytes are ignored.
func Decode(d Descriptor, b []byte) (any, error) {
	if d == nil {
		return nil, errors.Wrap(ErrLayoutMismatch, "nil descriptor")
	}
	if len(b) < d.Size() {
		return nil, errors.Wrapf(ErrLayoutMismatch, "need %d bytes, have %d", d.Size(), len(b))
	}
	c := cursor{b: b}
	return c.decode(d), nil
}

// cursor walks b; Decode checks the length up front so reads never run short.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) next(n int) []byte {
	p := c.b[c.off : c.off+n]
	c.off += n
	return p
}

func (c *cursor) decode(d Descriptor) any {
	switch v := d.(type) {
	case Scalar:
		return decodeScalar(v, c.next(v.Size()))
	case Array:
		a := make([]any, v.Count)
		for i := range a {
			a[i] = c.decode(v.Elem)
		}
		return a
	case Fields:
		r := &Record{names: v.Names(), values: make([]any, len(v))}
		for i, f := range v {
			r.values[i] = c.decode(f.Desc)
		}
		return r
	case Bits:
		raw := readUint(v.Backing, c.next(v.Size()))
		return unpack(v, raw)
	}
	return nil
}

func readUint(t Type, b []byte) uint64 {
	switch t.Size() {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func putUint(t Type, b []byte, v uint64) []byte {
	switch t.Size() {
	case 1:
		return append(b, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	case 8:
		return binary.LittleEndian.AppendUint64(b, v)
	}
	return b
}

func decodeScalar(s Scalar, b []byte) any {
	switch s.Type {
	case Int8:
		return int8(b[0])
	case Uint8:
		return b[0]
	case Int16:
		return int16(binary.LittleEndian.Uint16(b))
	case Uint16:
		return binary.LittleEndian.Uint16(b)
	case Int32:
		return int32(binary.LittleEndian.Uint32(b))
	case Uint32:
		return binary.LittleEndian.Uint32(b)
	case Int64:
		return int64(binary.LittleEndian.Uint64(b))
	case Uint64:
		return binary.LittleEndian.Uint64(b)
	case Float32:
		return math32.Float32frombits(binary.LittleEndian.Uint32(b))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case Bytes:
		return append([]byte(nil), b...)
	}
	return nil
}

func mask(width int) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return 1<<uint(width) - 1
}

func unpack(b Bits, raw uint64) *Record {
	r := &Record{names: make([]string, len(b.Fields)), values: make([]any, len(b.Fields))}
	shift := b.Backing.Size() * 8
	for i, f := range b.Fields {
		shift -= f.Width
		r.names[i] = f.Name
		r.values[i] = (raw >> uint(shift)) & mask(f.Width)
	}
	return r
}

// Unpack splits a backing integer into its bit fields.
func Unpack(b Bits, raw uint64) *Record {
	return unpack(b, raw)
}

// Pack joins bit field values back into the backing integer.
func Pack(b Bits, v any) (uint64, error) {
	var raw uint64
	shift := b.Backing.Size() * 8
	for i, f := range b.Fields {
		shift -= f.Width
		fv, err := member(v, i, f.Name)
		if err != nil {
			return 0, err
		}
		u, ok := asUint64(fv)
		if !ok {
			return 0, errors.Wrapf(ErrLayoutMismatch, "bit field %s: %T is not an unsigned integer", f.Name, fv)
		}
		if u > mask(f.Width) {
			return 0, errors.Wrapf(ErrLayoutMismatch, "bit field %s: %d does not fit %d bits", f.Name, u, f.Width)
		}
		raw |= u << uint(shift)
	}
	return raw, nil
}

// Encode returns the bytes of v in the shape of d.
func Encode(d Descriptor, v any) ([]byte, error) {
	if d == nil {
		return nil, errors.Wrap(ErrLayoutMismatch, "nil descriptor")
	}
	return AppendEncode(make([]byte, 0, d.Size()), d, v)
}

// AppendEncode appends the bytes of v in the shape of d to dst.
func AppendEncode(dst []byte, d Descriptor, v any) ([]byte, error) {
	switch s := d.(type) {
	case Scalar:
		return appendScalar(dst, s, v)
	case Array:
		n, at, err := elements(v)
		if err != nil {
			return nil, err
		}
		if n != s.Count {
			return nil, errors.Wrapf(ErrLayoutMismatch, "array of %d, want %d", n, s.Count)
		}
		for i := 0; i < n; i++ {
			if dst, err = AppendEncode(dst, s.Elem, at(i)); err != nil {
				return nil, errors.Wrapf(err, "[%d]", i)
			}
		}
		return dst, nil
	case Fields:
		for i, f := range s {
			fv, err := member(v, i, f.Name)
			if err != nil {
				return nil, err
			}
			if dst, err = AppendEncode(dst, f.Desc, fv); err != nil {
				return nil, errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return dst, nil
	case Bits:
		raw, err := Pack(s, v)
		if err != nil {
			return nil, err
		}
		return putUint(s.Backing, dst, raw), nil
	}
	return nil, errors.Wrapf(ErrLayoutMismatch, "unknown descriptor %T", d)
}

// member returns field i (named name) of a *Record or a map.
func member(v any, i int, name string) (any, error) {
	switch r := v.(type) {
	case *Record:
		if i < len(r.names) && r.names[i] == name {
			return r.values[i], nil
		}
		if j := r.index(name); j >= 0 {
			return r.values[j], nil
		}
		return nil, errors.Wrapf(ErrLayoutMismatch, "record has no field %s", name)
	case map[string]any:
		fv, ok := r[name]
		if !ok {
			return nil, errors.Wrapf(ErrLayoutMismatch, "missing field %s", name)
		}
		return fv, nil
	}
	return nil, errors.Wrapf(ErrLayoutMismatch, "%T is not a record", v)
}

// elements gives indexed access to []any and to any other slice or array.
func elements(v any) (int, func(int) any, error) {
	if a, ok := v.([]any); ok {
		return len(a), func(i int) any { return a[i] }, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), func(i int) any { return rv.Index(i).Interface() }, nil
	}
	return 0, nil, errors.Wrapf(ErrLayoutMismatch, "%T is not an array", v)
}

func appendScalar(dst []byte, s Scalar, v any) ([]byte, error) {
	switch {
	case s.Type == Bytes:
		var b []byte
		switch x := v.(type) {
		case []byte:
			b = x
		case string:
			b = []byte(x)
		default:
			return nil, errors.Wrapf(ErrLayoutMismatch, "%T is not a byte string", v)
		}
		if len(b) > s.Len {
			return nil, errors.Wrapf(ErrLayoutMismatch, "byte string of %d exceeds %d", len(b), s.Len)
		}
		dst = append(dst, b...)
		for i := len(b); i < s.Len; i++ {
			dst = append(dst, 0)
		}
		return dst, nil
	case s.Type == Float32:
		f, ok := asFloat64(v)
		if !ok {
			return nil, errors.Wrapf(ErrLayoutMismatch, "%T is not a number", v)
		}
		if x, ok := v.(float32); ok {
			// keep NaN payloads intact
			return binary.LittleEndian.AppendUint32(dst, math32.Float32bits(x)), nil
		}
		return binary.LittleEndian.AppendUint32(dst, math32.Float32bits(float32(f))), nil
	case s.Type == Float64:
		f, ok := asFloat64(v)
		if !ok {
			return nil, errors.Wrapf(ErrLayoutMismatch, "%T is not a number", v)
		}
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(f)), nil
	case s.Type.signed():
		i, ok := asInt64(v)
		if !ok {
			return nil, errors.Wrapf(ErrLayoutMismatch, "%T is not an integer", v)
		}
		bits := uint(s.Type.Size() * 8)
		if bits < 64 && (i < -(1<<(bits-1)) || i > 1<<(bits-1)-1) {
			return nil, errors.Wrapf(ErrLayoutMismatch, "%d overflows %v", i, s.Type)
		}
		return putUint(s.Type, dst, uint64(i)), nil
	case s.Type.integer():
		u, ok := asUint64(v)
		if !ok {
			return nil, errors.Wrapf(ErrLayoutMismatch, "%v (%T) is not an unsigned integer", v, v)
		}
		if u > mask(s.Type.Size()*8) {
			return nil, errors.Wrapf(ErrLayoutMismatch, "%d overflows %v", u, s.Type)
		}
		return putUint(s.Type, dst, u), nil
	}
	return nil, errors.Wrapf(ErrLayoutMismatch, "unknown scalar %v", s.Type)
}
