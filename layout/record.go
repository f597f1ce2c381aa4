// SPDX-License-Identifier: GPL-2.0-or-later

package layout

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Record is the decoded value of a Fields or Bits descriptor: an ordered
// list of named values.
type Record struct {
	names  []string
	values []any
}

func (r *Record) Len() int {
	return len(r.values)
}

// Names returns the field names in declaration order.
func (r *Record) Names() []string {
	return append([]string(nil), r.names...)
}

// At returns the i-th field value.
func (r *Record) At(i int) any {
	return r.values[i]
}

func (r *Record) index(name string) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Get returns the value at path. Path elements are separated by dots;
// an element addresses a field of a nested record or, if numeric, an
// element of an array ("mins.2", "children.0").
func (r *Record) Get(path string) (any, bool) {
	var cur any = r
	for _, p := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case *Record:
			i := c.index(p)
			if i < 0 {
				return nil, false
			}
			cur = c.values[i]
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set replaces the value at path. The value is checked against the layout
// only when the record is encoded.
func (r *Record) Set(path string, v any) error {
	parts := strings.Split(path, ".")
	var cur any = r
	for n, p := range parts {
		last := n == len(parts)-1
		switch c := cur.(type) {
		case *Record:
			i := c.index(p)
			if i < 0 {
				return errors.Errorf("no field %q in %s", p, path)
			}
			if last {
				c.values[i] = v
				return nil
			}
			cur = c.values[i]
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(c) {
				return errors.Errorf("bad index %q in %s", p, path)
			}
			if last {
				c[i] = v
				return nil
			}
			cur = c[i]
		default:
			return errors.Errorf("%s: %T has no member %q", path, cur, p)
		}
	}
	return nil
}

// Int returns the value at path as int64. Unsigned values above the int64
// range are reported as not ok.
func (r *Record) Int(path string) (int64, bool) {
	v, ok := r.Get(path)
	if !ok {
		return 0, false
	}
	return asInt64(v)
}

func (r *Record) Float(path string) (float64, bool) {
	v, ok := r.Get(path)
	if !ok {
		return 0, false
	}
	return asFloat64(v)
}

// Text returns a byte string field up to its first NUL.
func (r *Record) Text(path string) (string, bool) {
	v, ok := r.Get(path)
	if !ok {
		return "", false
	}
	b, ok := v.([]byte)
	if !ok {
		return "", false
	}
	return CString(b), true
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := &Record{names: r.names, values: make([]any, len(r.values))}
	for i, v := range r.values {
		c.values[i] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case *Record:
		return x.Clone()
	case []any:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = cloneValue(e)
		}
		return a
	case []byte:
		return append([]byte(nil), x...)
	}
	return v
}

// Map converts the record to nested maps, arrays to slices and byte strings
// to Go strings; used for JSON output.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, v := range r.values {
		m[r.names[i]] = plain(v)
	}
	return m
}

func plain(v any) any {
	switch x := v.(type) {
	case *Record:
		return x.Map()
	case []any:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = plain(e)
		}
		return a
	case []byte:
		return CString(x)
	}
	return v
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.names[i])
		b.WriteString(": ")
		switch x := v.(type) {
		case *Record:
			b.WriteString(x.String())
		case []byte:
			b.WriteString(strconv.Quote(CString(x)))
		default:
			fmt.Fprint(&b, x)
		}
	}
	b.WriteByte('}')
	return b.String()
}

// CString returns b up to its first NUL byte.
func CString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
