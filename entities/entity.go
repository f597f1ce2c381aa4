// SPDX-License-Identifier: GPL-2.0-or-later

// Package entities reads and writes the text entity lump:
//
//	{
//	"classname" "worldspawn"
//	"wad" "gfx/base.wad"
//	}
//	{
//	"classname" "light"
//	...
//	}
//
// A key may appear more than once in an entity; all its values are kept
// in order.
package entities

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

var ErrParse = errors.New("entities")

type Entity struct {
	keys       []string
	properties map[string][]string
}

func NewEntity() *Entity {
	return &Entity{properties: make(map[string][]string)}
}

// Property returns the first value of name.
func (e *Entity) Property(name string) (string, bool) {
	v, ok := e.properties[name]
	if !ok {
		return "", false
	}
	return v[0], true
}

// Values returns every value of name in file order.
func (e *Entity) Values(name string) []string {
	return append([]string(nil), e.properties[name]...)
}

// Name returns the classname.
func (e *Entity) Name() (string, bool) {
	return e.Property("classname")
}

// PropertyNames returns the keys in order of first appearance.
func (e *Entity) PropertyNames() []string {
	return append([]string(nil), e.keys...)
}

// Add appends a value to name.
func (e *Entity) Add(name, value string) {
	if _, ok := e.properties[name]; !ok {
		e.keys = append(e.keys, name)
	}
	e.properties[name] = append(e.properties[name], value)
}

// Set replaces all values of name with value.
func (e *Entity) Set(name, value string) {
	if _, ok := e.properties[name]; !ok {
		e.keys = append(e.keys, name)
	}
	e.properties[name] = []string{value}
}

func (e *Entity) Delete(name string) {
	if _, ok := e.properties[name]; !ok {
		return
	}
	delete(e.properties, name)
	for i, k := range e.keys {
		if k == name {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Equal reports whether both entities hold the same keys and values in
// the same order.
func (e *Entity) Equal(o *Entity) bool {
	if len(e.keys) != len(o.keys) {
		return false
	}
	for i, k := range e.keys {
		if o.keys[i] != k {
			return false
		}
		a, b := e.properties[k], o.properties[k]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// Map returns the entity with every key mapped to its values, for JSON.
func (e *Entity) Map() map[string][]string {
	m := make(map[string][]string, len(e.keys))
	for _, k := range e.keys {
		m[k] = e.Values(k)
	}
	return m
}

func (e *Entity) appendText(b []byte) []byte {
	b = append(b, "{\n"...)
	for _, k := range e.keys {
		for _, v := range e.properties[k] {
			b = append(b, '"')
			b = append(b, k...)
			b = append(b, `" "`...)
			b = append(b, v...)
			b = append(b, "\"\n"...)
		}
	}
	return append(b, "}\n"...)
}

// parseKeyValue splits a `"key" "value"` line.
func parseKeyValue(l []byte) (string, string, bool) {
	if len(l) < 2 || l[0] != '"' || l[len(l)-1] != '"' {
		return "", "", false
	}
	r := l[1:]
	q := bytes.IndexByte(r, '"')
	if q == -1 {
		return "", "", false
	}
	key := string(r[:q])
	r = bytes.TrimLeft(r[q+1:], " \t")
	if len(r) < 2 || r[0] != '"' {
		return "", "", false
	}
	return key, string(r[1 : len(r)-1]), true
}

// Parse reads the entity lump. Blank lines, `//` comment lines and one
// trailing NUL are ignored; anything else outside the grammar fails with
// ErrParse.
func Parse(data []byte) ([]*Entity, error) {
	data = bytes.TrimSuffix(data, []byte{0})
	es := []*Entity{}
	var cur *Entity
	for n, l := range bytes.Split(data, []byte("\n")) {
		line := n + 1
		l = bytes.TrimSpace(l)
		switch {
		case len(l) == 0, bytes.HasPrefix(l, []byte("//")):
			continue
		case len(l) == 1 && l[0] == '{':
			if cur != nil {
				return nil, errors.Wrapf(ErrParse, "line %d: nested '{'", line)
			}
			cur = NewEntity()
		case len(l) == 1 && l[0] == '}':
			if cur == nil {
				return nil, errors.Wrapf(ErrParse, "line %d: '}' without '{'", line)
			}
			es = append(es, cur)
			cur = nil
		default:
			if cur == nil {
				return nil, errors.Wrapf(ErrParse, "line %d: %s outside an entity", line, strconv.Quote(string(l)))
			}
			k, v, ok := parseKeyValue(l)
			if !ok {
				return nil, errors.Wrapf(ErrParse, "line %d: cannot parse %s", line, strconv.Quote(string(l)))
			}
			cur.Add(k, v)
		}
	}
	if cur != nil {
		return nil, errors.Wrap(ErrParse, "unterminated entity at end of lump")
	}
	return es, nil
}

// Marshal is the inverse of Parse. The result is NUL terminated.
func Marshal(es []*Entity) []byte {
	var b []byte
	for _, e := range es {
		b = e.appendText(b)
	}
	return append(b, 0)
}
