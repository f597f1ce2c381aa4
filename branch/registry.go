// SPDX-License-Identifier: GPL-2.0-or-later

package branch

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Registry resolves files to branches. It is built once and only read
// afterwards, so one Registry can serve concurrent loads.
type Registry struct {
	branches []*Branch
	names    map[string]*Branch
	ids      map[string]*Branch
}

// NewRegistry validates bs and indexes them by name and identity.
// Registration order breaks no ties: two branches with the same identity
// are an error.
func NewRegistry(bs ...*Branch) (*Registry, error) {
	r := &Registry{
		names: make(map[string]*Branch, len(bs)),
		ids:   make(map[string]*Branch, len(bs)),
	}
	for _, b := range bs {
		if err := r.add(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(b *Branch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, ok := r.names[b.Name]; ok {
		return errors.Errorf("branch %s registered twice", b.Name)
	}
	id := b.Identity()
	if o, ok := r.ids[id]; ok {
		return errors.Errorf("branches %s and %s both resolve %s", o.Name, b.Name, id)
	}
	r.branches = append(r.branches, b)
	r.names[b.Name] = b
	r.ids[id] = b
	return nil
}

// With returns a new registry holding r's branches and bs.
func (r *Registry) With(bs ...*Branch) (*Registry, error) {
	return NewRegistry(append(append([]*Branch(nil), r.branches...), bs...)...)
}

// Branch returns the branch registered as name.
func (r *Registry) Branch(name string) (*Branch, bool) {
	b, ok := r.names[name]
	return b, ok
}

// Branches returns the branches in registration order.
func (r *Registry) Branches() []*Branch {
	return append([]*Branch(nil), r.branches...)
}

// Resolve picks the branch for a file starting with first. Branches with
// a magic are matched first, using the version after the magic when they
// have one. Then branches without magic are matched by the leading
// version. Anything else is ErrUnsupportedFormat.
func (r *Registry) Resolve(first []byte) (*Branch, error) {
	for _, b := range r.branches {
		m := b.Header.Magic
		if len(m) == 0 || !bytes.HasPrefix(first, m) {
			continue
		}
		if !b.Header.Versioned() {
			return b, nil
		}
		if len(first) < len(m)+4 {
			continue
		}
		if binary.LittleEndian.Uint32(first[len(m):]) == b.Version {
			return b, nil
		}
	}
	if len(first) >= 4 {
		v := binary.LittleEndian.Uint32(first)
		for _, b := range r.branches {
			if len(b.Header.Magic) == 0 && b.Version == v {
				return b, nil
			}
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "magic/version %s", describe(first))
}

func describe(first []byte) string {
	if len(first) < 8 {
		return fmt.Sprintf("%q", first)
	}
	return fmt.Sprintf("%q/%d", first[:4], binary.LittleEndian.Uint32(first[4:]))
}
