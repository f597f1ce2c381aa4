// SPDX-License-Identifier: GPL-2.0-or-later

// Package branch describes the map formats of the engine branches: the
// header, the lump table and how each lump decodes. A Branch is a value;
// variants are made with Derive and never by changing a registered one.
package branch

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/gamelump"
	"github.com/therjak/bspkit/layout"
)

// LumpKind selects the codec of a lump.
type LumpKind int

const (
	KindRaw LumpKind = iota
	KindBasic
	KindRecord
	KindEntities
	KindPakFile
	KindGameLump
	KindVisibility
)

var kindNames = [...]string{
	KindRaw:        "raw",
	KindBasic:      "basic",
	KindRecord:     "record",
	KindEntities:   "entities",
	KindPakFile:    "pakfile",
	KindGameLump:   "gamelump",
	KindVisibility: "visibility",
}

func (k LumpKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("LumpKind(%d)", int(k))
}

// Special reports whether the lump has a codec of its own.
func (k LumpKind) Special() bool {
	return k >= KindEntities
}

// LumpSpec is one slot of the lump table.
type LumpSpec struct {
	Name string
	Kind LumpKind
	// Type is the element type of a KindBasic lump.
	Type layout.Scalar
	// Layouts of a KindRecord lump by lump version. Version 0 is used
	// when there is no exact match.
	Layouts map[uint32]*layout.RecordLayout
}

// Layout returns the record layout for a lump of the given version.
func (s *LumpSpec) Layout(version uint32) (*layout.RecordLayout, bool) {
	if l, ok := s.Layouts[version]; ok {
		return l, true
	}
	l, ok := s.Layouts[0]
	return l, ok
}

// Raw is a LumpSpec kept as bytes.
func Raw(name string) LumpSpec {
	return LumpSpec{Name: name, Kind: KindRaw}
}

// Basic is a LumpSpec of scalars.
func Basic(name string, t layout.Scalar) LumpSpec {
	return LumpSpec{Name: name, Kind: KindBasic, Type: t}
}

// Records is a LumpSpec of records of one layout for every version.
func Records(name string, l *layout.RecordLayout) LumpSpec {
	return LumpSpec{Name: name, Kind: KindRecord, Layouts: map[uint32]*layout.RecordLayout{0: l}}
}

// Special is a LumpSpec with a special codec.
func Special(name string, k LumpKind) LumpSpec {
	return LumpSpec{Name: name, Kind: k}
}

// OverlayPolicy decides between an overlay file and the container's own
// bytes for a lump.
type OverlayPolicy int

const (
	// OverlayOverrides uses an existing overlay file.
	OverlayOverrides OverlayPolicy = iota
	// OverlayFallback uses an overlay file only when the container holds
	// no bytes for the lump. Formats that keep most lumps external use it.
	OverlayFallback
	// OverlayNone ignores overlay files.
	OverlayNone
)

var overlayNames = map[string]OverlayPolicy{
	"overrides": OverlayOverrides,
	"fallback":  OverlayFallback,
	"none":      OverlayNone,
}

func (p OverlayPolicy) String() string {
	for n, v := range overlayNames {
		if v == p {
			return n
		}
	}
	return fmt.Sprintf("OverlayPolicy(%d)", int(p))
}

// ParseOverlayPolicy is the inverse of OverlayPolicy.String.
func ParseOverlayPolicy(s string) (OverlayPolicy, error) {
	p, ok := overlayNames[s]
	if !ok {
		return 0, errors.Errorf("unknown overlay policy %q", s)
	}
	return p, nil
}

// Branch is the format description of one engine variant.
type Branch struct {
	Name    string
	Header  HeaderFormat
	Version uint32
	// Lumps has one entry per lump table slot.
	Lumps     []LumpSpec
	GameLumps gamelump.Table
	Overlay   OverlayPolicy
	Behavior  Behavior
}

// Identity is the key a branch is resolved by.
func (b *Branch) Identity() string {
	if b.Header.Versioned() {
		return fmt.Sprintf("%q/%d", b.Header.Magic, b.Version)
	}
	return fmt.Sprintf("%q", b.Header.Magic)
}

func (b *Branch) String() string {
	return b.Name
}

// LumpIndex returns the table slot of the named lump or -1.
func (b *Branch) LumpIndex(name string) int {
	for i := range b.Lumps {
		if b.Lumps[i].Name == name {
			return i
		}
	}
	return -1
}

// Lump returns the spec of the named lump.
func (b *Branch) Lump(name string) (*LumpSpec, bool) {
	i := b.LumpIndex(name)
	if i < 0 {
		return nil, false
	}
	return &b.Lumps[i], true
}

// Behaviors returns the branch behavior or DefaultBehavior.
func (b *Branch) Behaviors() Behavior {
	if b.Behavior == nil {
		return DefaultBehavior{}
	}
	return b.Behavior
}

// Validate checks the header format and the lump table.
func (b *Branch) Validate() error {
	if b.Name == "" {
		return errors.New("branch without name")
	}
	if err := b.Header.validate(); err != nil {
		return errors.Wrap(err, b.Name)
	}
	if len(b.Lumps) != b.Header.Count {
		return errors.Errorf("%s: %d lumps for %d table entries", b.Name, len(b.Lumps), b.Header.Count)
	}
	seen := make(map[string]bool, len(b.Lumps))
	for i := range b.Lumps {
		s := &b.Lumps[i]
		if s.Name == "" {
			return errors.Errorf("%s: lump %d has no name", b.Name, i)
		}
		if seen[s.Name] {
			return errors.Errorf("%s: duplicate lump %s", b.Name, s.Name)
		}
		seen[s.Name] = true
		switch s.Kind {
		case KindBasic:
			if err := layout.Validate(s.Type); err != nil {
				return errors.Wrapf(err, "%s: %s", b.Name, s.Name)
			}
		case KindRecord:
			if len(s.Layouts) == 0 {
				return errors.Errorf("%s: record lump %s without layout", b.Name, s.Name)
			}
		}
	}
	return nil
}

// Overrides are the changes Derive applies to a parent branch.
type Overrides struct {
	Name string
	// Header replaces the parent header format; Magic applies after it.
	Header  *HeaderFormat
	Magic   []byte
	Version *uint32
	Overlay *OverlayPolicy
	// Lumps replaces the specs of the named lumps.
	Lumps map[string]LumpSpec
	// Rename maps old lump names to new ones.
	Rename    map[string]string
	GameLumps gamelump.Table
	Behavior  Behavior
}

// Derive returns a new branch made from parent with o applied. The parent
// is not changed.
func Derive(parent *Branch, o Overrides) (*Branch, error) {
	if o.Name == "" || o.Name == parent.Name {
		return nil, errors.Errorf("branch derived from %s needs a new name", parent.Name)
	}
	b := &Branch{
		Name:      o.Name,
		Header:    parent.Header,
		Version:   parent.Version,
		Lumps:     make([]LumpSpec, len(parent.Lumps)),
		GameLumps: make(gamelump.Table, len(parent.GameLumps)),
		Overlay:   parent.Overlay,
		Behavior:  parent.Behavior,
	}
	if o.Header != nil {
		b.Header = *o.Header
	}
	if o.Magic != nil {
		b.Header.Magic = append([]byte(nil), o.Magic...)
	}
	if o.Version != nil {
		b.Version = *o.Version
	}
	if o.Overlay != nil {
		b.Overlay = *o.Overlay
	}
	if o.Behavior != nil {
		b.Behavior = o.Behavior
	}
	for k, v := range parent.GameLumps {
		b.GameLumps[k] = v
	}
	for k, v := range o.GameLumps {
		b.GameLumps[k] = v
	}
	copy(b.Lumps, parent.Lumps)
	for name, s := range o.Lumps {
		i := b.LumpIndex(name)
		if i < 0 {
			return nil, errors.Errorf("%s: no lump %s in %s", o.Name, name, parent.Name)
		}
		if s.Name == "" {
			s.Name = name
		}
		b.Lumps[i] = s
	}
	for from, to := range o.Rename {
		i := b.LumpIndex(from)
		if i < 0 {
			return nil, errors.Errorf("%s: no lump %s in %s", o.Name, from, parent.Name)
		}
		b.Lumps[i].Name = to
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
