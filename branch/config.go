// SPDX-License-Identifier: GPL-2.0-or-later

package branch

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OverrideConfig is one derived branch in a branches file:
//
//	branches:
//	  - name: vindictus
//	    parent: source_20
//	    version: 20
//	    overlay: none
//	    raw_lumps: [leaves]
//	    rename: {leaf_faces: leaf_surfaces}
//	    game_lump_offsets: relative
type OverrideConfig struct {
	Name     string            `yaml:"name"`
	Parent   string            `yaml:"parent"`
	Magic    *string           `yaml:"magic"`
	Version  *uint32           `yaml:"version"`
	Overlay  string            `yaml:"overlay"`
	RawLumps []string          `yaml:"raw_lumps"`
	Rename   map[string]string `yaml:"rename"`
	// GameLumpOffsets is "file" or "relative".
	GameLumpOffsets string `yaml:"game_lump_offsets"`
}

type overridesFile struct {
	Branches []OverrideConfig `yaml:"branches"`
}

// Overrides converts the config into Derive overrides.
func (c *OverrideConfig) Overrides() (Overrides, error) {
	o := Overrides{Name: c.Name, Version: c.Version, Rename: c.Rename}
	if c.Magic != nil {
		o.Magic = []byte(*c.Magic)
	}
	if c.Overlay != "" {
		p, err := ParseOverlayPolicy(c.Overlay)
		if err != nil {
			return o, errors.Wrap(err, c.Name)
		}
		o.Overlay = &p
	}
	switch c.GameLumpOffsets {
	case "", "file":
	case "relative":
		o.Behavior = RelativeGameLumps{}
	default:
		return o, errors.Errorf("%s: game lump offsets %q", c.Name, c.GameLumpOffsets)
	}
	if len(c.RawLumps) > 0 {
		o.Lumps = make(map[string]LumpSpec, len(c.RawLumps))
		for _, l := range c.RawLumps {
			o.Lumps[l] = Raw(l)
		}
	}
	return o, nil
}

// ParseOverrides derives the branches described in data. Parents are
// looked up in r or among the branches earlier in data.
func ParseOverrides(data []byte, r *Registry) ([]*Branch, error) {
	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "branches")
	}
	var out []*Branch
	local := make(map[string]*Branch)
	for i := range f.Branches {
		c := &f.Branches[i]
		parent, ok := local[c.Parent]
		if !ok && r != nil {
			parent, ok = r.Branch(c.Parent)
		}
		if !ok {
			return nil, errors.Errorf("branch %s: unknown parent %q", c.Name, c.Parent)
		}
		o, err := c.Overrides()
		if err != nil {
			return nil, err
		}
		b, err := Derive(parent, o)
		if err != nil {
			return nil, err
		}
		local[b.Name] = b
		out = append(out, b)
	}
	return out, nil
}

// LoadOverrides reads a branches file.
func LoadOverrides(path string, r *Registry) ([]*Branch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	bs, err := ParseOverrides(data, r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return bs, nil
}
