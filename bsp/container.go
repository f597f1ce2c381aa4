// SPDX-License-Identifier: GPL-2.0-or-later

// Package bsp loads and saves map files. A load resolves the file's branch,
// reads its lump table and decodes every lump into a lump.View. A lump
// that fails to decode is kept as raw bytes and reported in Errors; only
// an unknown format, an unreadable header or a corrupt embedded archive
// fail the load.
package bsp

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/entities"
	"github.com/therjak/bspkit/gamelump"
	"github.com/therjak/bspkit/layout"
	"github.com/therjak/bspkit/lump"
	"github.com/therjak/bspkit/pakfile"
	"github.com/therjak/bspkit/vis"
)

type slot struct {
	view     lump.View
	overlaid bool
	// compressed lumps are compressed again on save
	compressed bool
	// fourCC is written for lumps that are not compressed again
	fourCC uint32
}

// Container is a loaded map. It owns its views; nothing is shared with
// other loads.
type Container struct {
	Branch *branch.Branch
	// Headers is the lump table as loaded.
	Headers []branch.LumpHeader
	// Header holds the header fields after the magic, Trailer the fields
	// after the lump table, if the branch has any.
	Header  *layout.Record
	Trailer *layout.Record
	// ID tags the load in log messages.
	ID uuid.UUID
	// Path is the loaded file or empty for Decode.
	Path string

	slots  []slot
	errors []LumpError
}

func (c *Container) index(name string) (int, error) {
	i := c.Branch.LumpIndex(name)
	if i < 0 {
		return -1, errors.Errorf("%s has no lump %s", c.Branch.Name, name)
	}
	return i, nil
}

// Lump returns the view of the named lump.
func (c *Container) Lump(name string) (lump.View, bool) {
	i := c.Branch.LumpIndex(name)
	if i < 0 {
		return nil, false
	}
	return c.slots[i].view, true
}

// SetLump replaces the view of the named lump.
func (c *Container) SetLump(name string, v lump.View) error {
	i, err := c.index(name)
	if err != nil {
		return err
	}
	if v == nil {
		return errors.Errorf("nil view for lump %s", name)
	}
	c.slots[i].view = v
	return nil
}

// Names lists the lumps in table order.
func (c *Container) Names() []string {
	n := make([]string, len(c.Branch.Lumps))
	for i := range c.Branch.Lumps {
		n[i] = c.Branch.Lumps[i].Name
	}
	return n
}

// Errors returns the lump failures of the load.
func (c *Container) Errors() []LumpError {
	return append([]LumpError(nil), c.errors...)
}

// Overlaid reports whether the named lump was read from an overlay file.
func (c *Container) Overlaid(name string) bool {
	i := c.Branch.LumpIndex(name)
	return i >= 0 && c.slots[i].overlaid
}

// Compressed reports whether the named lump was lzma compressed.
func (c *Container) Compressed(name string) bool {
	i := c.Branch.LumpIndex(name)
	return i >= 0 && c.slots[i].compressed
}

// Version returns the header version, if the branch has one.
func (c *Container) Version() (uint32, bool) {
	h := branch.Header{Fields: c.Header}
	return h.Version()
}

// Records returns the named lump as records.
func (c *Container) Records(name string) (*lump.RecordView, bool) {
	v, _ := c.Lump(name)
	r, ok := v.(*lump.RecordView)
	return r, ok
}

// Entities returns the first entities lump.
func (c *Container) Entities() (*entities.List, bool) {
	for _, s := range c.slots {
		if l, ok := s.view.(*entities.List); ok {
			return l, true
		}
	}
	return nil, false
}

// PakFile returns the embedded archive.
func (c *Container) PakFile() (*pakfile.Archive, bool) {
	for _, s := range c.slots {
		if a, ok := s.view.(*pakfile.Archive); ok {
			return a, true
		}
	}
	return nil, false
}

// GameLumps returns the game lump directory.
func (c *Container) GameLumps() (*gamelump.Directory, bool) {
	for _, s := range c.slots {
		if d, ok := s.view.(*gamelump.Directory); ok {
			return d, true
		}
	}
	return nil, false
}

// Visibility returns the cluster visibility lump.
func (c *Container) Visibility() (*vis.Lump, bool) {
	for _, s := range c.slots {
		if l, ok := s.view.(*vis.Lump); ok {
			return l, true
		}
	}
	return nil, false
}
