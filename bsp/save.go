// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"github.com/pkg/errors"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/filesystem"
	"github.com/therjak/bspkit/gamelump"
	"github.com/therjak/bspkit/lzmaraw"
)

// Bytes encodes the container: the header, then every lump in table order
// aligned as the branch asks. Lumps read from overlay files are written
// into the container. Lumps that were compressed are compressed again.
func (c *Container) Bytes() ([]byte, error) {
	f := &c.Branch.Header
	bh := c.Branch.Behaviors()
	align := bh.Align()
	if align < 1 {
		align = 1
	}
	out := make([]byte, f.Size())
	headers := make([]branch.LumpHeader, len(c.slots))
	for i, s := range c.slots {
		name := c.Branch.Lumps[i].Name
		for len(out)%align != 0 {
			out = append(out, 0)
		}
		offset := len(out)
		var b []byte
		var err error
		if d, ok := s.view.(*gamelump.Directory); ok {
			b, err = d.BytesAt(bh.GameLumpBase(branch.LumpHeader{Offset: uint32(offset)}))
		} else {
			b, err = s.view.Bytes()
		}
		if err != nil {
			return nil, errors.Wrapf(err, "lump %s", name)
		}
		h := branch.LumpHeader{Version: c.Headers[i].Version, FourCC: s.fourCC}
		if s.compressed && len(b) > 0 {
			h.FourCC = uint32(len(b))
			if b, err = lzmaraw.Compress(b); err != nil {
				return nil, errors.Wrapf(err, "lump %s", name)
			}
		}
		if len(b) > 0 {
			h.Offset = uint32(offset)
			h.Length = uint32(len(b))
		}
		headers[i] = h
		out = append(out, b...)
	}
	hb, err := branch.WriteHeader(&branch.Header{
		Fields:  c.Header,
		Lumps:   headers,
		Trailer: c.Trailer,
	}, c.Branch)
	if err != nil {
		return nil, err
	}
	copy(out, hb)
	return out, nil
}

// Save writes the container to path, replacing the file atomically.
func (c *Container) Save(path string) error {
	return Save(c, path)
}

// Save writes c to path, replacing the file atomically.
func Save(c *Container, path string) error {
	b, err := c.Bytes()
	if err != nil {
		return err
	}
	return filesystem.WriteFile(path, b)
}
