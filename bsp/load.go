// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/entities"
	"github.com/therjak/bspkit/filesystem"
	"github.com/therjak/bspkit/gamelump"
	"github.com/therjak/bspkit/lump"
	"github.com/therjak/bspkit/lzmaraw"
	"github.com/therjak/bspkit/pakfile"
	"github.com/therjak/bspkit/vis"
)

// source is where a load gets its bytes from.
type source interface {
	size() int64
	readRange(off, n int64) ([]byte, error)
	// overlay returns the bytes of an overlay file for lump index.
	overlay(index int) ([]byte, bool, error)
}

type fileSource struct {
	path     string
	n        int64
	behavior branch.Behavior
	overlays bool
}

func (f *fileSource) size() int64 {
	return f.n
}

func (f *fileSource) readRange(off, n int64) ([]byte, error) {
	return filesystem.ReadRange(f.path, off, n)
}

func (f *fileSource) overlay(index int) ([]byte, bool, error) {
	if !f.overlays {
		return nil, false, nil
	}
	name := f.behavior.OverlayName(f.path, index)
	if !filesystem.Exists(name) {
		return nil, false, nil
	}
	b, err := filesystem.ReadFile(name)
	return b, err == nil, err
}

type memSource []byte

func (m memSource) size() int64 {
	return int64(len(m))
}

func (m memSource) readRange(off, n int64) ([]byte, error) {
	return append([]byte(nil), m[off:off+n]...), nil
}

func (memSource) overlay(int) ([]byte, bool, error) {
	return nil, false, nil
}

// Load reads the map at path and the overlay files beside it.
func Load(path string, opts ...Option) (*Container, error) {
	o := newOptions(opts)
	n, err := filesystem.Size(path)
	if err != nil {
		return nil, err
	}
	src := &fileSource{path: path, n: n, overlays: o.overlays}
	c, err := load(src, o, path)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Decode reads a map held in memory. There are no overlay files.
func Decode(data []byte, opts ...Option) (*Container, error) {
	return load(memSource(data), newOptions(opts), "")
}

func resolve(src source, o *options) (*branch.Branch, error) {
	if o.branch != nil {
		return o.branch, o.branch.Validate()
	}
	n := src.size()
	if n > 8 {
		n = 8
	}
	first, err := src.readRange(0, n)
	if err != nil {
		return nil, err
	}
	return o.registry.Resolve(first)
}

func load(src source, o *options, path string) (*Container, error) {
	br, err := resolve(src, o)
	if err != nil {
		return nil, err
	}
	bh := br.Behaviors()
	if fs, ok := src.(*fileSource); ok {
		fs.behavior = bh
	}
	hs := int64(br.Header.Size())
	if src.size() < hs {
		return nil, errors.Wrapf(ErrHeaderTable, "%s: file of %d bytes, header needs %d", br.Name, src.size(), hs)
	}
	hb, err := src.readRange(0, hs)
	if err != nil {
		return nil, errors.Wrap(ErrHeaderTable, err.Error())
	}
	h, err := branch.ReadHeader(hb, br)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Branch:  br,
		Headers: h.Lumps,
		Header:  h.Fields,
		Trailer: h.Trailer,
		ID:      uuid.New(),
		Path:    path,
		slots:   make([]slot, len(br.Lumps)),
	}
	log := o.logger.With().
		Str("load_id", c.ID.String()).
		Str("branch", br.Name).
		Logger()
	if path != "" {
		log = log.With().Str("file", path).Logger()
	}

	for i := range br.Lumps {
		spec := &br.Lumps[i]
		lh := h.Lumps[i]
		data, err := c.acquire(src, br.Overlay, i, lh)
		if err != nil {
			c.fail(&log, spec.Name, -1, ErrLumpDecode, err)
			c.slots[i].view = lump.NewRawView(nil)
			continue
		}
		if lh.Compressed() && !c.slots[i].overlaid && len(data) > 0 {
			b, err := lzmaraw.Decompress(data)
			if err != nil {
				// written back as loaded
				c.fail(&log, spec.Name, -1, ErrCompression, err)
				c.slots[i].fourCC = lh.FourCC
				c.slots[i].view = lump.NewRawView(data)
				continue
			}
			c.slots[i].compressed = true
			data = b
		}
		v, err := c.decode(&log, spec, lh, data)
		if err != nil {
			return nil, err
		}
		c.slots[i].view = v
	}
	log.Debug().
		Int("lumps", len(c.slots)).
		Int("errors", len(c.errors)).
		Msg("loaded")
	return c, nil
}

// acquire returns the bytes of lump i: an overlay file when the policy
// allows, else the range of the lump table.
func (c *Container) acquire(src source, p branch.OverlayPolicy, i int, lh branch.LumpHeader) ([]byte, error) {
	useOverlay := p == branch.OverlayOverrides || (p == branch.OverlayFallback && lh.Absent())
	if useOverlay {
		b, ok, err := src.overlay(i)
		if err != nil {
			return nil, errors.Wrap(err, "overlay")
		}
		if ok {
			c.slots[i].overlaid = true
			return b, nil
		}
	}
	if lh.Absent() {
		return nil, nil
	}
	end := int64(lh.Offset) + int64(lh.Length)
	if end > src.size() {
		return nil, errors.Errorf("%d bytes at %d past the end of the file", lh.Length, lh.Offset)
	}
	return src.readRange(int64(lh.Offset), int64(lh.Length))
}

func (c *Container) fail(log *zerolog.Logger, name string, index int, kind, err error) {
	e := LumpError{Lump: name, Index: index, Kind: kind, Err: err}
	c.errors = append(c.errors, e)
	log.Warn().Str("lump", name).Int("index", index).Err(err).Msg(kind.Error())
}

// decode turns lump bytes into a view. Failures are recorded and give a
// RawView; only a corrupt embedded archive is returned as an error.
func (c *Container) decode(log *zerolog.Logger, spec *branch.LumpSpec, lh branch.LumpHeader, data []byte) (lump.View, error) {
	raw := func(kind, err error) lump.View {
		c.fail(log, spec.Name, -1, kind, err)
		return lump.NewRawView(data)
	}
	switch spec.Kind {
	case branch.KindRaw:
		return lump.NewRawView(data), nil
	case branch.KindBasic:
		v, err := lump.NewBasicView(data, spec.Type)
		if err != nil {
			return raw(ErrLumpDecode, err), nil
		}
		return v, nil
	case branch.KindRecord:
		l, ok := spec.Layout(lh.Version)
		if !ok {
			return raw(ErrLumpDecode, errors.Errorf("no layout for version %d", lh.Version)), nil
		}
		v, err := lump.NewRecordView(data, l)
		if err != nil {
			return raw(ErrLumpDecode, err), nil
		}
		return v, nil
	case branch.KindEntities:
		v, err := entities.Decode(data)
		if err != nil {
			return raw(ErrSpecialLump, err), nil
		}
		return v, nil
	case branch.KindPakFile:
		v, err := pakfile.Parse(data)
		if err != nil {
			return nil, errors.Wrapf(err, "lump %s", spec.Name)
		}
		return v, nil
	case branch.KindGameLump:
		d, err := gamelump.Decode(data, c.Branch.Behaviors().GameLumpBase(lh), c.Branch.GameLumps)
		if err != nil {
			return raw(ErrSpecialLump, err), nil
		}
		for j, g := range d.Lumps {
			if g.Err != nil {
				c.fail(log, spec.Name+"/"+g.ID.String(), j, ErrSpecialLump, g.Err)
			}
		}
		return d, nil
	case branch.KindVisibility:
		v, err := vis.Decode(data)
		if err != nil {
			return raw(ErrSpecialLump, err), nil
		}
		return v, nil
	}
	return raw(ErrLumpDecode, errors.Errorf("unknown lump kind %v", spec.Kind)), nil
}
