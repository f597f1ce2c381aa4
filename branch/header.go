// SPDX-License-Identifier: GPL-2.0-or-later

package branch

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/layout"
)

var (
	// ErrUnsupportedFormat is returned for an unknown magic and version.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrHeaderTable is returned when the header or its lump table can not
	// be read.
	ErrHeaderTable = errors.New("bad header table")
)

// LumpHeader is one entry of the lump table. Branches without a field
// leave it zero.
type LumpHeader struct {
	Offset  uint32
	Length  uint32
	Version uint32
	FourCC  uint32 // uncompressed size when the lump is lzma compressed
}

// Absent reports whether the container holds no bytes for the lump.
func (h LumpHeader) Absent() bool {
	return h.Length == 0
}

func (h LumpHeader) Compressed() bool {
	return h.FourCC != 0
}

// HeaderFormat describes the file header:
//
//	magic   [len(Magic)]byte
//	fields  Fields
//	lumps   [Count]Entry
//	trailer Trailer
type HeaderFormat struct {
	Magic  []byte
	Fields layout.Fields
	// Entry names its fields offset, length and optionally version and
	// fourCC, in file order.
	Entry   layout.Fields
	Count   int
	Trailer layout.Fields
}

// Size is the length of the whole header.
func (f *HeaderFormat) Size() int {
	return len(f.Magic) + f.Fields.Size() + f.Count*f.Entry.Size() + f.Trailer.Size()
}

// TableOffset is where the lump table starts.
func (f *HeaderFormat) TableOffset() int {
	return len(f.Magic) + f.Fields.Size()
}

// Versioned reports whether the header carries a version field right after
// the magic.
func (f *HeaderFormat) Versioned() bool {
	return len(f.Fields) > 0 && f.Fields[0].Name == "version"
}

func (f *HeaderFormat) validate() error {
	for _, d := range []layout.Fields{f.Fields, f.Entry, f.Trailer} {
		if len(d) == 0 {
			continue
		}
		if err := layout.Validate(d); err != nil {
			return err
		}
	}
	if f.Count <= 0 {
		return errors.Errorf("lump count %d", f.Count)
	}
	if f.Entry.Index("offset") < 0 || f.Entry.Index("length") < 0 {
		return errors.New("lump entry needs offset and length")
	}
	for _, e := range f.Entry {
		if s, ok := e.Desc.(layout.Scalar); !ok || !integer(s.Type) {
			return errors.Errorf("lump entry field %s is not an integer", e.Name)
		}
	}
	if len(f.Magic) == 0 && !f.Versioned() {
		return errors.New("a header without magic needs a leading version field")
	}
	if i := f.Fields.Index("version"); i > 0 {
		return errors.New("version must be the first header field")
	}
	return nil
}

func integer(t layout.Type) bool {
	switch t {
	case layout.Int8, layout.Uint8, layout.Int16, layout.Uint16,
		layout.Int32, layout.Uint32, layout.Int64, layout.Uint64:
		return true
	}
	return false
}

// Header is a decoded file header.
type Header struct {
	Fields  *layout.Record
	Lumps   []LumpHeader
	Trailer *layout.Record
}

// Version returns the version field, if the format has one.
func (h *Header) Version() (uint32, bool) {
	if h.Fields == nil {
		return 0, false
	}
	v, ok := h.Fields.Get("version")
	if !ok {
		return 0, false
	}
	u, ok := layout.AsUint(v)
	return uint32(u), ok
}

func decodeFields(d layout.Fields, b []byte) (*layout.Record, error) {
	if len(d) == 0 {
		return nil, nil
	}
	v, err := layout.Decode(d, b)
	if err != nil {
		return nil, err
	}
	return v.(*layout.Record), nil
}

func entryValue(r *layout.Record, name string) uint32 {
	v, ok := r.Get(name)
	if !ok {
		return 0
	}
	if u, ok := layout.AsUint(v); ok {
		return uint32(u)
	}
	i, _ := layout.AsInt(v)
	return uint32(i)
}

// ReadHeader decodes the header of b for branch br.
func ReadHeader(b []byte, br *Branch) (*Header, error) {
	f := &br.Header
	if len(b) < f.Size() {
		return nil, errors.Wrapf(ErrHeaderTable, "%s: %d bytes, header needs %d", br.Name, len(b), f.Size())
	}
	if !bytes.Equal(b[:len(f.Magic)], f.Magic) {
		return nil, errors.Wrapf(ErrHeaderTable, "%s: magic %q", br.Name, b[:len(f.Magic)])
	}
	pos := len(f.Magic)
	h := &Header{Lumps: make([]LumpHeader, f.Count)}
	var err error
	if h.Fields, err = decodeFields(f.Fields, b[pos:]); err != nil {
		return nil, errors.Wrapf(ErrHeaderTable, "%s: %v", br.Name, err)
	}
	pos += f.Fields.Size()
	es := f.Entry.Size()
	for i := range h.Lumps {
		r, err := decodeFields(f.Entry, b[pos+i*es:])
		if err != nil {
			return nil, errors.Wrapf(ErrHeaderTable, "%s: lump %d: %v", br.Name, i, err)
		}
		h.Lumps[i] = LumpHeader{
			Offset:  entryValue(r, "offset"),
			Length:  entryValue(r, "length"),
			Version: entryValue(r, "version"),
			FourCC:  entryValue(r, "fourCC"),
		}
	}
	pos += f.Count * es
	if h.Trailer, err = decodeFields(f.Trailer, b[pos:]); err != nil {
		return nil, errors.Wrapf(ErrHeaderTable, "%s: trailer: %v", br.Name, err)
	}
	return h, nil
}

// WriteHeader encodes h for branch br. Missing header fields are written
// as zero.
func WriteHeader(h *Header, br *Branch) ([]byte, error) {
	f := &br.Header
	if len(h.Lumps) != f.Count {
		return nil, errors.Wrapf(ErrHeaderTable, "%s: %d lumps, header has %d", br.Name, len(h.Lumps), f.Count)
	}
	out := make([]byte, 0, f.Size())
	out = append(out, f.Magic...)
	var err error
	appendFields := func(d layout.Fields, r *layout.Record) {
		if err != nil || len(d) == 0 {
			return
		}
		if r == nil {
			r = layout.Zero(d).(*layout.Record)
		}
		out, err = layout.AppendEncode(out, d, r)
	}
	appendFields(f.Fields, h.Fields)
	for _, l := range h.Lumps {
		if err != nil {
			break
		}
		m := make(map[string]any, len(f.Entry))
		for _, e := range f.Entry {
			switch e.Name {
			case "offset":
				m[e.Name] = l.Offset
			case "length":
				m[e.Name] = l.Length
			case "version":
				m[e.Name] = l.Version
			case "fourCC":
				m[e.Name] = l.FourCC
			default:
				m[e.Name] = 0
			}
		}
		out, err = layout.AppendEncode(out, f.Entry, m)
	}
	appendFields(f.Trailer, h.Trailer)
	if err != nil {
		return nil, errors.Wrapf(ErrHeaderTable, "%s: %v", br.Name, err)
	}
	return out, nil
}
