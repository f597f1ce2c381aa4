// SPDX-License-Identifier: GPL-2.0-or-later

// Package gamelump decodes the game lump, a lump holding a directory of
// versioned sub-lumps:
//
//	count   int32
//	entries [count]{id [4]byte; flags uint16; version uint16; offset int32; length int32}
//	data
//
// Offsets are file offsets. A compressed entry stores its lzma framed data
// up to the next entry's offset, so a directory with compressed entries
// ends in a sentinel entry with id 0 marking the end of the data.
package gamelump

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/lump"
	"github.com/therjak/bspkit/lzmaraw"
)

var ErrCorrupt = errors.New("corrupt game lump")

const (
	FlagCompressed = 1 << 0

	entrySize = 16
)

// ID is a game lump id. It reads as a big endian four character code, the
// static props lump 'sprp' is stored as "prps".
type ID uint32

func MakeID(s string) ID {
	var id ID
	for i := 0; i < 4 && i < len(s); i++ {
		id |= ID(s[i]) << uint(24-8*i)
	}
	return id
}

func (id ID) String() string {
	b := []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	return string(b)
}

// Codec decodes the data of one game lump.
type Codec func(data []byte) (lump.View, error)

type Key struct {
	ID      ID
	Version uint16
}

// Table maps game lump id and version to a codec.
type Table map[Key]Codec

// Lookup returns the codec for id and version or nil.
func (t Table) Lookup(id ID, version uint16) Codec {
	if t == nil {
		return nil
	}
	return t[Key{id, version}]
}

// Lump is one directory entry with its decoded data.
type Lump struct {
	ID      ID
	Flags   uint16
	Version uint16
	View    lump.View
	// Err is the reason View fell back to a lump.RawView.
	Err error
}

func (l *Lump) Compressed() bool {
	return l.Flags&FlagCompressed != 0
}

// Directory is a decoded game lump.
type Directory struct {
	Lumps []*Lump
	// Base is subtracted from the stored offsets to index into the lump
	// data. For file offsets it is the lump's own offset.
	Base int64
}

type entry struct {
	id      ID
	flags   uint16
	version uint16
	offset  int32
	length  int32
}

func readEntries(data []byte) ([]entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, errors.Wrap(ErrCorrupt, "no lump count")
	}
	n := int(int32(binary.LittleEndian.Uint32(data)))
	if n < 0 || 4+n*entrySize > len(data) {
		return nil, errors.Wrapf(ErrCorrupt, "%d entries do not fit %d bytes", n, len(data))
	}
	es := make([]entry, n)
	for i := range es {
		b := data[4+i*entrySize:]
		es[i] = entry{
			id:      ID(binary.LittleEndian.Uint32(b)),
			flags:   binary.LittleEndian.Uint16(b[4:]),
			version: binary.LittleEndian.Uint16(b[6:]),
			offset:  int32(binary.LittleEndian.Uint32(b[8:])),
			length:  int32(binary.LittleEndian.Uint32(b[12:])),
		}
	}
	return es, nil
}

// storedLength is the number of bytes entry i occupies in the file.
func storedLength(es []entry, i int) int64 {
	e := es[i]
	if e.flags&FlagCompressed == 0 || i+1 >= len(es) {
		return int64(e.length)
	}
	return int64(es[i+1].offset) - int64(e.offset)
}

// Decode reads the directory in data, where data starts at file offset
// base. Entries with a codec in t are decoded; failures keep the entry as a
// lump.RawView and are reported in its Err. Only a broken directory fails
// the whole decode.
func Decode(data []byte, base int64, t Table) (*Directory, error) {
	es, err := readEntries(data)
	if err != nil {
		return nil, err
	}
	d := &Directory{Base: base}
	for i, e := range es {
		if i == len(es)-1 && e.id == 0 && e.length == 0 {
			break
		}
		l := &Lump{ID: e.id, Flags: e.flags, Version: e.version}
		d.Lumps = append(d.Lumps, l)

		start := int64(e.offset) - base
		n := storedLength(es, i)
		if start < 0 || n < 0 || start+n > int64(len(data)) {
			l.View = lump.NewRawView(nil)
			l.Err = errors.Wrapf(ErrCorrupt, "%s: %d bytes at %d outside lump", e.id, n, e.offset)
			continue
		}
		raw := append([]byte(nil), data[start:start+n]...)
		if l.Compressed() && n > 0 {
			b, err := lzmaraw.Decompress(raw)
			if err != nil {
				l.View = lump.NewRawView(raw)
				l.Flags &^= FlagCompressed
				l.Err = errors.Wrap(err, e.id.String())
				continue
			}
			raw = b
		}
		l.View = lump.NewRawView(raw)
		c := t.Lookup(e.id, e.version)
		if c == nil {
			continue
		}
		v, err := c(raw)
		if err != nil {
			l.Err = errors.Wrapf(err, "%s version %d", e.id, e.version)
			continue
		}
		l.View = v
	}
	return d, nil
}

// Find returns the first game lump with id or nil.
func (d *Directory) Find(id ID) *Lump {
	for _, l := range d.Lumps {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (d *Directory) Len() int {
	return len(d.Lumps)
}

// Bytes encodes the directory at its decode base.
func (d *Directory) Bytes() ([]byte, error) {
	return d.BytesAt(d.Base)
}

// BytesAt encodes the directory for a lump starting at file offset base.
// Compressed lumps are compressed again.
func (d *Directory) BytesAt(base int64) ([]byte, error) {
	if len(d.Lumps) == 0 {
		return []byte{}, nil
	}
	payloads := make([][]byte, len(d.Lumps))
	lengths := make([]int32, len(d.Lumps))
	sentinel := false
	for i, l := range d.Lumps {
		b, err := l.View.Bytes()
		if err != nil {
			return nil, errors.Wrap(err, l.ID.String())
		}
		lengths[i] = int32(len(b))
		if l.Compressed() && len(b) > 0 {
			if b, err = lzmaraw.Compress(b); err != nil {
				return nil, errors.Wrap(err, l.ID.String())
			}
			sentinel = true
		}
		payloads[i] = b
	}
	n := len(d.Lumps)
	if sentinel {
		n++
	}
	out := make([]byte, 0, 4+n*entrySize)
	out = binary.LittleEndian.AppendUint32(out, uint32(n))
	offset := base + 4 + int64(n*entrySize)
	for i, l := range d.Lumps {
		out = binary.LittleEndian.AppendUint32(out, uint32(l.ID))
		out = binary.LittleEndian.AppendUint16(out, l.Flags)
		out = binary.LittleEndian.AppendUint16(out, l.Version)
		out = binary.LittleEndian.AppendUint32(out, uint32(offset))
		out = binary.LittleEndian.AppendUint32(out, uint32(lengths[i]))
		offset += int64(len(payloads[i]))
	}
	if sentinel {
		out = binary.LittleEndian.AppendUint32(out, 0)
		out = binary.LittleEndian.AppendUint32(out, 0)
		out = binary.LittleEndian.AppendUint32(out, uint32(offset))
		out = binary.LittleEndian.AppendUint32(out, 0)
	}
	for _, p := range payloads {
		out = append(out, p...)
	}
	return out, nil
}
