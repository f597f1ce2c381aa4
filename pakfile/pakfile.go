// SPDX-License-Identifier: GPL-2.0-or-later

// Package pakfile reads and writes the archive embedded in a map.
//
// The archive is a reduced zip: every member has a local entry followed by
// its payload, then one central entry per member, then an end record.
// Members are either stored or wrapped by lzmaraw.
package pakfile

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/lzmaraw"
)

var ErrCorrupt = errors.New("corrupt embedded archive")

var (
	localMagic   = [4]byte{'P', 'K', 3, 4}
	centralMagic = [4]byte{'P', 'K', 1, 2}
	endMagic     = [4]byte{'P', 'K', 5, 6}
)

type entry struct {
	CRC              uint32
	CompressedSize   uint32
	UncompressedSize uint32
	PathLen          uint32
}

type end struct {
	LocalCount    uint32
	CentralCount  uint32
	CentralSize   uint32
	CentralOffset uint32
}

// Member is one file of the archive.
type Member struct {
	Name string
	entry
	payload []byte
}

// Compressed reports whether the payload is lzma wrapped.
func (m *Member) Compressed() bool {
	return m.CompressedSize != 0
}

// Size is the decompressed size.
func (m *Member) Size() int {
	return int(m.UncompressedSize)
}

type Archive struct {
	members []*Member
	files   map[string]int
}

// New returns an empty archive.
func New() *Archive {
	return &Archive{files: make(map[string]int)}
}

func readMagic(r *bytes.Reader) ([4]byte, bool) {
	var m [4]byte
	if r.Len() < 4 {
		return m, false
	}
	pos := r.Size() - int64(r.Len())
	if _, err := r.ReadAt(m[:], pos); err != nil {
		return m, false
	}
	return m, true
}

func readPath(r *bytes.Reader, n uint32) (string, error) {
	if int64(n) > int64(r.Len()) {
		return "", errors.Wrapf(ErrCorrupt, "path of %d bytes", n)
	}
	name := make([]byte, n)
	io.ReadFull(r, name)
	return string(name), nil
}

func (e entry) stored() uint32 {
	if e.CompressedSize != 0 {
		return e.CompressedSize
	}
	return e.UncompressedSize
}

// Parse reads an archive. The member counts must match the end record,
// every central entry must point at its local entry and no bytes may
// follow the end record. An empty b is an empty archive.
func Parse(b []byte) (*Archive, error) {
	a := New()
	if len(b) == 0 {
		return a, nil
	}
	r := bytes.NewReader(b)
	offsets := make(map[uint32]int)
	for {
		m, ok := readMagic(r)
		if !ok || m != localMagic {
			break
		}
		offset := uint32(r.Size() - int64(r.Len()))
		r.Seek(4, io.SeekCurrent)
		var e entry
		if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "local entry %d: short entry", len(a.members))
		}
		name, err := readPath(r, e.PathLen)
		if err != nil {
			return nil, errors.Wrapf(err, "local entry %d", len(a.members))
		}
		n := e.stored()
		if int64(n) > int64(r.Len()) {
			return nil, errors.Wrapf(ErrCorrupt, "%s: payload of %d bytes, %d left", name, n, r.Len())
		}
		p := make([]byte, n)
		io.ReadFull(r, p)
		if _, ok := a.files[name]; ok {
			return nil, errors.Wrapf(ErrCorrupt, "%s: files in archive are not unique", name)
		}
		offsets[offset] = len(a.members)
		a.files[name] = len(a.members)
		a.members = append(a.members, &Member{Name: name, entry: e, payload: p})
	}

	centralOffset := uint32(r.Size() - int64(r.Len()))
	central := 0
	for {
		m, ok := readMagic(r)
		if !ok || m != centralMagic {
			break
		}
		r.Seek(4, io.SeekCurrent)
		var ce struct {
			Entry entry
			Local uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &ce); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "central entry %d: short entry", central)
		}
		name, err := readPath(r, ce.Entry.PathLen)
		if err != nil {
			return nil, errors.Wrapf(err, "central entry %d", central)
		}
		e, local := ce.Entry, ce.Local
		idx, ok := offsets[local]
		if !ok {
			return nil, errors.Wrapf(ErrCorrupt, "%s: no local entry at %d", name, local)
		}
		if lm := a.members[idx]; lm.Name != name || lm.entry != e {
			return nil, errors.Wrapf(ErrCorrupt, "%s: central entry differs from local entry", name)
		}
		central++
	}
	centralSize := uint32(r.Size()-int64(r.Len())) - centralOffset

	if m, ok := readMagic(r); !ok || m != endMagic {
		return nil, errors.Wrap(ErrCorrupt, "no end record")
	}
	r.Seek(4, io.SeekCurrent)
	var er end
	if err := binary.Read(r, binary.LittleEndian, &er); err != nil {
		return nil, errors.Wrap(ErrCorrupt, "short end record")
	}
	switch {
	case int(er.LocalCount) != len(a.members):
		return nil, errors.Wrapf(ErrCorrupt, "%d local entries, end record says %d", len(a.members), er.LocalCount)
	case int(er.CentralCount) != central:
		return nil, errors.Wrapf(ErrCorrupt, "%d central entries, end record says %d", central, er.CentralCount)
	case central != len(a.members):
		return nil, errors.Wrapf(ErrCorrupt, "%d central entries for %d members", central, len(a.members))
	case er.CentralOffset != centralOffset || er.CentralSize != centralSize:
		return nil, errors.Wrapf(ErrCorrupt, "central directory at %d+%d, end record says %d+%d",
			centralOffset, centralSize, er.CentralOffset, er.CentralSize)
	case r.Len() != 0:
		return nil, errors.Wrapf(ErrCorrupt, "%d bytes after end record", r.Len())
	}
	return a, nil
}

func (a *Archive) Len() int {
	return len(a.members)
}

// Names returns the member names in archive order.
func (a *Archive) Names() []string {
	n := make([]string, len(a.members))
	for i, m := range a.members {
		n[i] = m.Name
	}
	return n
}

// Members returns the members in archive order.
func (a *Archive) Members() []*Member {
	return append([]*Member(nil), a.members...)
}

// Read returns the decompressed contents of the named member.
func (a *Archive) Read(name string) ([]byte, error) {
	i, ok := a.files[name]
	if !ok {
		return nil, errors.Wrapf(ErrCorrupt, "%s: not in archive", name)
	}
	m := a.members[i]
	data := m.payload
	if m.Compressed() {
		var err error
		if data, err = lzmaraw.Decompress(m.payload); err != nil {
			return nil, errors.Wrap(err, name)
		}
	}
	if len(data) != m.Size() {
		return nil, errors.Wrapf(ErrCorrupt, "%s: %d bytes, want %d", name, len(data), m.Size())
	}
	if c := crc32.ChecksumIEEE(data); c != m.CRC {
		return nil, errors.Wrapf(ErrCorrupt, "%s: crc %08x, want %08x", name, c, m.CRC)
	}
	return append([]byte(nil), data...), nil
}

// Add stores data under name, replacing a member of the same name in place.
func (a *Archive) Add(name string, data []byte, compress bool) error {
	m := &Member{Name: name}
	m.CRC = crc32.ChecksumIEEE(data)
	m.UncompressedSize = uint32(len(data))
	m.PathLen = uint32(len(name))
	m.payload = append([]byte(nil), data...)
	if compress {
		p, err := lzmaraw.Compress(data)
		if err != nil {
			return errors.Wrap(err, name)
		}
		m.payload = p
		m.CompressedSize = uint32(len(p))
	}
	if i, ok := a.files[name]; ok {
		a.members[i] = m
		return nil
	}
	a.files[name] = len(a.members)
	a.members = append(a.members, m)
	return nil
}

// Delete removes the named member and reports whether it existed.
func (a *Archive) Delete(name string) bool {
	i, ok := a.files[name]
	if !ok {
		return false
	}
	a.members = append(a.members[:i], a.members[i+1:]...)
	delete(a.files, name)
	for j := i; j < len(a.members); j++ {
		a.files[a.members[j].Name] = j
	}
	return true
}

// Sort orders the members by name.
func (a *Archive) Sort() {
	sort.SliceStable(a.members, func(i, j int) bool {
		return a.members[i].Name < a.members[j].Name
	})
	for i, m := range a.members {
		a.files[m.Name] = i
	}
}

// Bytes encodes the archive. An archive without members encodes to no
// bytes at all so that an absent lump stays absent.
func (a *Archive) Bytes() ([]byte, error) {
	if len(a.members) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	locals := make([]uint32, len(a.members))
	for i, m := range a.members {
		locals[i] = uint32(buf.Len())
		buf.Write(localMagic[:])
		binary.Write(&buf, binary.LittleEndian, m.entry)
		buf.WriteString(m.Name)
		buf.Write(m.payload)
	}
	co := uint32(buf.Len())
	for i, m := range a.members {
		buf.Write(centralMagic[:])
		binary.Write(&buf, binary.LittleEndian, m.entry)
		binary.Write(&buf, binary.LittleEndian, locals[i])
		buf.WriteString(m.Name)
	}
	buf.Write(endMagic[:])
	binary.Write(&buf, binary.LittleEndian, end{
		LocalCount:    uint32(len(a.members)),
		CentralCount:  uint32(len(a.members)),
		CentralSize:   uint32(buf.Len()-4) - co,
		CentralOffset: co,
	})
	return buf.Bytes(), nil
}
