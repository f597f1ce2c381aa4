// SPDX-License-Identifier: GPL-2.0-or-later

// Package lzmaraw wraps and unwraps the LZMA framing used for compressed
// lumps, game lumps and archive members:
//
//	id           [4]byte "LZMA"
//	actualSize   uint32  decompressed length
//	lzmaSize     uint32  length of the raw stream that follows
//	properties   [5]byte lc/lp/pb byte and dictionary size
//	stream       [lzmaSize]byte
package lzmaraw

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"
)

// HeaderSize is the length of the framing before the raw stream.
const HeaderSize = 17

var ErrCompression = errors.New("lzma")

var magic = []byte("LZMA")

// Header is the decoded framing.
type Header struct {
	ActualSize uint32
	LzmaSize   uint32
	Properties [5]byte
}

// IsCompressed reports whether b starts with the framing id.
func IsCompressed(b []byte) bool {
	return len(b) >= HeaderSize && bytes.Equal(b[:4], magic)
}

func ReadHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, errors.Wrapf(ErrCompression, "%d bytes is too short for a header", len(b))
	}
	if !bytes.Equal(b[:4], magic) {
		return h, errors.Wrapf(ErrCompression, "bad id %q", b[:4])
	}
	h.ActualSize = binary.LittleEndian.Uint32(b[4:])
	h.LzmaSize = binary.LittleEndian.Uint32(b[8:])
	copy(h.Properties[:], b[12:HeaderSize])
	return h, nil
}

// Decompress unwraps b. Output beyond the declared size is dropped; a
// stream that ends early is an error.
func Decompress(b []byte) ([]byte, error) {
	h, err := ReadHeader(b)
	if err != nil {
		return nil, err
	}
	stream := b[HeaderSize:]
	if uint64(len(stream)) < uint64(h.LzmaSize) {
		return nil, errors.Wrapf(ErrCompression, "stream of %d bytes, header says %d", len(stream), h.LzmaSize)
	}
	stream = stream[:h.LzmaSize]

	// rebuild the classic .lzma header with an unknown size so the decoder
	// does not insist on the stream ending at actualSize
	classic := make([]byte, 0, 13)
	classic = append(classic, h.Properties[:]...)
	classic = binary.LittleEndian.AppendUint64(classic, unknownSize)
	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(classic), bytes.NewReader(stream)))
	if err != nil {
		return nil, errors.Wrap(ErrCompression, err.Error())
	}
	var out bytes.Buffer
	out.Grow(initialSize(h.ActualSize, len(stream)))
	err = readAll(&out, io.LimitReader(r, int64(h.ActualSize)))
	if out.Len() == int(h.ActualSize) {
		// errors past the declared size belong to dropped output
		return out.Bytes(), nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, errors.Wrapf(ErrCompression, "decompressed %d of %d bytes: %v", out.Len(), h.ActualSize, err)
}

// readAll copies r to out. The decoder reports the end of its input
// before handing out what it already decoded, so a read error only ends
// the copy once a further read brings no data.
func readAll(out *bytes.Buffer, r io.Reader) error {
	buf := make([]byte, 32<<10)
	var failure error
	for {
		n, err := r.Read(buf)
		out.Write(buf[:n])
		switch {
		case err == nil:
		case err == io.EOF && n == 0:
			return failure
		case failure != nil && n == 0:
			return failure
		case err != io.EOF:
			failure = err
		}
	}
}

const unknownSize = ^uint64(0)

// initialSize guesses the output buffer from the stream length; the
// declared size alone is not trusted for an allocation.
func initialSize(actual uint32, stream int) int {
	n := 8*stream + 64
	if int64(actual) < int64(n) {
		return int(actual)
	}
	return n
}

// Compress wraps b.
func Compress(b []byte) ([]byte, error) {
	cfg := lzma.WriterConfig{
		Properties:   &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:      1 << 20,
		SizeInHeader: true,
		Size:         int64(len(b)),
	}
	var buf bytes.Buffer
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(ErrCompression, err.Error())
	}
	if _, err := w.Write(b); err != nil {
		return nil, errors.Wrap(ErrCompression, err.Error())
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(ErrCompression, err.Error())
	}
	classic := buf.Bytes()
	if len(classic) < 13 {
		return nil, errors.Wrap(ErrCompression, "short encoder output")
	}
	stream := classic[13:]
	out := make([]byte, 0, HeaderSize+len(stream))
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(stream)))
	out = append(out, classic[:5]...)
	return append(out, stream...), nil
}
