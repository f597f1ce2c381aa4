// SPDX-License-Identifier: GPL-2.0-or-later

// Package vis handles the run length encoded visibility bit vectors.
//
// Zero bytes are stored as pairs (0x00, count); any other byte is stored
// as is. A compressed row like
//
//	07 00 05 05 00 03 01 01
//
// expands to
//
//	07 00 00 00 00 00 05 00 00 00 01 01
package vis

import (
	"github.com/pkg/errors"
)

var ErrCorrupt = errors.New("corrupt visibility data")

// CompressBytes run length encodes the zero bytes of b. Runs longer than
// 255 become several (0x00, 255) pairs and a remainder pair.
func CompressBytes(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		if b[i] != 0 {
			out = append(out, b[i])
			i++
			continue
		}
		run := 0
		for i < len(b) && b[i] == 0 {
			run++
			i++
		}
		for ; run > 255; run -= 255 {
			out = append(out, 0, 255)
		}
		out = append(out, 0, byte(run))
	}
	return out
}

// DecompressBytes expands in until size bytes are produced. Runs reaching
// past size are cut; input that ends early is an error.
func DecompressBytes(in []byte, size int) ([]byte, error) {
	out := make([]byte, 0, size)
	for i := 0; len(out) < size; i++ {
		if i >= len(in) {
			return nil, errors.Wrapf(ErrCorrupt, "row ends after %d of %d bytes", len(out), size)
		}
		if in[i] != 0 {
			out = append(out, in[i])
			continue
		}
		i++
		if i >= len(in) {
			return nil, errors.Wrap(ErrCorrupt, "zero without run length")
		}
		for c := in[i]; c > 0 && len(out) < size; c-- {
			out = append(out, 0)
		}
	}
	return out, nil
}

// RowSize is the number of bytes holding n bits.
func RowSize(n int) int {
	return (n + 7) / 8
}

// Pack stores bit i in byte i/8 under mask 1<<(i%8).
func Pack(bits []bool) []byte {
	b := make([]byte, RowSize(len(bits)))
	for i, v := range bits {
		if v {
			b[i>>3] |= 1 << uint(i&7)
		}
	}
	return b
}

// Unpack is the inverse of Pack for the first n bits of b.
func Unpack(b []byte, n int) []bool {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = b[i>>3]&(1<<uint(i&7)) != 0
	}
	return bits
}

// Compress encodes a bit vector.
func Compress(bits []bool) []byte {
	return CompressBytes(Pack(bits))
}

// Decompress decodes n bits; padding bits of the last byte are dropped.
func Decompress(in []byte, n int) ([]bool, error) {
	b, err := DecompressBytes(in, RowSize(n))
	if err != nil {
		return nil, err
	}
	return Unpack(b, n), nil
}
