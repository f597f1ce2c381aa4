// SPDX-License-Identifier: GPL-2.0-or-later

// Package lump wraps the bytes of one lump in a mutable, list like view.
//
// RawView holds bytes, BasicView holds scalars of one type and RecordView
// holds records of one layout. Basic and record views decode elements on
// first access and copy untouched elements back verbatim.
package lump

import (
	"github.com/pkg/errors"
)

var (
	ErrTruncatedRecord = errors.New("lump length is not a multiple of the record size")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// View is what every decoded lump offers: an element count and its bytes.
type View interface {
	Len() int
	Bytes() ([]byte, error)
}

// index maps a possibly negative index onto [0, n).
func index(i, n int) (int, error) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", i, n)
	}
	return i, nil
}

// bounds clamps a Python style half-open range onto [0, n].
func bounds(start, stop, n int) (int, int) {
	clamp := func(i int) int {
		if i < 0 {
			i += n
			if i < 0 {
				i = 0
			}
		}
		if i > n {
			i = n
		}
		return i
	}
	s, e := clamp(start), clamp(stop)
	if e < s {
		e = s
	}
	return s, e
}

// End is a stop bound that reaches past any lump, for Slice(i, End).
const End = int(^uint(0) >> 1)
