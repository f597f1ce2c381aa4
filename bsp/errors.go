// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/lzmaraw"
)

// Errors that fail a whole load.
var (
	ErrUnsupportedFormat = branch.ErrUnsupportedFormat
	ErrHeaderTable       = branch.ErrHeaderTable
)

// Kinds of LumpError.
var (
	// ErrLumpDecode marks lump bytes that do not fit the lump's layout.
	ErrLumpDecode = errors.New("lump decode")
	// ErrSpecialLump marks a malformed entities, game lump or visibility
	// lump. A malformed embedded archive fails the load instead.
	ErrSpecialLump = errors.New("special lump")
	// ErrCompression marks a bad lzma stream.
	ErrCompression = lzmaraw.ErrCompression
)

// LumpError is a failure of one lump that did not stop the load. The lump
// is kept as a lump.RawView.
type LumpError struct {
	Lump string
	// Index is the game lump entry for errors inside the game lump and -1
	// otherwise.
	Index int
	Kind  error
	Err   error
}

func (e LumpError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %v: %v", e.Lump, e.Index, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Lump, e.Kind, e.Err)
}

func (e LumpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
