// SPDX-License-Identifier: GPL-2.0-or-later

package branch

import (
	"github.com/therjak/bspkit/filesystem"
)

// Behavior holds the operations that differ between branches beyond the
// table data.
type Behavior interface {
	// OverlayName is the path of the overlay file of lump index of the
	// container at path container.
	OverlayName(container string, index int) string
	// GameLumpBase is the value subtracted from game lump offsets to get
	// an offset into the game lump at h.
	GameLumpBase(h LumpHeader) int64
	// Align is the alignment of lump data when saving.
	Align() int
}

// DefaultBehavior names overlays "<container>.<index>.bsp_lump", uses file
// offsets in the game lump and aligns lumps to 4 bytes.
type DefaultBehavior struct{}

func (DefaultBehavior) OverlayName(container string, index int) string {
	return filesystem.OverlayPath(container, index)
}

func (DefaultBehavior) GameLumpBase(h LumpHeader) int64 {
	return int64(h.Offset)
}

func (DefaultBehavior) Align() int {
	return 4
}

// RelativeGameLumps is DefaultBehavior for branches whose game lump
// offsets count from the start of the game lump.
type RelativeGameLumps struct {
	DefaultBehavior
}

func (RelativeGameLumps) GameLumpBase(LumpHeader) int64 {
	return 0
}
