// SPDX-License-Identifier: GPL-2.0-or-later

package branches

import (
	"fmt"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/layout"
)

var (
	rPlane = layout.MustRecordLayout("plane", 16, st(
		f("normal", vec3),
		f("distance", f32),
	))
	rModel = layout.MustRecordLayout("model", 32, st(
		f("mins", vec3),
		f("maxs", vec3),
		f("first_mesh", i32),
		f("num_meshes", i32),
	))
)

func titanfallLumps() []branch.LumpSpec {
	known := map[int]branch.LumpSpec{
		0x00: branch.Special("entities", branch.KindEntities),
		0x01: branch.Records("planes", rPlane),
		0x02: branch.Records("texdata", srcTexData),
		0x03: branch.Records("vertices", srcVertex),
		0x0E: branch.Records("models", rModel),
		0x1E: branch.Records("vertex_normals", srcVertex),
		0x23: branch.Special("game_lump", branch.KindGameLump),
		0x28: branch.Special("pakfile", branch.KindPakFile),
		0x2A: branch.Records("cubemaps", srcCubemap),
		0x2B: branch.Raw("texdata_string_data"),
		0x2C: branch.Basic("texdata_string_table", i32),
	}
	ls := make([]branch.LumpSpec, 128)
	for i := range ls {
		if s, ok := known[i]; ok {
			ls[i] = s
			continue
		}
		ls[i] = branch.Raw(fmt.Sprintf("lump_%02x", i))
	}
	return ls
}

// Titanfall is rBSP version 29. Most of its lumps live in overlay files
// beside the map, so the container's own bytes win when it has any.
var Titanfall = &branch.Branch{
	Name: "titanfall",
	Header: branch.HeaderFormat{
		Magic: []byte("rBSP"),
		Fields: st(
			f("version", u32),
			f("revision", u32),
			f("lump_count", u32), // 127
		),
		Entry: st(f("offset", u32), f("length", u32), f("version", u32), f("fourCC", u32)),
		Count: 128,
	},
	Version:   29,
	Lumps:     titanfallLumps(),
	GameLumps: sourceGameLumps,
	Overlay:   branch.OverlayFallback,
}
