// SPDX-License-Identifier: GPL-2.0-or-later

package branches

import (
	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/layout"
)

var (
	i32, u32 = layout.I32, layout.U32
	i16, u16 = layout.I16, layout.U16
	u8, f32  = layout.U8, layout.F32
	vec3     = layout.Vec3()
)

func f(name string, d layout.Descriptor) layout.Field {
	return layout.F(name, d)
}

func st(fields ...layout.Field) layout.Fields {
	return layout.Struct(fields...)
}

func arr(d layout.Descriptor, n int) layout.Array {
	return layout.ArrayOf(d, n)
}

// quake lump records, called dplane_t and so on in c
var (
	quakePlane = layout.MustRecordLayout("plane", 20, st(
		f("normal", vec3),
		f("distance", f32),
		f("type", i32), // 0: axial plane in X, 1: axial plane in Y, 2 axial in Z, 3,4,5 similar but non axial
	))
	quakeVertex  = layout.MustRecordLayout("vertex", 12, vec3)
	quakeTexinfo = layout.MustRecordLayout("texinfo", 40, st(
		f("s", vec3), // S vector, horizontal in texture space
		f("s_offset", f32),
		f("t", vec3), // T vector, vertical in texture space
		f("t_offset", f32),
		f("miptex", u32), // Index of mip texture, must be in [0,numtex[
		f("flags", u32),  // 0 for ordinary textures, 1 for water
	))
	quakeModel = layout.MustRecordLayout("model", 64, st(
		f("mins", vec3),
		f("maxs", vec3),
		f("origin", vec3),
		f("head_node", arr(i32, 4)),
		f("vis_leafs", i32), // not including the solid leaf 0
		f("first_face", i32),
		f("num_faces", i32),
	))

	// the first edge of the list is never used
	edgeV0 = layout.MustRecordLayout("edge", 4, st(f("v", arr(u16, 2))))
	edgeV1 = layout.MustRecordLayout("edge_bsp2", 8, st(f("v", arr(u32, 2))))

	faceV0 = layout.MustRecordLayout("face", 20, st(
		f("plane", i16),
		f("side", i16),
		f("first_edge", i32),
		f("num_edges", i16),
		f("texinfo", i16),
		f("styles", arr(u8, 4)),
		f("light_offset", i32), // offset into the lighting lump or -1
	))
	faceV1 = layout.MustRecordLayout("face_bsp2", 28, st(
		f("plane", i32),
		f("side", i32),
		f("first_edge", i32),
		f("num_edges", i32),
		f("texinfo", i32),
		f("styles", arr(u8, 4)),
		f("light_offset", i32),
	))

	nodeV0 = layout.MustRecordLayout("node", 24, st(
		f("plane", i32),
		f("children", arr(u16, 2)),
		f("mins", arr(i16, 3)),
		f("maxs", arr(i16, 3)),
		f("first_face", u16),
		f("num_faces", u16),
	))
	nodeV1 = layout.MustRecordLayout("node_2psb", 32, st(
		f("plane", i32),
		f("children", arr(i32, 2)),
		f("mins", arr(i16, 3)),
		f("maxs", arr(i16, 3)),
		f("first_face", u32),
		f("num_faces", u32),
	))
	nodeV2 = layout.MustRecordLayout("node_bsp2", 44, st(
		f("plane", i32),
		f("children", arr(i32, 2)),
		f("mins", vec3),
		f("maxs", vec3),
		f("first_face", u32),
		f("num_faces", u32),
	))

	clipNodeV0 = layout.MustRecordLayout("clipnode", 8, st(
		f("plane", i32),
		f("children", arr(i16, 2)), // -1 outside the model, -2 inside
	))
	clipNodeV1 = layout.MustRecordLayout("clipnode_bsp2", 12, st(
		f("plane", i32),
		f("children", arr(i32, 2)),
	))

	leafV0 = layout.MustRecordLayout("leaf", 28, st(
		f("contents", i32),
		f("vis_offset", i32), // row in the visibility lump or -1
		f("mins", arr(i16, 3)),
		f("maxs", arr(i16, 3)),
		f("first_mark_surface", u16),
		f("num_mark_surfaces", u16),
		f("ambient_level", arr(u8, 4)),
	))
	leafV1 = layout.MustRecordLayout("leaf_2psb", 32, st(
		f("contents", i32),
		f("vis_offset", i32),
		f("mins", arr(i16, 3)),
		f("maxs", arr(i16, 3)),
		f("first_mark_surface", u32),
		f("num_mark_surfaces", u32),
		f("ambient_level", arr(u8, 4)),
	))
	leafV2 = layout.MustRecordLayout("leaf_bsp2", 44, st(
		f("contents", i32),
		f("vis_offset", i32),
		f("mins", vec3),
		f("maxs", vec3),
		f("first_mark_surface", u32),
		f("num_mark_surfaces", u32),
		f("ambient_level", arr(u8, 4)),
	))
)

// Leaf contents
const (
	_ = -iota
	ContentsEmpty
	ContentsSolid
	ContentsWater
	ContentsSlime
	ContentsLava
	ContentsSky
	ContentsOrigin
	ContentsClip
	ContentsCurrent0
	ContentsCurrent90
	ContentsCurrent180
	ContentsCurrent270
	ContentsCurrentUp
	ContentsCurrentDown
)

var quakeEntry = st(f("offset", i32), f("length", i32))

// Quake is the original bsp version 29. The textures lump is a mip texture
// directory and the visibility lump holds compressed rows addressed by the
// leafs' vis_offset; both stay raw.
var Quake = &branch.Branch{
	Name: "quake",
	Header: branch.HeaderFormat{
		Fields: st(f("version", i32)),
		Entry:  quakeEntry,
		Count:  15,
	},
	Version: 29,
	Lumps: []branch.LumpSpec{
		branch.Special("entities", branch.KindEntities),
		branch.Records("planes", quakePlane),
		branch.Raw("textures"),
		branch.Records("vertexes", quakeVertex),
		branch.Raw("visibility"),
		branch.Records("nodes", nodeV0),
		branch.Records("texinfo", quakeTexinfo),
		branch.Records("faces", faceV0),
		branch.Raw("lighting"),
		branch.Records("clipnodes", clipNodeV0),
		branch.Records("leafs", leafV0),
		branch.Basic("marksurfaces", u16),
		branch.Records("edges", edgeV0),
		branch.Basic("surfedges", i32),
		branch.Records("models", quakeModel),
	},
}

var bsp2Header = branch.HeaderFormat{
	Magic: []byte("BSP2"),
	Entry: quakeEntry,
	Count: 15,
}

// BSP2 is the large map extension of Quake with 32 bit indices and float
// bounding boxes.
var BSP2 = mustDerive(Quake, branch.Overrides{
	Name:   "bsp2",
	Header: &bsp2Header,
	Lumps: map[string]branch.LumpSpec{
		"nodes":        branch.Records("nodes", nodeV2),
		"faces":        branch.Records("faces", faceV1),
		"clipnodes":    branch.Records("clipnodes", clipNodeV1),
		"leafs":        branch.Records("leafs", leafV2),
		"marksurfaces": branch.Basic("marksurfaces", u32),
		"edges":        branch.Records("edges", edgeV1),
	},
})

// BSP2RMQ is the first, short bounding box, revision of BSP2.
var BSP2RMQ = mustDerive(BSP2, branch.Overrides{
	Name:  "bsp2rmq",
	Magic: []byte("2PSB"),
	Lumps: map[string]branch.LumpSpec{
		"nodes": branch.Records("nodes", nodeV1),
		"leafs": branch.Records("leafs", leafV1),
	},
})

func mustDerive(parent *branch.Branch, o branch.Overrides) *branch.Branch {
	b, err := branch.Derive(parent, o)
	if err != nil {
		panic(err)
	}
	return b
}
