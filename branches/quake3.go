// SPDX-License-Identifier: GPL-2.0-or-later

package branches

import (
	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/layout"
)

var (
	q3Shader = layout.MustRecordLayout("shader", 72, st(
		f("name", layout.Char(64)),
		f("surface_flags", i32),
		f("content_flags", i32),
	))
	q3Plane = layout.MustRecordLayout("plane", 16, st(
		f("normal", vec3),
		f("distance", f32),
	))
	q3Node = layout.MustRecordLayout("node", 36, st(
		f("plane", i32),
		f("children", arr(i32, 2)), // negative numbers are -(leafs+1)
		f("mins", arr(i32, 3)),
		f("maxs", arr(i32, 3)),
	))
	q3Leaf = layout.MustRecordLayout("leaf", 48, st(
		f("cluster", i32), // -1 for opaque
		f("area", i32),
		f("mins", arr(i32, 3)),
		f("maxs", arr(i32, 3)),
		f("first_leaf_surface", i32),
		f("num_leaf_surfaces", i32),
		f("first_leaf_brush", i32),
		f("num_leaf_brushes", i32),
	))
	q3Model = layout.MustRecordLayout("model", 40, st(
		f("mins", vec3),
		f("maxs", vec3),
		f("first_surface", i32),
		f("num_surfaces", i32),
		f("first_brush", i32),
		f("num_brushes", i32),
	))
	q3Brush = layout.MustRecordLayout("brush", 12, st(
		f("first_side", i32),
		f("num_sides", i32),
		f("shader", i32),
	))
	q3BrushSide = layout.MustRecordLayout("brush_side", 8, st(
		f("plane", i32),
		f("shader", i32),
	))
	q3DrawVert = layout.MustRecordLayout("draw_vert", 44, st(
		f("xyz", vec3),
		f("st", arr(f32, 2)),
		f("lightmap", arr(f32, 2)),
		f("normal", vec3),
		f("color", arr(u8, 4)),
	))
	q3Fog = layout.MustRecordLayout("fog", 72, st(
		f("shader", layout.Char(64)),
		f("brush", i32),
		f("visible_side", i32), // -1 for none
	))
	q3Surface = layout.MustRecordLayout("surface", 104, st(
		f("shader", i32),
		f("fog", i32),
		f("type", i32),
		f("first_vert", i32),
		f("num_verts", i32),
		f("first_index", i32),
		f("num_indexes", i32),
		f("lightmap", i32),
		f("lightmap_x", i32),
		f("lightmap_y", i32),
		f("lightmap_width", i32),
		f("lightmap_height", i32),
		f("lightmap_origin", vec3),
		f("lightmap_vecs", arr(vec3, 3)), // for patches [0] and [1] are lodbounds
		f("patch_width", i32),
		f("patch_height", i32),
	))
	q3LightGrid = layout.MustRecordLayout("light_grid", 8, st(
		f("ambient", arr(u8, 3)),
		f("directed", arr(u8, 3)),
		f("lat_long", arr(u8, 2)),
	))
)

// Quake3 is IBSP version 46. Its visibility lump holds uncompressed rows
// and stays raw, as do the 128x128 lightmaps.
var Quake3 = &branch.Branch{
	Name: "quake3",
	Header: branch.HeaderFormat{
		Magic:  []byte("IBSP"),
		Fields: st(f("version", i32)),
		Entry:  st(f("offset", i32), f("length", i32)),
		Count:  17,
	},
	Version: 46,
	Lumps: []branch.LumpSpec{
		branch.Special("entities", branch.KindEntities),
		branch.Records("shaders", q3Shader),
		branch.Records("planes", q3Plane),
		branch.Records("nodes", q3Node),
		branch.Records("leafs", q3Leaf),
		branch.Basic("leaf_surfaces", i32),
		branch.Basic("leaf_brushes", i32),
		branch.Records("models", q3Model),
		branch.Records("brushes", q3Brush),
		branch.Records("brush_sides", q3BrushSide),
		branch.Records("draw_verts", q3DrawVert),
		branch.Basic("draw_indexes", i32),
		branch.Records("fogs", q3Fog),
		branch.Records("surfaces", q3Surface),
		branch.Raw("lightmaps"),
		branch.Records("light_grid", q3LightGrid),
		branch.Raw("visibility"),
	},
}
