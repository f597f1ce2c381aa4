// SPDX-License-Identifier: GPL-2.0-or-later

package branches

import (
	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/gamelump"
	"github.com/therjak/bspkit/layout"
)

var (
	srcPlane = layout.MustRecordLayout("plane", 20, st(
		f("normal", vec3),
		f("distance", f32),
		f("type", i32),
	))
	srcTexData = layout.MustRecordLayout("texdata", 32, st(
		f("reflectivity", vec3),
		f("name", i32), // index into texdata_string_table
		f("width", i32),
		f("height", i32),
		f("view_width", i32),
		f("view_height", i32),
	))
	srcNode = layout.MustRecordLayout("node", 32, st(
		f("plane", i32),
		f("children", arr(i32, 2)),
		f("mins", arr(i16, 3)),
		f("maxs", arr(i16, 3)),
		f("first_face", u16),
		f("num_faces", u16),
		f("area", i16),
		f("padding", i16),
	))
	srcTexinfo = layout.MustRecordLayout("texinfo", 72, st(
		f("texture_vecs", arr(arr(f32, 4), 2)),
		f("lightmap_vecs", arr(arr(f32, 4), 2)),
		f("flags", i32),
		f("texdata", i32),
	))
	srcFace = layout.MustRecordLayout("face", 56, st(
		f("plane", u16),
		f("side", u8),
		f("on_node", u8),
		f("first_edge", i32),
		f("num_edges", i16),
		f("texinfo", i16),
		f("dispinfo", i16),
		f("surface_fog_volume", i16),
		f("styles", arr(u8, 4)),
		f("light_offset", i32),
		f("area", f32),
		f("lightmap_mins", arr(i32, 2)),
		f("lightmap_size", arr(i32, 2)),
		f("original_face", i32),
		f("num_primitives", u16),
		f("first_primitive", u16),
		f("smoothing_groups", u32),
	))
	// area:9 and flags:7 share a short, area in the low bits.
	srcLeafAreaFlags = layout.BitFields(layout.Uint16, layout.B("flags", 7), layout.B("area", 9))
	srcLeafV0        = layout.MustRecordLayout("leaf_v0", 56, st(
		f("contents", i32),
		f("cluster", i16),
		f("area_flags", srcLeafAreaFlags),
		f("mins", arr(i16, 3)),
		f("maxs", arr(i16, 3)),
		f("first_leaf_face", u16),
		f("num_leaf_faces", u16),
		f("first_leaf_brush", u16),
		f("num_leaf_brushes", u16),
		f("leaf_water_data", i16),
		f("ambient_lighting", arr(arr(u8, 4), 6)),
		f("padding", i16),
	))
	srcLeafV1 = layout.MustRecordLayout("leaf_v1", 32, st(
		f("contents", i32),
		f("cluster", i16),
		f("area_flags", srcLeafAreaFlags),
		f("mins", arr(i16, 3)),
		f("maxs", arr(i16, 3)),
		f("first_leaf_face", u16),
		f("num_leaf_faces", u16),
		f("first_leaf_brush", u16),
		f("num_leaf_brushes", u16),
		f("leaf_water_data", i16),
		f("padding", i16),
	))
	srcEdge  = layout.MustRecordLayout("edge", 4, st(f("v", arr(u16, 2))))
	srcModel = layout.MustRecordLayout("model", 48, st(
		f("mins", vec3),
		f("maxs", vec3),
		f("origin", vec3),
		f("head_node", i32),
		f("first_face", i32),
		f("num_faces", i32),
	))
	srcBrush = layout.MustRecordLayout("brush", 12, st(
		f("first_side", i32),
		f("num_sides", i32),
		f("contents", i32),
	))
	srcBrushSide = layout.MustRecordLayout("brush_side", 8, st(
		f("plane", u16),
		f("texinfo", i16),
		f("dispinfo", i16),
		f("bevel", u8),
		f("thin", u8),
	))
	srcArea = layout.MustRecordLayout("area", 8, st(
		f("num_area_portals", i32),
		f("first_area_portal", i32),
	))
	srcAreaPortal = layout.MustRecordLayout("area_portal", 12, st(
		f("portal_key", u16),
		f("other_area", u16),
		f("first_clip_portal_vert", u16),
		f("num_clip_portal_verts", u16),
		f("plane", i32),
	))
	srcDispVert = layout.MustRecordLayout("disp_vert", 20, st(
		f("vector", vec3),
		f("distance", f32),
		f("alpha", f32),
	))
	srcLeafWaterData = layout.MustRecordLayout("leaf_water_data", 12, st(
		f("surface_z", f32),
		f("min_z", f32),
		f("surface_texinfo", i16),
		f("padding", i16),
	))
	srcCubemap = layout.MustRecordLayout("cubemap", 16, st(
		f("origin", arr(i32, 3)),
		f("size", i32),
	))
	srcLeafAmbientIndex = layout.MustRecordLayout("leaf_ambient_index", 4, st(
		f("num_samples", u16),
		f("first_sample", u16),
	))
	srcLeafAmbientLighting = layout.MustRecordLayout("leaf_ambient_lighting", 28, st(
		f("cube", arr(arr(u8, 4), 6)), // ColorRGBExp32 per axis direction
		f("x", u8),
		f("y", u8),
		f("z", u8),
		f("padding", u8),
	))
	srcVertex = layout.MustRecordLayout("vertex", 12, vec3)
)

// static prop records of the 'sprp' game lump by version
var (
	staticPropV4 = st(
		f("origin", vec3),
		f("angles", vec3),
		f("model", u16),
		f("first_leaf", u16),
		f("leaf_count", u16),
		f("solid", u8),
		f("flags", u8),
		f("skin", i32),
		f("fade_min_dist", f32),
		f("fade_max_dist", f32),
		f("lighting_origin", vec3),
	)
	staticPropV5 = append(append(layout.Fields(nil), staticPropV4...), f("forced_fade_scale", f32))
	staticPropV6 = append(append(layout.Fields(nil), staticPropV5...), f("min_dx_level", u16), f("max_dx_level", u16))

	StaticPropV4 = layout.MustRecordLayout("static_prop_v4", 56, staticPropV4)
	StaticPropV5 = layout.MustRecordLayout("static_prop_v5", 60, staticPropV5)
	StaticPropV6 = layout.MustRecordLayout("static_prop_v6", 64, staticPropV6)
)

var sourceGameLumps = gamelump.Table{
	{ID: gamelump.StaticPropsID, Version: 4}: gamelump.StaticPropsCodec(StaticPropV4),
	{ID: gamelump.StaticPropsID, Version: 5}: gamelump.StaticPropsCodec(StaticPropV5),
	{ID: gamelump.StaticPropsID, Version: 6}: gamelump.StaticPropsCodec(StaticPropV6),
}

func versioned(name string, ls map[uint32]*layout.RecordLayout) branch.LumpSpec {
	return branch.LumpSpec{Name: name, Kind: branch.KindRecord, Layouts: ls}
}

var sourceLumps = []branch.LumpSpec{
	branch.Special("entities", branch.KindEntities),
	branch.Records("planes", srcPlane),
	branch.Records("texdata", srcTexData),
	branch.Records("vertexes", srcVertex),
	branch.Special("visibility", branch.KindVisibility),
	branch.Records("nodes", srcNode),
	branch.Records("texinfo", srcTexinfo),
	branch.Records("faces", srcFace),
	branch.Raw("lighting"),
	branch.Raw("occlusion"),
	versioned("leafs", map[uint32]*layout.RecordLayout{0: srcLeafV0, 1: srcLeafV1}),
	branch.Basic("face_ids", u16),
	branch.Records("edges", srcEdge),
	branch.Basic("surfedges", i32),
	branch.Records("models", srcModel),
	branch.Raw("worldlights"),
	branch.Basic("leaf_faces", u16),
	branch.Basic("leaf_brushes", u16),
	branch.Records("brushes", srcBrush),
	branch.Records("brush_sides", srcBrushSide),
	branch.Records("areas", srcArea),
	branch.Records("area_portals", srcAreaPortal),
	branch.Raw("portals"),
	branch.Raw("clusters"),
	branch.Raw("portal_verts"),
	branch.Raw("cluster_portals"),
	branch.Raw("dispinfo"),
	branch.Records("original_faces", srcFace),
	branch.Raw("phys_disp"),
	branch.Raw("phys_collide"),
	branch.Records("vert_normals", srcVertex),
	branch.Basic("vert_normal_indices", u16),
	branch.Raw("disp_lightmap_alphas"),
	branch.Records("disp_verts", srcDispVert),
	branch.Raw("disp_lightmap_sample_positions"),
	branch.Special("game_lump", branch.KindGameLump),
	branch.Records("leaf_water_data", srcLeafWaterData),
	branch.Raw("primitives"),
	branch.Records("prim_verts", srcVertex),
	branch.Basic("prim_indices", u16),
	branch.Special("pakfile", branch.KindPakFile),
	branch.Records("clip_portal_verts", srcVertex),
	branch.Records("cubemaps", srcCubemap),
	branch.Raw("texdata_string_data"),
	branch.Basic("texdata_string_table", i32),
	branch.Raw("overlays"),
	branch.Basic("leaf_min_dist_to_water", u16),
	branch.Basic("face_macro_texture_info", u16),
	branch.Basic("disp_tris", u16),
	branch.Raw("phys_collide_surface"),
	branch.Raw("water_overlays"),
	branch.Records("leaf_ambient_index_hdr", srcLeafAmbientIndex),
	branch.Records("leaf_ambient_index", srcLeafAmbientIndex),
	branch.Raw("lighting_hdr"),
	branch.Raw("worldlights_hdr"),
	branch.Records("leaf_ambient_lighting_hdr", srcLeafAmbientLighting),
	branch.Records("leaf_ambient_lighting", srcLeafAmbientLighting),
	branch.Raw("xzip_pakfile"),
	branch.Records("faces_hdr", srcFace),
	branch.Basic("map_flags", u32),
	branch.Raw("overlay_fades"),
	branch.Raw("overlay_system_levels"),
	branch.Raw("phys_level"),
	branch.Raw("disp_multiblend"),
}

var sourceHeader = branch.HeaderFormat{
	Magic:   []byte("VBSP"),
	Fields:  st(f("version", i32)),
	Entry:   st(f("offset", i32), f("length", i32), f("version", i32), f("fourCC", u32)),
	Count:   64,
	Trailer: st(f("revision", i32)),
}

// Source19 is VBSP version 19, the Half-Life 2 release format.
var Source19 = &branch.Branch{
	Name:      "source_19",
	Header:    sourceHeader,
	Version:   19,
	Lumps:     sourceLumps,
	GameLumps: sourceGameLumps,
}

var version20 uint32 = 20

// Source20 is VBSP version 20 of the Orange Box games.
var Source20 = mustDerive(Source19, branch.Overrides{
	Name:    "source_20",
	Version: &version20,
})

var version21 uint32 = 21

var l4d2Header = branch.HeaderFormat{
	Magic:   sourceHeader.Magic,
	Fields:  sourceHeader.Fields,
	Entry:   st(f("version", i32), f("offset", i32), f("length", i32), f("fourCC", u32)),
	Count:   64,
	Trailer: sourceHeader.Trailer,
}

// Source21 is VBSP version 21 of Left 4 Dead 2, with the lump version
// moved to the front of each table entry.
var Source21 = mustDerive(Source20, branch.Overrides{
	Name:    "source_21",
	Header:  &l4d2Header,
	Version: &version21,
})
