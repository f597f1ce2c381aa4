// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/branches"
	"github.com/therjak/bspkit/entities"
	"github.com/therjak/bspkit/filesystem"
	"github.com/therjak/bspkit/gamelump"
	"github.com/therjak/bspkit/layout"
	"github.com/therjak/bspkit/lump"
	"github.com/therjak/bspkit/lzmaraw"
	"github.com/therjak/bspkit/pakfile"
)

var point = layout.MustRecordLayout("point", 12, layout.Vec3())

var testBranch = &branch.Branch{
	Name: "test",
	Header: branch.HeaderFormat{
		Magic:  []byte("TBSP"),
		Fields: layout.Struct(layout.F("version", layout.I32)),
		Entry: layout.Struct(
			layout.F("offset", layout.I32),
			layout.F("length", layout.I32),
			layout.F("version", layout.I32),
			layout.F("fourCC", layout.U32)),
		Count: 6,
	},
	Version: 1,
	Lumps: []branch.LumpSpec{
		branch.Records("vertices", point),
		branch.Records("normals", point),
		branch.Basic("indices", layout.U16),
		branch.Special("entities", branch.KindEntities),
		branch.Special("game_lump", branch.KindGameLump),
		branch.Special("pakfile", branch.KindPakFile),
	},
	GameLumps: gamelump.Table{
		{ID: gamelump.StaticPropsID, Version: 1}: gamelump.StaticPropsCodec(point),
	},
}

var testRegistry = func() *branch.Registry {
	r, err := branches.Default.With(testBranch)
	if err != nil {
		panic(err)
	}
	return r
}()

var quiet = WithLogger(zerolog.Nop())

// lumpData is the content of one lump table slot.
type lumpData struct {
	data     []byte
	version  uint32
	compress bool
	// dir is encoded at its final offset
	dir *gamelump.Directory
}

// build writes a file of branch br.
func build(t *testing.T, br *branch.Branch, lumps []lumpData) []byte {
	t.Helper()
	out := make([]byte, br.Header.Size())
	hs := make([]branch.LumpHeader, br.Header.Count)
	for i, l := range lumps {
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		b := l.data
		if l.dir != nil {
			var err error
			base := br.Behaviors().GameLumpBase(branch.LumpHeader{Offset: uint32(len(out))})
			if b, err = l.dir.BytesAt(base); err != nil {
				t.Fatal(err)
			}
		}
		h := branch.LumpHeader{Version: l.version}
		if l.compress {
			h.FourCC = uint32(len(b))
			var err error
			if b, err = lzmaraw.Compress(b); err != nil {
				t.Fatal(err)
			}
		}
		if len(b) > 0 {
			h.Offset = uint32(len(out))
			h.Length = uint32(len(b))
		}
		hs[i] = h
		out = append(out, b...)
	}
	fields := layout.Zero(br.Header.Fields).(*layout.Record)
	fields.Set("version", br.Version)
	hb, err := branch.WriteHeader(&branch.Header{Fields: fields, Lumps: hs}, br)
	if err != nil {
		t.Fatal(err)
	}
	copy(out, hb)
	return out
}

func points(n int, scale float32) []byte {
	var b []byte
	for i := 0; i < n; i++ {
		for _, v := range []float32{float32(i) * scale, 1, -1} {
			b = binary.LittleEndian.AppendUint32(b, math32.Float32bits(v))
		}
	}
	return b
}

func TestLoadRecords(t *testing.T) {
	file := build(t, testBranch, []lumpData{
		{data: points(10, 1)},
		{data: points(10, 2)},
	})
	c, err := Decode(file, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Branch != testBranch {
		t.Fatalf("branch %s", c.Branch.Name)
	}
	if es := c.Errors(); len(es) != 0 {
		t.Errorf("Errors() = %v", es)
	}
	for _, name := range []string{"vertices", "normals"} {
		r, ok := c.Records(name)
		if !ok || r.Len() != 10 {
			t.Fatalf("%s: %v records", name, r)
		}
	}
	normals, _ := c.Records("normals")
	p, err := normals.At(-1)
	if err != nil {
		t.Fatal(err)
	}
	if x, _ := p.Float("x"); x != 18 {
		t.Errorf("normals[-1].x = %v, want 18", x)
	}
	if v, _ := c.Lump("indices"); v.Len() != 0 {
		t.Errorf("absent lump Len() = %d", v.Len())
	}
	if v, ok := c.Version(); !ok || v != 1 {
		t.Errorf("Version() = %d, %v", v, ok)
	}
}

func TestTruncatedLump(t *testing.T) {
	file := build(t, testBranch, []lumpData{
		{data: points(10, 1)},
		{data: append(points(10, 1), 0)},
	})
	c, err := Decode(file, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	es := c.Errors()
	if len(es) != 1 {
		t.Fatalf("Errors() = %v, want one error", es)
	}
	if es[0].Lump != "normals" || !errors.Is(es[0], ErrLumpDecode) || !errors.Is(es[0], lump.ErrTruncatedRecord) {
		t.Errorf("error = %v", es[0])
	}
	v, _ := c.Lump("normals")
	raw, ok := v.(*lump.RawView)
	if !ok || raw.Len() != 121 {
		t.Fatalf("normals is %T of %d bytes, want 121 raw bytes", v, v.Len())
	}
	if r, ok := c.Records("vertices"); !ok || r.Len() != 10 {
		t.Error("vertices lost")
	}
}

func TestFatalErrors(t *testing.T) {
	good := build(t, testBranch, []lumpData{{data: points(1, 1)}})
	badPak := build(t, testBranch, []lumpData{5: {data: []byte("PK\x05\x06 not a real archive")}})
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", []byte("NOPE\x01\x00\x00\x00"), ErrUnsupportedFormat},
		{"version", append([]byte("TBSP\x02\x00\x00\x00"), good[8:]...), ErrUnsupportedFormat},
		{"header", good[:30], ErrHeaderTable},
		{"pakfile", badPak, pakfile.ErrCorrupt},
	}
	for _, tc := range tests {
		if _, err := Decode(tc.data, WithRegistry(testRegistry), quiet); !errors.Is(err, tc.want) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestSpecialLumpErrors(t *testing.T) {
	file := build(t, testBranch, []lumpData{
		3: {data: []byte("{\n\"classname\" \"worldspawn\"\n")},
	})
	c, err := Decode(file, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	es := c.Errors()
	if len(es) != 1 || !errors.Is(es[0], ErrSpecialLump) || !errors.Is(es[0], entities.ErrParse) {
		t.Fatalf("Errors() = %v", es)
	}
	if _, ok := c.Entities(); ok {
		t.Error("broken entities decoded")
	}
}

func TestCompressed(t *testing.T) {
	file := build(t, testBranch, []lumpData{
		{data: points(50, 1), compress: true},
		{data: points(3, 1)},
	})
	c, err := Decode(file, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if es := c.Errors(); len(es) != 0 {
		t.Fatalf("Errors() = %v", es)
	}
	if !c.Compressed("vertices") || c.Compressed("normals") {
		t.Error("Compressed() wrong")
	}
	r, _ := c.Records("vertices")
	if r.Len() != 50 {
		t.Fatalf("vertices Len() = %d", r.Len())
	}
	b, err := c.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	again, err := Decode(b, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Decode(Bytes()): %v", err)
	}
	if !again.Compressed("vertices") || again.Headers[0].FourCC != uint32(50*12) {
		t.Errorf("resaved lump not compressed: %+v", again.Headers[0])
	}
	r2, _ := again.Records("vertices")
	b1, _ := r.Bytes()
	b2, _ := r2.Bytes()
	if !bytes.Equal(b1, b2) {
		t.Error("vertices changed by save")
	}
}

func TestBadCompression(t *testing.T) {
	file := build(t, testBranch, []lumpData{{data: points(5, 1), compress: true}})
	// break the raw stream behind the lzma header
	h, _ := branch.ReadHeader(file, testBranch)
	off := h.Lumps[0].Offset + lzmaraw.HeaderSize
	for i := off; i < h.Lumps[0].Offset+h.Lumps[0].Length; i++ {
		file[i] = 0xff
	}
	c, err := Decode(file, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	es := c.Errors()
	if len(es) != 1 || !errors.Is(es[0], ErrCompression) {
		t.Fatalf("Errors() = %v", es)
	}
	b, _ := c.Bytes()
	again, _ := Decode(b, WithRegistry(testRegistry), quiet)
	if again.Headers[0].FourCC != h.Lumps[0].FourCC || again.Headers[0].Length != h.Lumps[0].Length {
		t.Errorf("broken lump not kept: %+v", again.Headers[0])
	}
}

func TestGameLump(t *testing.T) {
	relative, err := branch.Derive(testBranch, branch.Overrides{
		Name:     "test_relative",
		Behavior: branch.RelativeGameLumps{},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, br := range []*branch.Branch{testBranch, relative} {
		// no models, no leaves, two props
		raw := append([]byte{0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0}, points(2, 3)...)
		sp, err := gamelump.DecodeStaticProps(raw, point)
		if err != nil {
			t.Fatalf("DecodeStaticProps: %v", err)
		}
		dir := &gamelump.Directory{Lumps: []*gamelump.Lump{
			{ID: gamelump.StaticPropsID, Version: 1, Flags: gamelump.FlagCompressed, View: sp},
		}}
		file := build(t, br, []lumpData{
			{data: points(7, 1)},
			4: {dir: dir},
		})
		c, err := Decode(file, WithBranch(br), quiet)
		if err != nil {
			t.Fatalf("%s: Decode: %v", br.Name, err)
		}
		if es := c.Errors(); len(es) != 0 {
			t.Fatalf("%s: Errors() = %v", br.Name, es)
		}
		// grow the first lump so the game lump moves
		r, _ := c.Records("vertices")
		r.Append(r.New(), r.New(), r.New())
		b, err := c.Bytes()
		if err != nil {
			t.Fatalf("%s: Bytes: %v", br.Name, err)
		}
		again, err := Decode(b, WithBranch(br), quiet)
		if err != nil {
			t.Fatalf("%s: Decode(Bytes()): %v", br.Name, err)
		}
		if es := again.Errors(); len(es) != 0 {
			t.Fatalf("%s: moved game lump: %v", br.Name, es)
		}
		if again.Headers[4].Offset == c.Headers[4].Offset {
			t.Errorf("%s: game lump did not move", br.Name)
		}
		d, _ := again.GameLumps()
		props, ok := d.Find(gamelump.StaticPropsID).View.(*gamelump.StaticProps)
		if !ok || props.Len() != 2 {
			t.Fatalf("%s: static props: %v", br.Name, d.Find(gamelump.StaticPropsID).View)
		}
		p, _ := props.Props.At(1)
		if x, _ := p.Float("x"); x != 3 {
			t.Errorf("%s: prop[1].x = %v", br.Name, x)
		}
	}
}

func writeMap(t *testing.T, br *branch.Branch, lumps []lumpData) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.bsp")
	if err := os.WriteFile(path, build(t, br, lumps), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOverlay(t *testing.T) {
	path := writeMap(t, testBranch, []lumpData{
		{data: points(2, 1)},
		{data: points(2, 1)},
	})
	if err := os.WriteFile(filesystem.OverlayPath(path, 1), points(5, 1), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filesystem.OverlayPath(path, 2), []byte{1, 0, 2, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Overlaid("normals") || c.Overlaid("vertices") {
		t.Error("Overlaid() wrong")
	}
	if r, _ := c.Records("normals"); r.Len() != 5 {
		t.Errorf("normals Len() = %d, want the overlay's 5", r.Len())
	}
	if v, _ := c.Lump("indices"); v.Len() != 2 {
		t.Errorf("indices Len() = %d, want 2", v.Len())
	}

	c, err = Load(path, WithRegistry(testRegistry), WithoutOverlays(), quiet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r, _ := c.Records("normals"); r.Len() != 2 || c.Overlaid("normals") {
		t.Errorf("WithoutOverlays: normals Len() = %d", r.Len())
	}

	fallback := branch.OverlayFallback
	fb, err := branch.Derive(testBranch, branch.Overrides{Name: "test_fallback", Overlay: &fallback})
	if err != nil {
		t.Fatal(err)
	}
	c, err = Load(path, WithBranch(fb), quiet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Overlaid("normals") || !c.Overlaid("indices") {
		t.Error("fallback policy: overlay must only fill absent lumps")
	}
}

func TestSave(t *testing.T) {
	path := writeMap(t, testBranch, []lumpData{
		{data: points(4, 1)},
		3: {data: entities.Marshal(nil)},
	})
	c, err := Load(path, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, _ := c.Records("vertices")
	p, _ := r.At(2)
	if err := p.Set("z", float32(128)); err != nil {
		t.Fatal(err)
	}
	r.Delete(0)
	ents, _ := c.Entities()
	w := entities.NewEntity()
	w.Add("classname", "worldspawn")
	ents.Entities = append(ents.Entities, w)
	if err := c.SetLump("indices", mustBasic(t, []byte{7, 0, 8, 0, 9, 0})); err != nil {
		t.Fatal(err)
	}
	if err := c.SetLump("nothing", lump.NewRawView(nil)); err == nil {
		t.Error("SetLump of unknown lump succeeded")
	}
	out := filepath.Join(filepath.Dir(path), "saved.bsp")
	if err := Save(c, out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(out, WithRegistry(testRegistry), quiet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r2, _ := again.Records("vertices")
	if r2.Len() != 3 {
		t.Fatalf("vertices Len() = %d, want 3", r2.Len())
	}
	p2, _ := r2.At(1)
	if z, _ := p2.Float("z"); z != 128 {
		t.Errorf("z = %v, want 128", z)
	}
	if e, ok := again.Entities(); !ok || e.Worldspawn() == nil {
		t.Error("worldspawn lost")
	}
	if v, _ := again.Lump("indices"); v.Len() != 3 {
		t.Errorf("indices Len() = %d", v.Len())
	}
	for i, h := range again.Headers {
		if h.Offset%4 != 0 {
			t.Errorf("lump %d at unaligned offset %d", i, h.Offset)
		}
	}
}

func mustBasic(t *testing.T, b []byte) *lump.BasicView {
	t.Helper()
	v, err := lump.NewBasicView(b, layout.U16)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestQuake(t *testing.T) {
	planes := make([]byte, 0, 40)
	for i := 0; i < 2; i++ {
		planes = append(planes, points(1, 1)...)
		planes = binary.LittleEndian.AppendUint32(planes, math32.Float32bits(64))
		planes = binary.LittleEndian.AppendUint32(planes, uint32(i))
	}
	file := build(t, branches.Quake, []lumpData{
		{data: []byte("{\n\"classname\" \"worldspawn\"\n\"wad\" \"gfx/base.wad\"\n}\n\x00")},
		{data: planes},
		11: {data: []byte{0, 0, 1, 0, 2, 0}},
	})
	c, err := Decode(file, quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Branch != branches.Quake {
		t.Fatalf("branch %s", c.Branch.Name)
	}
	if es := c.Errors(); len(es) != 0 {
		t.Fatalf("Errors() = %v", es)
	}
	ents, _ := c.Entities()
	if wad, _ := ents.Worldspawn().Property("wad"); wad != "gfx/base.wad" {
		t.Errorf("wad = %q", wad)
	}
	ps, _ := c.Records("planes")
	p, _ := ps.At(1)
	if d, _ := p.Float("distance"); d != 64 {
		t.Errorf("distance = %v", d)
	}
	if ty, _ := p.Int("type"); ty != 1 {
		t.Errorf("type = %v", ty)
	}
	ms, _ := c.Lump("marksurfaces")
	if v, _ := ms.(*lump.BasicView).At(2); v != uint16(2) {
		t.Errorf("marksurfaces[2] = %v", v)
	}
}

func TestLumpErrorValue(t *testing.T) {
	tests := []struct {
		e    LumpError
		want string
	}{
		{LumpError{Lump: "normals", Index: -1, Kind: ErrLumpDecode, Err: lump.ErrTruncatedRecord},
			"normals: lump decode: " + lump.ErrTruncatedRecord.Error()},
		{LumpError{Lump: "game", Index: 2, Kind: ErrCompression, Err: errors.New("eof")},
			"game[2]: " + ErrCompression.Error() + ": eof"},
	}
	for i, tc := range tests {
		var err error = tc.e
		if got := fmt.Sprintf("%v", tc.e); got != tc.want {
			t.Errorf("Testcase %d: %%v = %q, want %q", i, got, tc.want)
		}
		if !errors.Is(err, tc.e.Kind) || !errors.Is(err, tc.e.Err) {
			t.Errorf("Testcase %d: %v does not wrap its kind and cause", i, err)
		}
	}
}
