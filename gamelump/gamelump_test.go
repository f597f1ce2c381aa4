// SPDX-License-Identifier: GPL-2.0-or-later

package gamelump

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/layout"
	"github.com/therjak/bspkit/lump"
)

var propLayout = layout.MustRecordLayout("static_prop_test", 20, layout.Struct(
	layout.F("origin", layout.Vec3()),
	layout.F("model", layout.U16),
	layout.F("first_leaf", layout.U16),
	layout.F("leaf_count", layout.U16),
	layout.F("solid", layout.U8),
	layout.F("flags", layout.U8),
))

func TestID(t *testing.T) {
	id := MakeID("sprp")
	if id.String() != "sprp" {
		t.Errorf("String() = %q", id.String())
	}
	// stored little endian
	if uint32(id) != 0x73707270 {
		t.Errorf("MakeID(sprp) = %#x", uint32(id))
	}
}

func TestStoredLength(t *testing.T) {
	es := []entry{
		{id: MakeID("sprp"), flags: FlagCompressed, offset: 100, length: 300},
		{id: MakeID("dprp"), flags: FlagCompressed, offset: 180, length: 0},
		{offset: 180},
	}
	tests := []struct {
		i    int
		want int64
	}{
		{0, 80},
		{1, 0},
		{2, 0},
	}
	for _, tc := range tests {
		if got := storedLength(es, tc.i); got != tc.want {
			t.Errorf("Testcase %d: storedLength = %d, want %d", tc.i, got, tc.want)
		}
	}
}

func testDirectory(t *testing.T, compressed bool) *Directory {
	t.Helper()
	var flags uint16
	if compressed {
		flags = FlagCompressed
	}
	sp := &StaticProps{}
	var err error
	if sp.Models, err = lump.NewRecordView(nil, modelName); err != nil {
		t.Fatal(err)
	}
	m := sp.Models.New()
	m.Set("name", []byte("models/props/barrel.mdl"))
	sp.Models.Append(m)
	if sp.Leaves, err = lump.NewBasicView(nil, layout.U16); err != nil {
		t.Fatal(err)
	}
	sp.Leaves.Append(uint16(4), uint16(9))
	if sp.Props, err = lump.NewRecordView(nil, propLayout); err != nil {
		t.Fatal(err)
	}
	p := sp.Props.New()
	p.Set("origin.z", float32(64))
	p.Set("leaf_count", 2)
	sp.Props.Append(p, sp.Props.New())
	return &Directory{
		Lumps: []*Lump{
			{ID: StaticPropsID, Version: 6, Flags: flags, View: sp},
			{ID: MakeID("dplt"), Version: 0, View: lump.NewRawView(bytes.Repeat([]byte{1, 2, 3, 4}, 50))},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	table := Table{{StaticPropsID, 6}: StaticPropsCodec(propLayout)}
	for _, compressed := range []bool{false, true} {
		const base = 1000
		b, err := testDirectory(t, compressed).BytesAt(base)
		if err != nil {
			t.Fatalf("BytesAt: %v", err)
		}
		d, err := Decode(b, base, table)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if d.Len() != 2 {
			t.Fatalf("compressed=%v: Len() = %d, want 2", compressed, d.Len())
		}
		l := d.Find(StaticPropsID)
		if l == nil || l.Err != nil {
			t.Fatalf("compressed=%v: static props %v", compressed, l)
		}
		if l.Compressed() != compressed {
			t.Errorf("Compressed() = %v, want %v", l.Compressed(), compressed)
		}
		sp, ok := l.View.(*StaticProps)
		if !ok {
			t.Fatalf("View is %T", l.View)
		}
		names, _ := sp.ModelNames()
		if len(names) != 1 || names[0] != "models/props/barrel.mdl" {
			t.Errorf("ModelNames() = %v", names)
		}
		p, _ := sp.Props.At(0)
		if z, _ := p.Float("origin.z"); z != 64 {
			t.Errorf("origin.z = %v", z)
		}
		if _, ok := d.Find(MakeID("dplt")).View.(*lump.RawView); !ok {
			t.Error("unknown game lump not raw")
		}
		again, _ := d.BytesAt(base)
		if !bytes.Equal(again, b) {
			t.Errorf("compressed=%v: re-encoding changed the lump", compressed)
		}
	}
}

func TestRebase(t *testing.T) {
	b, _ := testDirectory(t, true).BytesAt(1000)
	d, err := Decode(b, 1000, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	moved, _ := d.BytesAt(5000)
	d2, err := Decode(moved, 5000, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range d.Lumps {
		if d2.Lumps[i].Err != nil {
			t.Errorf("lump %d: %v", i, d2.Lumps[i].Err)
		}
		b1, _ := d.Lumps[i].View.Bytes()
		b2, _ := d2.Lumps[i].View.Bytes()
		if !bytes.Equal(b1, b2) {
			t.Errorf("lump %d differs after rebase", i)
		}
	}
}

func TestBadEntries(t *testing.T) {
	if _, err := Decode([]byte{9, 0, 0, 0}, 0, nil); !errors.Is(err, ErrCorrupt) {
		t.Errorf("count: error = %v, want ErrCorrupt", err)
	}
	b, _ := testDirectory(t, false).BytesAt(0)
	// decoded at the wrong base every offset is outside the lump
	d, err := Decode(b, 100000, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, l := range d.Lumps {
		if !errors.Is(l.Err, ErrCorrupt) {
			t.Errorf("lump %d: Err = %v, want ErrCorrupt", i, l.Err)
		}
	}
	// a codec that fails leaves the raw bytes
	bad := Table{{StaticPropsID, 6}: func([]byte) (lump.View, error) { return nil, errors.New("nope") }}
	d, _ = Decode(b, 0, bad)
	if l := d.Find(StaticPropsID); l.Err == nil || l.View.Len() == 0 {
		t.Errorf("failed codec: Err = %v, Len = %d", l.Err, l.View.Len())
	}
}
