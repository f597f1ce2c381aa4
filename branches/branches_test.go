// SPDX-License-Identifier: GPL-2.0-or-later

package branches

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/layout"
)

func TestResolveKnown(t *testing.T) {
	v := func(magic string, version uint32) []byte {
		b := append([]byte(magic), 0, 0, 0, 0)
		binary.LittleEndian.PutUint32(b[len(magic):], version)
		return append(b, 0, 0, 0, 0)
	}
	tests := []struct {
		first []byte
		want  *branch.Branch
	}{
		{v("", 29), Quake},
		{append([]byte("BSP2"), 0, 0, 0, 0), BSP2},
		{append([]byte("2PSB"), 0, 0, 0, 0), BSP2RMQ},
		{v("IBSP", 46), Quake3},
		{v("VBSP", 19), Source19},
		{v("VBSP", 20), Source20},
		{v("VBSP", 21), Source21},
		{v("rBSP", 29), Titanfall},
	}
	for i, tc := range tests {
		b, err := Default.Resolve(tc.first)
		if err != nil {
			t.Errorf("Testcase %d: %v", i, err)
			continue
		}
		if b != tc.want {
			t.Errorf("Testcase %d: got %s, want %s", i, b.Name, tc.want.Name)
		}
	}
}

func TestHeaderSizes(t *testing.T) {
	tests := []struct {
		b    *branch.Branch
		size int
	}{
		{Quake, 4 + 15*8},
		{BSP2, 4 + 15*8},
		{Quake3, 8 + 17*8},
		{Source20, 8 + 64*16 + 4},
		{Source21, 8 + 64*16 + 4},
		{Titanfall, 16 + 128*16},
	}
	for _, tc := range tests {
		if got := tc.b.Header.Size(); got != tc.size {
			t.Errorf("%s: header size %d, want %d", tc.b.Name, got, tc.size)
		}
	}
}

func TestDerivedTables(t *testing.T) {
	if s, _ := BSP2.Lump("leafs"); s.Layouts[0] != leafV2 {
		t.Error("bsp2 leafs not the float layout")
	}
	if s, _ := BSP2RMQ.Lump("leafs"); s.Layouts[0] != leafV1 {
		t.Error("2psb leafs not the short box layout")
	}
	if s, _ := BSP2RMQ.Lump("faces"); s.Layouts[0] != faceV1 {
		t.Error("2psb faces not inherited from bsp2")
	}
	if s, _ := Quake.Lump("leafs"); s.Layouts[0] != leafV0 {
		t.Error("quake changed by derive")
	}
	if Source21.Header.Entry[0].Name != "version" || Source20.Header.Entry[0].Name != "offset" {
		t.Error("source 21 entry order")
	}
	s, _ := Source20.Lump("leafs")
	if l, _ := s.Layout(1); l.Size != 32 {
		t.Errorf("leaf v1 size %d", l.Size)
	}
	if l, _ := s.Layout(0); l.Size != 56 {
		t.Errorf("leaf v0 size %d", l.Size)
	}
	if Titanfall.Overlay != branch.OverlayFallback || Source20.Overlay != branch.OverlayOverrides {
		t.Error("overlay policies")
	}
}

func TestLayoutsRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(29))
	seen := make(map[*layout.RecordLayout]bool)
	ls := []*layout.RecordLayout{StaticPropV4, StaticPropV5, StaticPropV6}
	for _, b := range All() {
		for _, s := range b.Lumps {
			for _, l := range s.Layouts {
				ls = append(ls, l)
			}
		}
	}
	for _, l := range ls {
		if seen[l] {
			continue
		}
		seen[l] = true
		for n := 0; n < 8; n++ {
			in := make([]byte, l.Size)
			r.Read(in)
			v, err := l.Decode(in)
			if err != nil {
				t.Fatalf("%s: Decode: %v", l.Name, err)
			}
			out, err := l.Encode(v)
			if err != nil {
				t.Fatalf("%s: Encode: %v", l.Name, err)
			}
			if !bytes.Equal(in, out) {
				t.Errorf("%s: % x became % x", l.Name, in, out)
			}
		}
	}
}
