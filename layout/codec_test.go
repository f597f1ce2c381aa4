// SPDX-License-Identifier: GPL-2.0-or-later

package layout

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
)

var (
	planeLayout = MustRecordLayout("plane", 20, Struct(
		F("normal", Vec3()),
		F("distance", F32),
		F("type", I32),
	))
	faceLayout = MustRecordLayout("face", 20, Struct(
		F("plane", U16),
		F("side", I16),
		F("first_edge", I32),
		F("edges", I16),
		F("texinfo", I16),
		F("styles", ArrayOf(U8, 4)),
		F("lightmap", I32),
	))
	textureLayout = MustRecordLayout("texture", 36, Struct(
		F("name", Char(16)),
		F("size", ArrayOf(U32, 2)),
		F("flags", BitFields(Uint32, B("kind", 4), B("animated", 1), B("frames", 11), B("id", 16))),
		F("value", F64),
	))
	nestedLayout = MustRecordLayout("nested", 26, Struct(
		F("bounds", ArrayOf(Struct(F("min", ArrayOf(I16, 3)), F("max", ArrayOf(I16, 3))), 2)),
		F("tag", BitFields(Uint8, B("a", 2), B("b", 6))),
		F("pad", U8),
	))
)

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(29))
	layouts := []*RecordLayout{planeLayout, faceLayout, textureLayout, nestedLayout}
	for _, l := range layouts {
		for n := 0; n < 50; n++ {
			in := make([]byte, l.Size)
			r.Read(in)
			v, err := l.Decode(in)
			if err != nil {
				t.Fatalf("%s: decode: %v", l.Name, err)
			}
			out, err := l.Encode(v)
			if err != nil {
				t.Fatalf("%s: encode: %v", l.Name, err)
			}
			if !bytes.Equal(in, out) {
				t.Errorf("%s: encode(decode(%x)) = %x", l.Name, in, out)
			}
		}
	}
}

func TestDecodeValues(t *testing.T) {
	in := []byte{
		0, 0, 0x80, 0x3f, // 1.0
		0, 0, 0, 0, // 0.0
		0, 0, 0x80, 0xbf, // -1.0
		0, 0, 0x20, 0x41, // 10.0
		0xfe, 0xff, 0xff, 0xff, // -2
	}
	v, err := planeLayout.Decode(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := v.(*Record)
	tests := []struct {
		path string
		want float64
	}{
		{"normal.x", 1},
		{"normal.y", 0},
		{"normal.z", -1},
		{"distance", 10},
		{"type", -2},
	}
	for _, tc := range tests {
		got, ok := r.Float(tc.path)
		if !ok {
			t.Errorf("Float(%q) not found", tc.path)
			continue
		}
		if got != tc.want {
			t.Errorf("Float(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
	if ty, _ := r.Get("type"); ty != int32(-2) {
		t.Errorf("type = %#v, want int32(-2)", ty)
	}
}

func TestDecodeShort(t *testing.T) {
	_, err := planeLayout.Decode(make([]byte, 19))
	if !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("Decode(short) error = %v, want ErrLayoutMismatch", err)
	}
}

func TestBitsMostSignificantFirst(t *testing.T) {
	b := BitFields(Uint16, B("hi", 4), B("mid", 8), B("lo", 4))
	r := Unpack(b, 0xabcd)
	tests := []struct {
		name string
		want uint64
	}{
		{"hi", 0xa},
		{"mid", 0xbc},
		{"lo", 0xd},
	}
	for _, tc := range tests {
		got, _ := r.Get(tc.name)
		if got != tc.want {
			t.Errorf("%s = %#x, want %#x", tc.name, got, tc.want)
		}
	}
}

func TestPackUnpack(t *testing.T) {
	b := BitFields(Uint32, B("a", 1), B("b", 7), B("c", 13), B("d", 11))
	for _, raw := range []uint64{0, 1, 0xffffffff, 0x80000000, 0x12345678, 0xdeadbeef} {
		got, err := Pack(b, Unpack(b, raw))
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		if got != raw {
			t.Errorf("Pack(Unpack(%#x)) = %#x", raw, got)
		}
	}
	wide := BitFields(Uint64, B("x", 1), B("y", 63))
	if got, _ := Pack(wide, Unpack(wide, 0xfedcba9876543210)); got != 0xfedcba9876543210 {
		t.Errorf("64 bit Pack(Unpack) = %#x", got)
	}
}

func TestPackOverflow(t *testing.T) {
	b := BitFields(Uint8, B("a", 4), B("b", 4))
	_, err := Pack(b, map[string]any{"a": 16, "b": 0})
	if !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("Pack(a=16) error = %v, want ErrLayoutMismatch", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		ok   bool
	}{
		{"scalar", I32, true},
		{"empty char", Char(0), false},
		{"bits short", BitFields(Uint16, B("a", 4), B("b", 4)), false},
		{"bits float", BitFields(Float32, B("a", 32)), false},
		{"bits exact", BitFields(Uint16, B("a", 4), B("b", 12)), true},
		{"dup field", Struct(F("a", I8), F("a", I8)), false},
		{"nested bad", Struct(F("a", ArrayOf(BitFields(Uint8, B("x", 9)), 2))), false},
		{"negative count", ArrayOf(I8, -1), false},
		{"nil", nil, false},
	}
	for _, tc := range tests {
		err := Validate(tc.desc)
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%s) = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}

func TestNewRecordLayoutSize(t *testing.T) {
	_, err := NewRecordLayout("vertex", 16, Vec3())
	if !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("NewRecordLayout(12 byte fields, 16) error = %v, want ErrInvalidLayout", err)
	}
	if _, err := NewRecordLayout("vertex", 12, Vec3()); err != nil {
		t.Errorf("NewRecordLayout(vertex) = %v", err)
	}
}

func TestEncodeMutated(t *testing.T) {
	v := faceLayout.New().(*Record)
	if err := v.Set("styles.2", 7); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := v.Set("lightmap", -1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	b, err := faceLayout.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 7, 0, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(b, want) {
		t.Errorf("Encode = %x, want %x", b, want)
	}
	if err := v.Set("plane", -3); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := faceLayout.Encode(v); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("Encode(plane=-3) error = %v, want ErrLayoutMismatch", err)
	}
}

func TestByteString(t *testing.T) {
	v := textureLayout.New().(*Record)
	v.Set("name", "sky1")
	b, err := textureLayout.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	d, _ := textureLayout.Decode(b)
	name, _ := d.(*Record).Text("name")
	if name != "sky1" {
		t.Errorf("name = %q, want sky1", name)
	}
	v.Set("name", "this name is too long")
	if _, err := textureLayout.Encode(v); err == nil {
		t.Error("Encode(long name) should fail")
	}
}
