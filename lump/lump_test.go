// SPDX-License-Identifier: GPL-2.0-or-later

package lump

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/layout"
)

var vertexLayout = layout.MustRecordLayout("vertex", 12, layout.Struct(
	layout.F("x", layout.I32),
	layout.F("y", layout.I32),
	layout.F("z", layout.I32),
))

func vertexBytes(n int) []byte {
	b := make([]byte, 0, n*12)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			b = binary.LittleEndian.AppendUint32(b, uint32(i*10+j))
		}
	}
	return b
}

func TestRecordView(t *testing.T) {
	in := vertexBytes(10)
	v, err := NewRecordView(append([]byte(nil), in...), vertexLayout)
	if err != nil {
		t.Fatalf("NewRecordView: %v", err)
	}
	if v.Len() != 10 {
		t.Errorf("Len() = %d, want 10", v.Len())
	}
	last, err := v.At(-1)
	if err != nil {
		t.Fatalf("At(-1): %v", err)
	}
	if x, _ := last.Int("x"); x != 90 {
		t.Errorf("At(-1).x = %d, want 90", x)
	}
	out, err := v.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("Bytes() differs from input")
	}
}

func TestRecordViewTruncated(t *testing.T) {
	_, err := NewRecordView(make([]byte, 121), vertexLayout)
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Errorf("NewRecordView(121 bytes) error = %v, want ErrTruncatedRecord", err)
	}
}

func TestRecordViewMutation(t *testing.T) {
	v, _ := NewRecordView(vertexBytes(5), vertexLayout)
	r, _ := v.At(1)
	r.Set("z", int32(-7))
	if err := v.Delete(0); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n := v.New()
	n.Set("x", 1000)
	v.SetSlice(1, 3, []*layout.Record{n})
	// 10 -7 | 1000 | 40
	if v.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", v.Len())
	}
	b, err := v.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	want := []int32{10, 11, -7, 1000, 0, 0, 40, 41, 42}
	for i, w := range want {
		if got := int32(binary.LittleEndian.Uint32(b[i*4:])); got != w {
			t.Errorf("word %d = %d, want %d", i, got, w)
		}
	}
}

func TestIndexing(t *testing.T) {
	v, _ := NewBasicView([]byte{1, 0, 2, 0, 3, 0, 4, 0}, layout.U16)
	tests := []struct {
		i    int
		want uint16
		fail bool
	}{
		{0, 1, false},
		{3, 4, false},
		{-1, 4, false},
		{-4, 1, false},
		{4, 0, true},
		{-5, 0, true},
	}
	for _, tc := range tests {
		got, err := v.At(tc.i)
		if tc.fail {
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("At(%d) error = %v, want ErrIndexOutOfRange", tc.i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("At(%d): %v", tc.i, err)
			continue
		}
		if got != tc.want {
			t.Errorf("At(%d) = %v, want %v", tc.i, got, tc.want)
		}
	}
}

func TestSlice(t *testing.T) {
	r := NewRawView([]byte{0, 1, 2, 3, 4, 5})
	tests := []struct {
		start, stop int
		want        []byte
	}{
		{0, End, []byte{0, 1, 2, 3, 4, 5}},
		{1, 3, []byte{1, 2}},
		{-2, End, []byte{4, 5}},
		{0, -1, []byte{0, 1, 2, 3, 4}},
		{4, 2, []byte{}},
		{-100, 2, []byte{0, 1}},
		{3, 100, []byte{3, 4, 5}},
	}
	for _, tc := range tests {
		if got := r.Slice(tc.start, tc.stop); !bytes.Equal(got, tc.want) {
			t.Errorf("Slice(%d, %d) = %v, want %v", tc.start, tc.stop, got, tc.want)
		}
	}
}

func TestRawMutation(t *testing.T) {
	r := NewRawView([]byte{0, 1, 2, 3, 4, 5})
	r.Set(-1, 9)
	r.Delete(0)
	r.SetSlice(1, 3, []byte{7, 7, 7, 7})
	r.DeleteSlice(-2, End)
	got, _ := r.Bytes()
	want := []byte{1, 7, 7, 7, 7}
	if !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %v, want %v", got, want)
	}
}

func TestBasicViewSetEncodes(t *testing.T) {
	v, _ := NewBasicView(make([]byte, 8), layout.I32)
	v.Set(1, -2)
	v.Append(int32(5))
	got, err := v.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	want := []byte{0, 0, 0, 0, 0xfe, 0xff, 0xff, 0xff, 5, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
	v.Set(0, "nope")
	if _, err := v.Bytes(); err == nil {
		t.Error("Bytes() with a string element should fail")
	}
}
