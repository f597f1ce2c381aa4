// SPDX-License-Identifier: GPL-2.0-or-later

package gamelump

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/therjak/bspkit/layout"
	"github.com/therjak/bspkit/lump"
)

// StaticPropsID is the game lump of props baked into the map.
var StaticPropsID = MakeID("sprp")

var modelName = layout.MustRecordLayout("static_prop_model", 128,
	layout.Struct(layout.F("name", layout.Char(128))))

// StaticProps is the decoded 'sprp' game lump:
//
//	nameCount int32; names  [nameCount][128]byte
//	leafCount int32; leaves [leafCount]uint16
//	propCount int32; props  [propCount]record
type StaticProps struct {
	Models *lump.RecordView
	Leaves *lump.BasicView
	Props  *lump.RecordView
}

// StaticPropsCodec returns a Codec decoding prop records with l.
func StaticPropsCodec(l *layout.RecordLayout) Codec {
	return func(data []byte) (lump.View, error) {
		return DecodeStaticProps(data, l)
	}
}

// DecodeStaticProps reads a static props lump with prop records of l.
func DecodeStaticProps(data []byte, l *layout.RecordLayout) (*StaticProps, error) {
	pos := 0
	section := func(name string, size int) ([]byte, error) {
		if pos+4 > len(data) {
			return nil, errors.Wrapf(ErrCorrupt, "static props: no %s count", name)
		}
		n := int(int32(binary.LittleEndian.Uint32(data[pos:])))
		pos += 4
		if n < 0 || pos+n*size > len(data) {
			return nil, errors.Wrapf(ErrCorrupt, "static props: %d %s do not fit", n, name)
		}
		b := append([]byte(nil), data[pos:pos+n*size]...)
		pos += n * size
		return b, nil
	}
	names, err := section("models", modelName.Size)
	if err != nil {
		return nil, err
	}
	leaves, err := section("leaves", 2)
	if err != nil {
		return nil, err
	}
	props, err := section("props", l.Size)
	if err != nil {
		return nil, err
	}
	if pos != len(data) {
		return nil, errors.Wrapf(ErrCorrupt, "static props: %d bytes after props", len(data)-pos)
	}
	s := &StaticProps{}
	if s.Models, err = lump.NewRecordView(names, modelName); err != nil {
		return nil, err
	}
	if s.Leaves, err = lump.NewBasicView(leaves, layout.U16); err != nil {
		return nil, err
	}
	if s.Props, err = lump.NewRecordView(props, l); err != nil {
		return nil, err
	}
	return s, nil
}

// ModelNames returns the model dictionary as strings.
func (s *StaticProps) ModelNames() ([]string, error) {
	rs, err := s.Models.Values()
	if err != nil {
		return nil, err
	}
	n := make([]string, len(rs))
	for i, r := range rs {
		n[i], _ = r.Text("name")
	}
	return n, nil
}

func (s *StaticProps) Len() int {
	return s.Props.Len()
}

func (s *StaticProps) Bytes() ([]byte, error) {
	var out []byte
	for _, v := range []lump.View{s.Models, s.Leaves, s.Props} {
		b, err := v.Bytes()
		if err != nil {
			return nil, err
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(v.Len()))
		out = append(out, b...)
	}
	return out, nil
}
