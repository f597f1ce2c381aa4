// SPDX-License-Identifier: GPL-2.0-or-later

package lump

import (
	"github.com/pkg/errors"

	"github.com/therjak/bspkit/layout"
)

// BasicView is a lump of scalars of one type, e.g. a list of uint16
// indices. Elements have the Go type layout.Decode gives the scalar.
type BasicView struct {
	*list[any]
	Type layout.Scalar
}

// NewBasicView takes ownership of data. It fails with ErrTruncatedRecord
// when data is not a whole number of elements.
func NewBasicView(data []byte, t layout.Scalar) (*BasicView, error) {
	if err := layout.Validate(t); err != nil {
		return nil, err
	}
	l, err := newList(data, t.Size(),
		func(b []byte) (any, error) { return layout.Decode(t, b) },
		func(dst []byte, v any) ([]byte, error) { return layout.AppendEncode(dst, t, v) })
	if err != nil {
		return nil, err
	}
	return &BasicView{list: l, Type: t}, nil
}

// RecordView is a lump of records of one layout.
type RecordView struct {
	*list[*layout.Record]
	Layout *layout.RecordLayout
}

// NewRecordView takes ownership of data. It fails with ErrTruncatedRecord
// when data is not a whole number of records; nothing is decoded then.
func NewRecordView(data []byte, l *layout.RecordLayout) (*RecordView, error) {
	switch l.Desc.(type) {
	case layout.Fields, layout.Bits:
	default:
		return nil, errors.Errorf("layout %s does not describe a record", l.Name)
	}
	ls, err := newList(data, l.Size,
		func(b []byte) (*layout.Record, error) {
			v, err := layout.Decode(l.Desc, b)
			if err != nil {
				return nil, err
			}
			return v.(*layout.Record), nil
		},
		func(dst []byte, r *layout.Record) ([]byte, error) {
			if r == nil {
				return nil, errors.Wrap(layout.ErrLayoutMismatch, "nil record")
			}
			return layout.AppendEncode(dst, l.Desc, r)
		})
	if err != nil {
		return nil, errors.Wrap(err, l.Name)
	}
	return &RecordView{list: ls, Layout: l}, nil
}

// New returns a zeroed record of the view's layout, ready to Append.
func (v *RecordView) New() *layout.Record {
	return v.Layout.New().(*layout.Record)
}
