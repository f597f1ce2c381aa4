// SPDX-License-Identifier: GPL-2.0-or-later

package lump

// RawView is a lump whose elements are single bytes.
type RawView struct {
	data []byte
}

// NewRawView takes ownership of data.
func NewRawView(data []byte) *RawView {
	return &RawView{data: data}
}

func (r *RawView) Len() int {
	return len(r.data)
}

func (r *RawView) At(i int) (byte, error) {
	j, err := index(i, len(r.data))
	if err != nil {
		return 0, err
	}
	return r.data[j], nil
}

func (r *RawView) Set(i int, b byte) error {
	j, err := index(i, len(r.data))
	if err != nil {
		return err
	}
	r.data[j] = b
	return nil
}

func (r *RawView) Delete(i int) error {
	j, err := index(i, len(r.data))
	if err != nil {
		return err
	}
	r.data = append(r.data[:j], r.data[j+1:]...)
	return nil
}

// Slice returns a copy of [start, stop).
func (r *RawView) Slice(start, stop int) []byte {
	s, e := bounds(start, stop, len(r.data))
	return append([]byte(nil), r.data[s:e]...)
}

func (r *RawView) SetSlice(start, stop int, b []byte) {
	s, e := bounds(start, stop, len(r.data))
	n := make([]byte, 0, len(r.data)-(e-s)+len(b))
	n = append(n, r.data[:s]...)
	n = append(n, b...)
	r.data = append(n, r.data[e:]...)
}

func (r *RawView) DeleteSlice(start, stop int) {
	r.SetSlice(start, stop, nil)
}

func (r *RawView) Append(b ...byte) {
	r.data = append(r.data, b...)
}

// Bytes returns a copy of the lump.
func (r *RawView) Bytes() ([]byte, error) {
	return append([]byte{}, r.data...), nil
}
