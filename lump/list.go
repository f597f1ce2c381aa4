// SPDX-License-Identifier: GPL-2.0-or-later

package lump

import (
	"github.com/pkg/errors"
)

// item is one element of a list. Until it is first read, only raw is set.
type item[T any] struct {
	raw     []byte
	val     T
	decoded bool
}

// list is the shared lazy core of BasicView and RecordView: fixed size
// elements that are decoded on first access and re-encoded on demand.
type list[T any] struct {
	size   int
	decode func([]byte) (T, error)
	encode func([]byte, T) ([]byte, error)
	items  []item[T]
}

func newList[T any](data []byte, size int, dec func([]byte) (T, error), enc func([]byte, T) ([]byte, error)) (*list[T], error) {
	if size <= 0 {
		return nil, errors.Errorf("element size %d", size)
	}
	if len(data)%size != 0 {
		return nil, errors.Wrapf(ErrTruncatedRecord, "%d bytes is not a multiple of %d", len(data), size)
	}
	l := &list[T]{size: size, decode: dec, encode: enc, items: make([]item[T], len(data)/size)}
	for i := range l.items {
		l.items[i].raw = data[i*size : (i+1)*size : (i+1)*size]
	}
	return l, nil
}

// Len returns the number of elements.
func (l *list[T]) Len() int {
	return len(l.items)
}

func (l *list[T]) get(i int) (T, error) {
	it := &l.items[i]
	if !it.decoded {
		v, err := l.decode(it.raw)
		if err != nil {
			var zero T
			return zero, errors.Wrapf(err, "element %d", i)
		}
		it.val = v
		it.decoded = true
		it.raw = nil
	}
	return it.val, nil
}

// At returns element i; negative i counts from the end.
func (l *list[T]) At(i int) (T, error) {
	j, err := index(i, len(l.items))
	if err != nil {
		var zero T
		return zero, err
	}
	return l.get(j)
}

// Set replaces element i; negative i counts from the end.
func (l *list[T]) Set(i int, v T) error {
	j, err := index(i, len(l.items))
	if err != nil {
		return err
	}
	l.items[j] = item[T]{val: v, decoded: true}
	return nil
}

// Delete removes element i; negative i counts from the end.
func (l *list[T]) Delete(i int) error {
	j, err := index(i, len(l.items))
	if err != nil {
		return err
	}
	l.items = append(l.items[:j], l.items[j+1:]...)
	return nil
}

// Slice returns a copy of the elements in [start, stop) with Python
// slice semantics: negative bounds count from the end, bounds are clamped.
func (l *list[T]) Slice(start, stop int) ([]T, error) {
	s, e := bounds(start, stop, len(l.items))
	out := make([]T, 0, e-s)
	for i := s; i < e; i++ {
		v, err := l.get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SetSlice replaces [start, stop) with vs. len(vs) may differ from the
// width of the range, growing or shrinking the lump.
func (l *list[T]) SetSlice(start, stop int, vs []T) {
	s, e := bounds(start, stop, len(l.items))
	n := make([]item[T], 0, len(l.items)-(e-s)+len(vs))
	n = append(n, l.items[:s]...)
	for _, v := range vs {
		n = append(n, item[T]{val: v, decoded: true})
	}
	n = append(n, l.items[e:]...)
	l.items = n
}

// DeleteSlice removes [start, stop).
func (l *list[T]) DeleteSlice(start, stop int) {
	l.SetSlice(start, stop, nil)
}

// Append adds elements at the end.
func (l *list[T]) Append(vs ...T) {
	for _, v := range vs {
		l.items = append(l.items, item[T]{val: v, decoded: true})
	}
}

// Values decodes every element.
func (l *list[T]) Values() ([]T, error) {
	return l.Slice(0, len(l.items))
}

// Bytes encodes the lump. Elements never read are copied verbatim.
func (l *list[T]) Bytes() ([]byte, error) {
	out := make([]byte, 0, len(l.items)*l.size)
	var err error
	for i := range l.items {
		it := &l.items[i]
		if !it.decoded {
			out = append(out, it.raw...)
			continue
		}
		if out, err = l.encode(out, it.val); err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
	}
	return out, nil
}
