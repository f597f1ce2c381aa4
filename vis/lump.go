// SPDX-License-Identifier: GPL-2.0-or-later

package vis

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Lump is a decoded cluster visibility lump:
//
//	numClusters int32
//	offsets     [numClusters][2]int32 // pvs, pas; from the lump start
//	rows        compressed bit vectors
type Lump struct {
	PVS [][]bool // potentially visible set per cluster
	PAS [][]bool // potentially audible set per cluster
}

// Clusters is the number of clusters.
func (l *Lump) Clusters() int {
	return len(l.PVS)
}

// Decode reads a visibility lump. An empty lump has no clusters.
func Decode(data []byte) (*Lump, error) {
	if len(data) == 0 {
		return &Lump{}, nil
	}
	if len(data) < 4 {
		return nil, errors.Wrap(ErrCorrupt, "no cluster count")
	}
	n := int(int32(binary.LittleEndian.Uint32(data)))
	if n < 0 || 4+n*8 > len(data) {
		return nil, errors.Wrapf(ErrCorrupt, "%d clusters do not fit %d bytes", n, len(data))
	}
	l := &Lump{PVS: make([][]bool, n), PAS: make([][]bool, n)}
	row := func(c, k int) ([]bool, error) {
		ofs := int(int32(binary.LittleEndian.Uint32(data[4+c*8+k*4:])))
		if ofs < 0 || ofs > len(data) {
			return nil, errors.Wrapf(ErrCorrupt, "cluster %d: offset %d outside lump", c, ofs)
		}
		bits, err := Decompress(data[ofs:], n)
		if err != nil {
			return nil, errors.Wrapf(err, "cluster %d", c)
		}
		return bits, nil
	}
	var err error
	for c := 0; c < n; c++ {
		if l.PVS[c], err = row(c, 0); err != nil {
			return nil, err
		}
		if l.PAS[c], err = row(c, 1); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Lump) Len() int {
	return l.Clusters()
}

// Bytes encodes the lump. Every row must hold one bit per cluster.
func (l *Lump) Bytes() ([]byte, error) {
	n := len(l.PVS)
	if n == 0 {
		return []byte{}, nil
	}
	if len(l.PAS) != n {
		return nil, errors.Wrapf(ErrCorrupt, "%d pvs rows, %d pas rows", n, len(l.PAS))
	}
	head := make([]byte, 4, 4+n*8)
	binary.LittleEndian.PutUint32(head, uint32(n))
	var rows []byte
	ofs := 4 + n*8
	for c := 0; c < n; c++ {
		for _, r := range [2][]bool{l.PVS[c], l.PAS[c]} {
			if len(r) != n {
				return nil, errors.Wrapf(ErrCorrupt, "cluster %d: row of %d bits, want %d", c, len(r), n)
			}
			head = binary.LittleEndian.AppendUint32(head, uint32(ofs+len(rows)))
			rows = append(rows, Compress(r)...)
		}
	}
	return append(head, rows...), nil
}

// Visible reports whether cluster to is in the potentially visible set of
// cluster from. Out of range clusters, like the solid cluster -1, see
// nothing.
func (l *Lump) Visible(from, to int) bool {
	if from < 0 || from >= len(l.PVS) || to < 0 || to >= len(l.PVS) {
		return false
	}
	return l.PVS[from][to]
}

// Audible is Visible for the potentially audible set.
func (l *Lump) Audible(from, to int) bool {
	if from < 0 || from >= len(l.PAS) || to < 0 || to >= len(l.PAS) {
		return false
	}
	return l.PAS[from][to]
}
