// SPDX-License-Identifier: GPL-2.0-or-later

// Package branches holds the formats of the known engine branches.
package branches

import (
	"github.com/therjak/bspkit/branch"
)

// All lists every known branch.
func All() []*branch.Branch {
	return []*branch.Branch{
		Quake, BSP2, BSP2RMQ,
		Quake3,
		Source19, Source20, Source21,
		Titanfall,
	}
}

// Default resolves the known branches.
var Default = mustRegistry(All()...)

func mustRegistry(bs ...*branch.Branch) *branch.Registry {
	r, err := branch.NewRegistry(bs...)
	if err != nil {
		panic(err)
	}
	return r
}
