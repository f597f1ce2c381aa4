// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"github.com/zeebo/blake3"

	"github.com/therjak/bspkit/bsp"
	"github.com/therjak/bspkit/lump"
)

// digest is a short blake3 fingerprint of v's encoding, to compare lumps
// across files.
func digest(v lump.View) (string, error) {
	b, err := v.Bytes()
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "-", nil
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:8]), nil
}

func flags(c *bsp.Container, name string) string {
	s := ""
	if c.Compressed(name) {
		s += "z"
	}
	if c.Overlaid(name) {
		s += "o"
	}
	if s == "" {
		return "-"
	}
	return s
}

func printInfo(w io.Writer, c *bsp.Container) error {
	fmt.Fprintf(w, "branch:  %s\n", c.Branch)
	if v, ok := c.Version(); ok {
		fmt.Fprintf(w, "version: %d\n", v)
	}
	if c.Trailer != nil {
		fmt.Fprintf(w, "trailer: %v\n", c.Trailer)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tlump\tkind\toffset\tlength\tversion\tflags\tcount\tblake3")
	for i, name := range c.Names() {
		spec, _ := c.Branch.Lump(name)
		h := c.Headers[i]
		v, _ := c.Lump(name)
		d, err := digest(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%v\t%d\t%d\t%d\t%s\t%d\t%s\n",
			i, name, spec.Kind, h.Offset, h.Length, h.Version, flags(c, name), v.Len(), d)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if es := c.Errors(); len(es) > 0 {
		fmt.Fprintf(w, "\n%d lump errors:\n", len(es))
		for i := range es {
			fmt.Fprintf(w, "  %v\n", es[i])
		}
	}
	return nil
}

func infoCmd() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show the branch, lump table and lump errors of a map",
		ArgsUsage: "MAP",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			return printInfo(os.Stdout, c)
		},
	}
}
