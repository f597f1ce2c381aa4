// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/bsp"
	"github.com/therjak/bspkit/conlog"
	"github.com/therjak/bspkit/filesystem"
)

// resaveName is out or, without one, "<in>_resaved" with in's extension.
func resaveName(in, out string) string {
	if out != "" {
		return out
	}
	return filesystem.Sibling(in, "_resaved")
}

func resaveCmd() *cli.Command {
	return &cli.Command{
		Name:      "resave",
		Usage:     "decode a map and write it again, folding in overlay files",
		ArgsUsage: "IN [OUT]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if n := cmd.Args().Len(); n < 1 || n > 2 {
				return errors.New("want IN [OUT]")
			}
			c, err := load(cmd)
			if err != nil {
				return err
			}
			out := resaveName(cmd.Args().First(), cmd.Args().Get(1))
			if err := bsp.Save(c, out); err != nil {
				return err
			}
			conlog.Printf("wrote %s as %s with %d lump errors", out, c.Branch.Name, len(c.Errors()))
			return nil
		},
	}
}

func printBranches(r *branch.Registry) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "name\tidentity\tlumps\tgame lumps\toverlays")
	for _, b := range r.Branches() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%v\n", b.Name, b.Identity(), len(b.Lumps), len(b.GameLumps), b.Overlay)
	}
	return tw.Flush()
}

func branchesCmd() *cli.Command {
	return &cli.Command{
		Name:  "branches",
		Usage: "list the known branches",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := registry()
			if err != nil {
				return err
			}
			return printBranches(r)
		},
	}
}
