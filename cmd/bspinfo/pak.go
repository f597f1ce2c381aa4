// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/therjak/bspkit/conlog"
	"github.com/therjak/bspkit/filesystem"
	"github.com/therjak/bspkit/pakfile"
)

// extract writes every member of a below dir.
func extract(a *pakfile.Archive, dir string) error {
	for _, name := range a.Names() {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if !strings.HasPrefix(p, filepath.Clean(dir)+string(filepath.Separator)) {
			return errors.Errorf("member %q leaves %s", name, dir)
		}
		b, err := a.Read(name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := filesystem.WriteFile(p, b); err != nil {
			return err
		}
		conlog.Debugf("extracted %s (%d bytes)", name, len(b))
	}
	return nil
}

func pakCmd() *cli.Command {
	var dir string
	return &cli.Command{
		Name:      "pak",
		Usage:     "list or extract the embedded archive",
		ArgsUsage: "MAP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "extract", Aliases: []string{"x"}, Usage: "write the members below this directory", Destination: &dir},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			a, ok := c.PakFile()
			if !ok {
				return errors.Errorf("%s has no embedded archive", c.Branch.Name)
			}
			if dir != "" {
				return extract(a, dir)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, m := range a.Members() {
				z := ""
				if m.Compressed() {
					z = "lzma"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Size(), z, m.Name)
			}
			return tw.Flush()
		},
	}
}
