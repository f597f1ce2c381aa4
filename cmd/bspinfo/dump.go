// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/therjak/bspkit/entities"
	"github.com/therjak/bspkit/gamelump"
	"github.com/therjak/bspkit/lump"
	"github.com/therjak/bspkit/pakfile"
	"github.com/therjak/bspkit/vis"
)

// plain turns a view into values for json output.
func plain(v lump.View) (any, error) {
	switch x := v.(type) {
	case *lump.RecordView:
		rs, err := x.Values()
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(rs))
		for i, r := range rs {
			out[i] = r.Map()
		}
		return out, nil
	case *lump.BasicView:
		return x.Values()
	case *lump.RawView:
		b, _ := x.Bytes()
		return b, nil
	case *entities.List:
		out := make([]map[string][]string, len(x.Entities))
		for i, e := range x.Entities {
			out[i] = e.Map()
		}
		return out, nil
	case *pakfile.Archive:
		type member struct {
			Name       string `json:"name"`
			Size       int    `json:"size"`
			Compressed bool   `json:"compressed"`
		}
		out := []member{}
		for _, m := range x.Members() {
			out = append(out, member{m.Name, m.Size(), m.Compressed()})
		}
		return out, nil
	case *gamelump.Directory:
		type entry struct {
			ID         string `json:"id"`
			Version    uint16 `json:"version"`
			Compressed bool   `json:"compressed"`
			Data       any    `json:"data"`
			Err        string `json:"error,omitempty"`
		}
		out := []entry{}
		for _, l := range x.Lumps {
			e := entry{ID: l.ID.String(), Version: l.Version, Compressed: l.Compressed()}
			if l.Err != nil {
				e.Err = l.Err.Error()
			}
			if sp, ok := l.View.(*gamelump.StaticProps); ok {
				names, err := sp.ModelNames()
				if err != nil {
					return nil, err
				}
				props, err := plain(sp.Props)
				if err != nil {
					return nil, err
				}
				e.Data = map[string]any{"models": names, "props": props}
			} else {
				var err error
				if e.Data, err = plain(l.View); err != nil {
					return nil, err
				}
			}
			out = append(out, e)
		}
		return out, nil
	case *vis.Lump:
		return map[string]any{"clusters": x.Clusters(), "pvs": x.PVS, "pas": x.PAS}, nil
	}
	return nil, errors.Errorf("cannot show %T", v)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func printText(w io.Writer, v lump.View) error {
	switch x := v.(type) {
	case *lump.RecordView:
		rs, err := x.Values()
		if err != nil {
			return err
		}
		for i, r := range rs {
			fmt.Fprintf(w, "%d\t%v\n", i, r)
		}
		return nil
	case *lump.BasicView:
		vs, err := x.Values()
		if err != nil {
			return err
		}
		for i, e := range vs {
			fmt.Fprintf(w, "%d\t%v\n", i, e)
		}
		return nil
	case *entities.List:
		b, err := x.Bytes()
		if err != nil {
			return err
		}
		_, err = w.Write(bytes.TrimSuffix(b, []byte{0}))
		return err
	case *lump.RawView:
		b, _ := x.Bytes()
		_, err := io.WriteString(w, hex.Dump(b))
		return err
	}
	p, err := plain(v)
	if err != nil {
		return err
	}
	return printJSON(w, p)
}

func entitiesCmd() *cli.Command {
	var asJSON bool
	var class string
	return &cli.Command{
		Name:      "entities",
		Usage:     "print the entity lump",
		ArgsUsage: "MAP",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print json", Destination: &asJSON},
			&cli.StringFlag{Name: "classname", Usage: "only entities of this class", Destination: &class},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			l, ok := c.Entities()
			if !ok {
				return errors.Errorf("%s has no readable entity lump", c.Path)
			}
			if class != "" {
				l = &entities.List{Entities: l.Find("classname", class)}
			}
			if asJSON {
				p, err := plain(l)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, p)
			}
			return printText(os.Stdout, l)
		},
	}
}

func lumpCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:      "lump",
		Usage:     "print one lump",
		ArgsUsage: "MAP NAME",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print json", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("want MAP NAME")
			}
			c, err := load(cmd)
			if err != nil {
				return err
			}
			name := cmd.Args().Get(1)
			v, ok := c.Lump(name)
			if !ok {
				return errors.Errorf("%s has no lump %s, have %v", c.Branch.Name, name, c.Names())
			}
			if asJSON {
				p, err := plain(v)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, p)
			}
			return printText(os.Stdout, v)
		},
	}
}
