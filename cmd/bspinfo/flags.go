// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/branches"
	"github.com/therjak/bspkit/bsp"
	"github.com/therjak/bspkit/conlog"
)

var (
	branchesPath string
	branchName   string
	noOverlays   bool
	debug        bool
	human        bool
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "branches",
			Usage:       "yaml file with additional branches",
			Destination: &branchesPath,
		},
		&cli.StringFlag{
			Name:        "branch",
			Aliases:     []string{"b"},
			Usage:       "read files as this branch instead of detecting it",
			Destination: &branchName,
		},
		&cli.BoolFlag{
			Name:        "no-overlays",
			Usage:       "ignore .bsp_lump overlay files",
			Destination: &noOverlays,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "log debug messages",
			Destination: &debug,
		},
		&cli.BoolFlag{
			Name:        "human",
			Usage:       "log in human readable form instead of json",
			Destination: &human,
		},
	}
}

// registry returns the built in branches plus those of --branches.
func registry() (*branch.Registry, error) {
	conlog.SetLogger(conlog.NewLogger(debug, human))
	if branchesPath == "" {
		return branches.Default, nil
	}
	bs, err := branch.LoadOverrides(branchesPath, branches.Default)
	if err != nil {
		return nil, err
	}
	return branches.Default.With(bs...)
}

// loadOptions turns the global flags into load options.
func loadOptions() ([]bsp.Option, error) {
	r, err := registry()
	if err != nil {
		return nil, err
	}
	opts := []bsp.Option{bsp.WithRegistry(r)}
	if branchName != "" {
		b, ok := r.Branch(branchName)
		if !ok {
			return nil, errors.Errorf("unknown branch %q", branchName)
		}
		opts = append(opts, bsp.WithBranch(b))
	}
	if noOverlays {
		opts = append(opts, bsp.WithoutOverlays())
	}
	return opts, nil
}

// load reads the map named by the first argument.
func load(cmd *cli.Command) (*bsp.Container, error) {
	if cmd.Args().Len() < 1 {
		return nil, errors.New("missing map file")
	}
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return bsp.Load(cmd.Args().First(), opts...)
}
