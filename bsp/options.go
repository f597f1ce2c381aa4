// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"github.com/rs/zerolog"

	"github.com/therjak/bspkit/branch"
	"github.com/therjak/bspkit/branches"
	"github.com/therjak/bspkit/conlog"
)

type options struct {
	registry *branch.Registry
	branch   *branch.Branch
	overlays bool
	logger   *zerolog.Logger
}

// Option configures Load and Decode.
type Option func(*options)

// WithRegistry resolves the format with r instead of branches.Default.
func WithRegistry(r *branch.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithBranch skips resolving and reads the file as b.
func WithBranch(b *branch.Branch) Option {
	return func(o *options) {
		o.branch = b
	}
}

// WithoutOverlays ignores overlay files.
func WithoutOverlays() Option {
	return func(o *options) {
		o.overlays = false
	}
}

// WithLogger logs to l instead of the conlog process logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		registry: branches.Default,
		overlays: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		l := conlog.Logger()
		o.logger = &l
	}
	return o
}
