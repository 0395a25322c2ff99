package app

import (
	"context"

	"github.com/GideonBear/falconf/internal/config"
	"github.com/GideonBear/falconf/internal/installation"
)

// InitRequest describes a new installation.
type InitRequest struct {
	Root   string
	Remote string
	New    bool
	Config config.Config
}

// Init creates an installation and returns a Service for it.
func Init(ctx context.Context, req InitRequest, opts Options, instOpts installation.Options) (*Service, error) {
	if instOpts.Logger == nil {
		instOpts.Logger = opts.Logger
	}
	inst, err := installation.Init(ctx, req.Root, installation.InitOptions{
		Options:  instOpts,
		Remote:   req.Remote,
		New:      req.New,
		Hostname: opts.Hostname,
		Config:   req.Config,
	})
	if err != nil {
		return nil, err
	}
	return New(inst, opts), nil
}

// Open opens the installation at root and returns a Service for it.
func Open(ctx context.Context, root string, opts Options, instOpts installation.Options) (*Service, error) {
	if instOpts.Logger == nil {
		instOpts.Logger = opts.Logger
	}
	inst, err := installation.Open(ctx, root, instOpts)
	if err != nil {
		return nil, err
	}
	return New(inst, opts), nil
}
