package hclconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/circuitgrid/internal/config"
	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/fsutil"
)

func init() {
	config.RegisterLoader(func() config.Loader { return NewLoader() }, ".hcl")
}

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	model := &config.Model{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		part, err := translate(&root)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		model.Merge(part)
	}

	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "files", len(files), "circuits", len(model.Design.Circuits))
	return model, nil
}

func translate(root *fileRoot) (*config.Model, error) {
	m := &config.Model{}
	if a := root.App; a != nil {
		snap, err := parseDuration("snapshot_interval", a.SnapshotInterval)
		if err != nil {
			return nil, err
		}
		book, err := parseDuration("bookkeeping_interval", a.BookkeepingInterval)
		if err != nil {
			return nil, err
		}
		m.App = config.App{
			LogLevel:            a.LogLevel,
			LogFormat:           a.LogFormat,
			HealthPort:          a.HealthPort,
			DataDir:             a.DataDir,
			SnapshotInterval:    snap,
			BookkeepingInterval: book,
		}
		if b := a.Bridge; b != nil {
			m.App.Bridge = &config.Bridge{
				URL:                b.URL,
				Namespace:          b.Namespace,
				Event:              b.Event,
				InsecureSkipVerify: b.InsecureSkipVerify,
			}
		}
	}

	for _, d := range root.Designs {
		m.Design.Name = d.Name
		for _, cb := range d.Circuits {
			c, err := translateCircuit(cb)
			if err != nil {
				return nil, err
			}
			m.Design.Circuits = append(m.Design.Circuits, c)
		}
	}
	return m, nil
}

func translateCircuit(cb *circuitBlock) (config.Circuit, error) {
	c := config.Circuit{Name: cb.Name}
	for _, xb := range cb.Components {
		x := config.Component{
			Name:       xb.Name,
			Factory:    xb.Factory,
			Subcircuit: xb.Subcircuit,
			X:          xb.X,
			Y:          xb.Y,
			Width:      xb.Width,
			Label:      xb.Label,
			AddrBits:   xb.AddrBits,
			Contents:   xb.Contents,
		}
		for _, pb := range xb.Ports {
			x.Ports = append(x.Ports, config.Port{X: pb.X, Y: pb.Y, Width: pb.Width, Direction: pb.Direction})
		}
		c.Components = append(c.Components, x)
	}
	for i, wb := range cb.Wires {
		from, err := point(wb.From)
		if err != nil {
			return c, fmt.Errorf("circuit %q wire %d: from: %w", cb.Name, i, err)
		}
		to, err := point(wb.To)
		if err != nil {
			return c, fmt.Errorf("circuit %q wire %d: to: %w", cb.Name, i, err)
		}
		c.Wires = append(c.Wires, config.Wire{X0: from[0], Y0: from[1], X1: to[0], Y1: to[1]})
	}
	return c, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
