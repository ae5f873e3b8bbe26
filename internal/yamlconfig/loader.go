// Package yamlconfig loads config.Model values from YAML files.
//
//	app:
//	  log_level: debug
//	  snapshot_interval: 1m
//	design:
//	  name: cpu
//	  circuits:
//	    - name: main
//	      components:
//	        - name: g1
//	          factory: AND Gate
//	          x: 40
//	          y: 20
//	          ports:
//	            - {x: 0, y: 10, direction: input}
//	      wires:
//	        - {from: [0, 30], to: [40, 30]}
//
// Unknown keys are rejected.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vk/circuitgrid/internal/config"
	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/fsutil"
	"gopkg.in/yaml.v3"
)

func init() {
	config.RegisterLoader(func() config.Loader { return NewLoader() }, ".yaml", ".yml")
}

type fileRoot struct {
	App    *appDoc    `yaml:"app"`
	Design *designDoc `yaml:"design"`
}

type appDoc struct {
	LogLevel            string     `yaml:"log_level"`
	LogFormat           string     `yaml:"log_format"`
	HealthPort          int        `yaml:"health_port"`
	DataDir             string     `yaml:"data_dir"`
	SnapshotInterval    string     `yaml:"snapshot_interval"`
	BookkeepingInterval string     `yaml:"bookkeeping_interval"`
	Bridge              *bridgeDoc `yaml:"bridge"`
}

type bridgeDoc struct {
	URL                string `yaml:"url"`
	Namespace          string `yaml:"namespace"`
	Event              string `yaml:"event"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

type designDoc struct {
	Name     string       `yaml:"name"`
	Circuits []circuitDoc `yaml:"circuits"`
}

type circuitDoc struct {
	Name       string         `yaml:"name"`
	Components []componentDoc `yaml:"components"`
	Wires      []wireDoc      `yaml:"wires"`
}

type componentDoc struct {
	Name       string    `yaml:"name"`
	Factory    string    `yaml:"factory"`
	Subcircuit string    `yaml:"subcircuit"`
	X          int       `yaml:"x"`
	Y          int       `yaml:"y"`
	Width      int       `yaml:"width"`
	Label      string    `yaml:"label"`
	AddrBits   int       `yaml:"addr_bits"`
	Contents   []uint32  `yaml:"contents"`
	Ports      []portDoc `yaml:"ports"`
}

type portDoc struct {
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Width     int    `yaml:"width"`
	Direction string `yaml:"direction"`
}

type wireDoc struct {
	From [2]int `yaml:"from"`
	To   [2]int `yaml:"to"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load decodes every .yaml and .yml file under paths and merges them. A
// file may hold several documents separated by "---".
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}

	model := &config.Model{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
		}
		if err := decodeInto(model, data); err != nil {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
		}
	}

	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("YAML loading complete.", "files", len(files), "circuits", len(model.Design.Circuits))
	return model, nil
}

func decodeInto(model *config.Model, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	for {
		var root fileRoot
		err := dec.Decode(&root)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		part, err := translate(&root)
		if err != nil {
			return err
		}
		model.Merge(part)
	}
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

	if d := root.Design; d != nil {
		m.Design.Name = d.Name
		for _, cd := range d.Circuits {
			c := config.Circuit{Name: cd.Name}
			for _, xd := range cd.Components {
				x := config.Component{
					Name:       xd.Name,
					Factory:    xd.Factory,
					Subcircuit: xd.Subcircuit,
					X:          xd.X,
					Y:          xd.Y,
					Width:      xd.Width,
					Label:      xd.Label,
					AddrBits:   xd.AddrBits,
					Contents:   xd.Contents,
				}
				for _, pd := range xd.Ports {
					x.Ports = append(x.Ports, config.Port(pd))
				}
				c.Components = append(c.Components, x)
			}
			for _, wd := range cd.Wires {
				c.Wires = append(c.Wires, config.Wire{X0: wd.From[0], Y0: wd.From[1], X1: wd.To[0], Y1: wd.To[1]})
			}
			m.Design.Circuits = append(m.Design.Circuits, c)
		}
	}
	return m, nil
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
