package hclconfig

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	App     *appBlock      `hcl:"app,block"`
	Designs []*designBlock `hcl:"design,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

type appBlock struct {
	LogLevel            string       `hcl:"log_level,optional"`
	LogFormat           string       `hcl:"log_format,optional"`
	HealthPort          int          `hcl:"health_port,optional"`
	DataDir             string       `hcl:"data_dir,optional"`
	SnapshotInterval    string       `hcl:"snapshot_interval,optional"`
	BookkeepingInterval string       `hcl:"bookkeeping_interval,optional"`
	Bridge              *bridgeBlock `hcl:"bridge,block"`
}

type bridgeBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

type designBlock struct {
	Name     string          `hcl:"name,label"`
	Circuits []*circuitBlock `hcl:"circuit,block"`
}

type circuitBlock struct {
	Name       string            `hcl:"name,label"`
	Components []*componentBlock `hcl:"component,block"`
	Wires      []*wireBlock      `hcl:"wire,block"`
}

type componentBlock struct {
	Name       string       `hcl:"name,label"`
	Factory    string       `hcl:"factory,optional"`
	Subcircuit string       `hcl:"subcircuit,optional"`
	X          int          `hcl:"x,optional"`
	Y          int          `hcl:"y,optional"`
	Width      int          `hcl:"width,optional"`
	Label      string       `hcl:"label,optional"`
	AddrBits   int          `hcl:"addr_bits,optional"`
	Contents   []uint32     `hcl:"contents,optional"`
	Ports      []*portBlock `hcl:"port,block"`
}

type portBlock struct {
	X         int    `hcl:"x"`
	Y         int    `hcl:"y"`
	Width     int    `hcl:"width,optional"`
	Direction string `hcl:"direction,optional"`
}

// wireBlock endpoints are two-element number tuples.
type wireBlock struct {
	From cty.Value `hcl:"from"`
	To   cty.Value `hcl:"to"`
}
