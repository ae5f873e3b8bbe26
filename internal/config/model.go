package config

import "time"

// Model is the unified representation of the application configuration.
type Model struct {
	App    App    `cfg:"app"`
	Design Design `cfg:"design"`
}

// App holds the process-level settings.
type App struct {
	LogLevel            string        `cfg:"log_level" validate:"oneof=debug info warn error"`
	LogFormat           string        `cfg:"log_format" validate:"oneof=text json"`
	HealthPort          int           `cfg:"health_port" validate:"gte=0,lte=65535"`
	DataDir             string        `cfg:"data_dir"`
	SnapshotInterval    time.Duration `cfg:"snapshot_interval" validate:"gte=0"`
	BookkeepingInterval time.Duration `cfg:"bookkeeping_interval" validate:"gte=0"`
	Bridge              *Bridge       `cfg:"bridge"`
}

// Bridge selects the remote observer circuit notifications are relayed to.
type Bridge struct {
	URL                string `cfg:"url" validate:"required,url"`
	Namespace          string `cfg:"namespace"`
	Event              string `cfg:"event"`
	InsecureSkipVerify bool   `cfg:"insecure_skip_verify"`
}

// Design is the seed design built at startup when no snapshot exists.
type Design struct {
	Name     string    `cfg:"name"`
	Circuits []Circuit `cfg:"circuit" validate:"dive"`
}

type Circuit struct {
	Name       string      `cfg:"name" validate:"required"`
	Components []Component `cfg:"component" validate:"dive"`
	Wires      []Wire      `cfg:"wire" validate:"dive"`
}

// Component places one component. Port coordinates are relative to X, Y.
type Component struct {
	Name       string `cfg:"name"`
	Factory    string `cfg:"factory" validate:"required_without=Subcircuit"`
	Subcircuit string `cfg:"subcircuit"`
	X          int    `cfg:"x"`
	Y          int    `cfg:"y"`
	// Width is the bit width given to ports that do not set their own.
	Width int    `cfg:"width" validate:"gte=0,lte=32"`
	Label string `cfg:"label"`
	Ports []Port `cfg:"port" validate:"dive"`
	// AddrBits sizes the cells of a memory component at 1<<AddrBits.
	AddrBits int `cfg:"addr_bits" validate:"gte=0,lte=24"`
	// Contents are the initial cell values, loaded from address zero.
	Contents []uint32 `cfg:"contents"`
}

type Port struct {
	X         int    `cfg:"x"`
	Y         int    `cfg:"y"`
	Width     int    `cfg:"width" validate:"gte=0,lte=32"`
	Direction string `cfg:"direction" validate:"omitempty,oneof=input output bidirectional in out inout"`
}

type Wire struct {
	X0 int `cfg:"x0"`
	Y0 int `cfg:"y0"`
	X1 int `cfg:"x1"`
	Y1 int `cfg:"y1"`
}
