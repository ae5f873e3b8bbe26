package config

import "time"

const (
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultHealthPort          = 8080
	DefaultSnapshotInterval    = 30 * time.Second
	DefaultBookkeepingInterval = 5 * time.Second
	DefaultBridgeEvent         = "circuit_changed"
	DefaultDesignName          = "design"
)

// New returns a Model carrying only defaults.
func New() *Model {
	m := &Model{}
	m.ApplyDefaults()
	return m
}

// ApplyDefaults fills every unset field with its default value.
func (m *Model) ApplyDefaults() {
	if m.App.LogLevel == "" {
		m.App.LogLevel = DefaultLogLevel
	}
	if m.App.LogFormat == "" {
		m.App.LogFormat = DefaultLogFormat
	}
	if m.App.HealthPort == 0 {
		m.App.HealthPort = DefaultHealthPort
	}
	if m.App.SnapshotInterval == 0 {
		m.App.SnapshotInterval = DefaultSnapshotInterval
	}
	if m.App.BookkeepingInterval == 0 {
		m.App.BookkeepingInterval = DefaultBookkeepingInterval
	}
	if m.App.Bridge != nil && m.App.Bridge.Event == "" {
		m.App.Bridge.Event = DefaultBridgeEvent
	}
	if m.Design.Name == "" {
		m.Design.Name = DefaultDesignName
	}
}
