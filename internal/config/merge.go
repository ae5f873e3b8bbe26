package config

// Merge folds o into m. Scalar settings set in o override m; circuits are
// appended, so a circuit defined in two files is reported by Validate.
func (m *Model) Merge(o *Model) {
	a, b := &m.App, o.App
	if b.LogLevel != "" {
		a.LogLevel = b.LogLevel
	}
	if b.LogFormat != "" {
		a.LogFormat = b.LogFormat
	}
	if b.HealthPort != 0 {
		a.HealthPort = b.HealthPort
	}
	if b.DataDir != "" {
		a.DataDir = b.DataDir
	}
	if b.SnapshotInterval != 0 {
		a.SnapshotInterval = b.SnapshotInterval
	}
	if b.BookkeepingInterval != 0 {
		a.BookkeepingInterval = b.BookkeepingInterval
	}
	if b.Bridge != nil {
		bridge := *b.Bridge
		a.Bridge = &bridge
	}
	if o.Design.Name != "" {
		m.Design.Name = o.Design.Name
	}
	m.Design.Circuits = append(m.Design.Circuits, o.Design.Circuits...)
}
