package snapshot

import (
	"slices"
	"time"

	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/memcontents"
)

// Record is the persisted form of one circuit.
type Record struct {
	Circuit    string            `msgpack:"circuit"`
	Version    uint64            `msgpack:"version"`
	Generation uint64            `msgpack:"generation"`
	SavedAt    time.Time         `msgpack:"saved_at"`
	Components []ComponentRecord `msgpack:"components"`
	Wires      []WireRecord      `msgpack:"wires"`
}

type ComponentRecord struct {
	Factory    string        `msgpack:"factory"`
	Label      string        `msgpack:"label,omitempty"`
	Subcircuit string        `msgpack:"subcircuit,omitempty"`
	Bounds     [4]int        `msgpack:"bounds"`
	Ports      []PortRecord  `msgpack:"ports"`
	Memory     *MemoryRecord `msgpack:"memory,omitempty"`
}

// MemoryRecord holds the cells of a memory component. Trailing zero cells
// are not stored.
type MemoryRecord struct {
	Size  int      `msgpack:"size"`
	Width int      `msgpack:"width"`
	Cells []uint32 `msgpack:"cells,omitempty"`
}

type PortRecord struct {
	X     int    `msgpack:"x"`
	Y     int    `msgpack:"y"`
	Width int    `msgpack:"width"`
	Dir   string `msgpack:"dir"`
}

type WireRecord struct {
	X0 int `msgpack:"x0"`
	Y0 int `msgpack:"y0"`
	X1 int `msgpack:"x1"`
	Y1 int `msgpack:"y1"`
}

// Capture records the current structure of c. The caller must hold at least
// read access to c.
func Capture(c *circuit.Circuit, now time.Time) *Record {
	rec := &Record{
		Circuit:    c.Name(),
		Version:    c.Version(),
		Generation: c.Generation(),
		SavedAt:    now.UTC(),
	}
	subNames := make(map[comp.CircuitRef]string)
	for _, sub := range c.Subcircuits() {
		subNames[sub.ID()] = sub.Name()
	}
	for _, x := range c.NonWires() {
		b := x.Bounds()
		cr := ComponentRecord{
			Factory:    x.Factory().Name,
			Label:      x.Label(),
			Subcircuit: subNames[x.Factory().Subcircuit],
			Bounds:     [4]int{b.X, b.Y, b.Width, b.Height},
		}
		for _, p := range x.Ports() {
			cr.Ports = append(cr.Ports, PortRecord{X: p.Loc.X, Y: p.Loc.Y, Width: p.Width, Dir: p.Dir.String()})
		}
		if h, ok := x.(comp.MemoryHolder); ok {
			if mem := h.Contents(); mem != nil {
				cr.Memory = captureMemory(mem)
			}
		}
		rec.Components = append(rec.Components, cr)
	}
	for _, w := range c.Wires() {
		a, b := w.Ends()
		rec.Wires = append(rec.Wires, WireRecord{X0: a.X, Y0: a.Y, X1: b.X, Y1: b.Y})
	}
	return rec
}

func captureMemory(mem memcontents.Contents) *MemoryRecord {
	cells := mem.GetRange(0, mem.Len())
	end := len(cells)
	for end > 0 && cells[end-1] == 0 {
		end--
	}
	return &MemoryRecord{Size: mem.Len(), Width: mem.Width(), Cells: slices.Clip(cells[:end])}
}
