package circuit

import (
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/connstore"
	"github.com/vk/circuitgrid/internal/geom"
)

type editOp int

const (
	editRemove editOp = iota
	editReplace
	editAdd
)

func (o editOp) String() string {
	switch o {
	case editRemove:
		return "remove"
	case editReplace:
		return "replace"
	default:
		return "add"
	}
}

type portEdit struct {
	op   editOp
	old  comp.Port
	next comp.Port
}

// keyed indexes ports by location, keeping the last port at each location,
// and returns the locations in first-seen order.
func keyed(ports []comp.Port) (map[geom.Location]comp.Port, []geom.Location) {
	m := make(map[geom.Location]comp.Port, len(ports))
	var order []geom.Location
	for _, p := range ports {
		if _, seen := m[p.Loc]; !seen {
			order = append(order, p.Loc)
		}
		m[p.Loc] = p
	}
	return m, order
}

// diffPorts computes the minimal edit set turning old into next. Locations
// whose port is unchanged produce no edit.
func diffPorts(old, next []comp.Port) []portEdit {
	oldAt, oldOrder := keyed(old)
	nextAt, nextOrder := keyed(next)

	var edits []portEdit
	for _, loc := range oldOrder {
		o := oldAt[loc]
		n, ok := nextAt[loc]
		switch {
		case !ok:
			edits = append(edits, portEdit{op: editRemove, old: o})
		case n != o:
			edits = append(edits, portEdit{op: editReplace, old: o, next: n})
		}
	}
	for _, loc := range nextOrder {
		if _, ok := oldAt[loc]; !ok {
			edits = append(edits, portEdit{op: editAdd, next: nextAt[loc]})
		}
	}
	return edits
}

func applyEdits(s connstore.Store, x comp.Component, edits []portEdit) {
	for _, e := range edits {
		switch e.op {
		case editRemove:
			s.RemovePort(x, e.old)
		case editReplace:
			s.ReplacePort(x, e.old, e.next)
		case editAdd:
			s.AddPort(x, e.next)
		}
		portEditsTotal.WithLabelValues(e.op.String()).Inc()
	}
}
