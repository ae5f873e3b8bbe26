// Package netlist derives the secondary graph of a circuit: its nets and
// the component ports attached to each, plus design-rule problems found
// while building them.
//
// A netlist is computed inside a read transaction and cached on the circuit
// for the structure version it was computed at, so any later structural
// change discards it. Concurrent requests for the same circuit share one
// computation.
package netlist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/geom"
	"golang.org/x/sync/singleflight"
)

// Pin is one component port on a net.
type Pin struct {
	Component comp.Component
	Port      comp.Port
}

// Net is a set of electrically joined locations.
type Net struct {
	ID        int
	Locations []geom.Location
	Width     int
	Pins      []Pin
}

// Drivers returns the pins that drive the net.
func (n Net) Drivers() []Pin {
	var out []Pin
	for _, p := range n.Pins {
		if p.Port.Exclusive() {
			out = append(out, p)
		}
	}
	return out
}

// ProblemKind classifies a design-rule problem.
type ProblemKind string

const (
	MultipleDrivers ProblemKind = "multiple_drivers"
	WidthMismatch   ProblemKind = "width_mismatch"
	Floating        ProblemKind = "floating"
)

// Problem is a design-rule violation found while building the netlist.
type Problem struct {
	Kind ProblemKind
	Net  int
	At   geom.Location
}

func (p Problem) String() string {
	return fmt.Sprintf("%s on net %d at %s", p.Kind, p.Net, p.At)
}

// Netlist is the secondary graph of one circuit at one structure version.
type Netlist struct {
	Circuit  string
	Version  uint64
	Nets     []Net
	Problems []Problem

	byComponent map[comp.ID][]int
}

// NetsOf returns the IDs of the nets c is attached to.
func (n *Netlist) NetsOf(c comp.Component) []int {
	return n.byComponent[c.ID()]
}

// Builder computes and caches netlists.
type Builder struct {
	group singleflight.Group
}

// Get returns the netlist of c, computing it if the cached one is absent.
func (b *Builder) Get(ctx context.Context, c *circuit.Circuit) (*Netlist, error) {
	if v, ok := c.Derived(); ok {
		if nl, ok := v.(*Netlist); ok {
			return nl, nil
		}
	}
	key := strconv.FormatUint(uint64(c.ID()), 10)
	v, err, _ := b.group.Do(key, func() (any, error) {
		var nl *Netlist
		err := circuit.Run(ctx, c, circuit.Read, "netlist", func(context.Context, *circuit.Mutator) error {
			nl = Build(c)
			c.StoreDerived(nl.Version, nl)
			return nil
		})
		return nl, err
	})
	if err != nil {
		return nil, fmt.Errorf("netlist %s: %w", c.Name(), err)
	}
	return v.(*Netlist), nil
}

// Build computes the netlist of c without caching it. The caller must hold
// at least read access to c.
func Build(c *circuit.Circuit) *Netlist {
	nl := &Netlist{
		Circuit:     c.Name(),
		Version:     c.Version(),
		byComponent: make(map[comp.ID][]int),
	}
	for i, cn := range c.Nets() {
		net := Net{ID: i, Locations: cn.Locations, Width: cn.Width}
		for _, a := range cn.Attachments {
			net.Pins = append(net.Pins, Pin{Component: a.Component, Port: a.Port})
			ids := nl.byComponent[a.Component.ID()]
			if len(ids) == 0 || ids[len(ids)-1] != i {
				nl.byComponent[a.Component.ID()] = append(ids, i)
			}
		}
		nl.Nets = append(nl.Nets, net)
		nl.check(net)
	}
	return nl
}

func (nl *Netlist) check(net Net) {
	if drivers := net.Drivers(); len(drivers) > 1 {
		nl.Problems = append(nl.Problems, Problem{Kind: MultipleDrivers, Net: net.ID, At: drivers[1].Port.Loc})
	}
	for _, p := range net.Pins {
		if p.Port.Width != 0 && p.Port.Width != net.Width {
			nl.Problems = append(nl.Problems, Problem{Kind: WidthMismatch, Net: net.ID, At: p.Port.Loc})
			break
		}
	}
	if len(net.Pins) > 0 && len(net.Drivers()) == 0 {
		for _, p := range net.Pins {
			if p.Port.Dir == comp.Input {
				nl.Problems = append(nl.Problems, Problem{Kind: Floating, Net: net.ID, At: p.Port.Loc})
				break
			}
		}
	}
}
