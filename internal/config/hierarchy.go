package config

import "github.com/vk/circuitgrid/internal/dag"

// Hierarchy returns the subcircuit graph of the design: an edge a -> b means
// circuit b instantiates circuit a. References to unknown circuits are left
// out.
func (d Design) Hierarchy() *dag.Graph {
	g := dag.New()
	for _, c := range d.Circuits {
		g.AddNode(c.Name)
	}
	for _, c := range d.Circuits {
		for _, x := range c.Components {
			if x.Subcircuit != "" {
				// Unknown names fail here and are reported by Validate.
				_ = g.AddEdge(x.Subcircuit, c.Name)
			}
		}
	}
	return g
}
