// Package dag is a small directed acyclic graph used for the circuit
// hierarchy: an edge from a to b records that circuit b instantiates
// circuit a, so a must exist (and be built) before b.
//
// A circuit can never contain itself, directly or through other circuits,
// so cycle detection runs before a hierarchy is used.
package dag
