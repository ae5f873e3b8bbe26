// Package comp defines the placed elements of a circuit: components with
// ordered ports, the wires that join them, and the events a component raises
// when its port geometry or appearance changes.
//
// Components are identity-distinct. Every component receives a process-wide
// unique ID at construction and all graph bookkeeping is keyed by that ID, so
// two components with identical configuration at different positions never
// collide.
package comp
