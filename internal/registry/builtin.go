package registry

import "github.com/vk/circuitgrid/internal/comp"

// Gates registers the combinational logic gates.
type Gates struct{}

func (Gates) Register(r *Registry) {
	for _, f := range []*comp.Factory{
		{Name: "AND Gate", HDLName: "AND_GATE"},
		{Name: "OR Gate", HDLName: "OR_GATE"},
		{Name: "NOT Gate", HDLName: "NOT_GATE"},
		{Name: "NAND Gate", HDLName: "NAND_GATE"},
		{Name: "NOR Gate", HDLName: "NOR_GATE"},
		{Name: "XOR Gate", HDLName: "XOR_GATE"},
		{Name: "Buffer", HDLName: "BUFFER"},
		{Name: "Controlled Buffer", HDLName: "TRISTATE_BUFFER"},
	} {
		r.RegisterFactory(f)
	}
}

// Wiring registers pins, clocks, constants and splitters.
type Wiring struct{}

func (Wiring) Register(r *Registry) {
	for _, f := range []*comp.Factory{
		{Name: "Pin", Pin: true, RequiresLabel: true},
		{Name: "Clock", HDLName: "CLOCK", Clock: true},
		{Name: "Constant", HDLName: "CONSTANT"},
		{Name: "Splitter", HDLName: "SPLITTER"},
		{Name: "Tunnel", HDLName: "TUNNEL", RequiresLabel: true},
	} {
		r.RegisterFactory(f)
	}
}

// Memory registers storage elements.
type Memory struct{}

func (Memory) Register(r *Registry) {
	for _, f := range []*comp.Factory{
		{Name: "Register", HDLName: "REGISTER", RequiresLabel: true, Memory: true},
		{Name: "RAM", HDLName: "RAM", RequiresLabel: true, Memory: true},
		{Name: "ROM", HDLName: "ROM", RequiresLabel: true, Memory: true},
		{Name: "Counter", HDLName: "COUNTER", RequiresLabel: true},
	} {
		r.RegisterFactory(f)
	}
}

// Builtin returns a Registry holding every built-in library.
func Builtin() *Registry {
	return New(Gates{}, Wiring{}, Memory{})
}
