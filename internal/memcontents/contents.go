// Package memcontents stores the cell values of memory-like components.
//
// Cells are kept in the narrowest unsigned type that holds the configured
// bit width, and every write is masked to that width. Addresses outside the
// memory read as zero and ignore writes.
package memcontents

import (
	"errors"
	"fmt"
	"sync"
)

// MaxWidth is the widest cell supported.
const MaxWidth = 32

var (
	ErrWidth = errors.New("cell width out of range")
	ErrSize  = errors.New("negative cell count")
)

// Contents is a fixed-size array of cells of one bit width.
type Contents interface {
	Len() int
	Width() int
	Get(addr int) uint32
	// GetRange returns n consecutive cells starting at start.
	GetRange(start, n int) []uint32
	// Set stores value at addr and reports whether the cell changed.
	Set(addr int, value uint32) bool
	// Load stores values from start on, each masked with mask.
	Load(start int, values []uint32, mask uint32)
	Clear()
	IsClear() bool
	// Matches reports whether the cells from start on equal values masked
	// with mask.
	Matches(values []uint32, start int, mask uint32) bool
	Clone() Contents
}

// New allocates size zeroed cells of the given width.
func New(size, width int) (Contents, error) {
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("%w: %d", ErrWidth, width)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrSize, size)
	}
	mask := ^uint32(0) >> (MaxWidth - width)
	switch {
	case width <= 8:
		return &cells[uint8]{data: make([]uint8, size), width: width, mask: mask}, nil
	case width <= 16:
		return &cells[uint16]{data: make([]uint16, size), width: width, mask: mask}, nil
	default:
		return &cells[uint32]{data: make([]uint32, size), width: width, mask: mask}, nil
	}
}

type cell interface {
	uint8 | uint16 | uint32
}

type cells[T cell] struct {
	mu    sync.RWMutex
	data  []T
	width int
	mask  uint32
}

func (c *cells[T]) Len() int   { return len(c.data) }
func (c *cells[T]) Width() int { return c.width }

func (c *cells[T]) get(addr int) uint32 {
	if addr < 0 || addr >= len(c.data) {
		return 0
	}
	return uint32(c.data[addr])
}

func (c *cells[T]) Get(addr int) uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.get(addr)
}

func (c *cells[T]) GetRange(start, n int) []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uint32, max(n, 0))
	for i := range out {
		out[i] = c.get(start + i)
	}
	return out
}

func (c *cells[T]) Set(addr int, value uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if addr < 0 || addr >= len(c.data) {
		return false
	}
	v := T(value & c.mask)
	if c.data[addr] == v {
		return false
	}
	c.data[addr] = v
	return true
}

func (c *cells[T]) Load(start int, values []uint32, mask uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range values {
		addr := start + i
		if addr < 0 {
			continue
		}
		if addr >= len(c.data) {
			return
		}
		c.data[addr] = T(v & mask & c.mask)
	}
}

func (c *cells[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
}

func (c *cells[T]) IsClear() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.data {
		if v != 0 {
			return false
		}
	}
	return true
}

func (c *cells[T]) Matches(values []uint32, start int, mask uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, v := range values {
		if c.get(start+i) != v&mask {
			return false
		}
	}
	return true
}

func (c *cells[T]) Clone() Contents {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &cells[T]{data: append([]T(nil), c.data...), width: c.width, mask: c.mask}
}
