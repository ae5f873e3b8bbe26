// Package annotate assigns generated labels to components that need one
// for code generation.
//
// Labels are configuration, not structure, so they are written directly on
// the components rather than through a transaction. Each circuit is
// snapshotted in a read transaction and then labelled outside it, which
// keeps the walk into subcircuits from holding one circuit's lock while
// waiting for another's.
package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
)

// Reporter receives progress messages.
type Reporter interface {
	Info(msg string)
}

// LogReporter reports through a slog.Logger at Info level.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Info(msg string) { r.Logger.Info(msg) }

// Messages collects reports in memory.
type Messages []string

func (m *Messages) Info(msg string) { *m = append(*m, msg) }

// Annotate labels every component of c, and of the subcircuits it
// instantiates, that requires a label and has none. With clearExisting,
// such labels are removed first so the whole circuit is renumbered. A
// circuit that is already annotated is skipped.
func Annotate(ctx context.Context, c *circuit.Circuit, clearExisting bool, r Reporter) error {
	return annotate(ctx, c, clearExisting, r, make(map[comp.CircuitRef]bool))
}

func annotate(ctx context.Context, c *circuit.Circuit, clearExisting bool, r Reporter, seen map[comp.CircuitRef]bool) error {
	if seen[c.ID()] {
		return nil
	}
	seen[c.ID()] = true
	if c.IsAnnotated() {
		r.Info("Circuit already annotated.")
		return nil
	}

	var comps []comp.Component
	var subs []*circuit.Circuit
	var version uint64
	err := circuit.Run(ctx, c, circuit.Read, "annotate", func(context.Context, *circuit.Mutator) error {
		comps = c.NonWires()
		subs = c.Subcircuits()
		version = c.Version()
		return nil
	})
	if err != nil {
		return fmt.Errorf("annotate %s: %w", c.Name(), err)
	}

	var labelled []comp.Component
	for _, x := range comps {
		if x.Factory().RequiresLabel {
			labelled = append(labelled, x)
		}
	}

	if clearExisting {
		for _, x := range labelled {
			r.Info(fmt.Sprintf("Cleared %s/%s", c.Name(), x.Label()))
			x.SetLabel("")
		}
	}

	// used holds the labels taken so far, per base name.
	used := make(map[string]map[string]bool)
	next := make(map[string]int)
	for _, x := range labelled {
		base := BaseName(x)
		if used[base] == nil {
			used[base] = make(map[string]bool)
			next[base] = 1
		}
		if l := Sanitize(x.Label()); l != "" {
			used[base][l] = true
		}
	}

	for _, sub := range subs {
		if err := annotate(ctx, sub, clearExisting, r, seen); err != nil {
			return err
		}
	}

	for _, x := range labelled {
		if Sanitize(x.Label()) != "" {
			continue
		}
		base := BaseName(x)
		id := next[base]
		for used[base][base+"_"+strconv.Itoa(id)] {
			id++
		}
		next[base] = id + 1
		label := base + "_" + strconv.Itoa(id)
		used[base][label] = true
		x.SetLabel(label)
		r.Info(fmt.Sprintf("Labeled %s/%s", c.Name(), label))
	}

	c.MarkAnnotated(version)
	return nil
}

// BaseName is the prefix of generated labels for x. Pins are named by the
// direction and width of their first port.
func BaseName(x comp.Component) string {
	f := x.Factory()
	if !f.Pin {
		if f.HDLName != "" {
			return f.HDLName
		}
		return Sanitize(f.Name)
	}
	ports := x.Ports()
	if len(ports) == 0 {
		return "Pin"
	}
	p := ports[0]
	name := "Output"
	if p.IsOutput() {
		name = "Input"
	}
	if p.Width > 1 {
		name += "_bus"
	}
	return name
}

// Sanitize turns s into an identifier usable in generated code: characters
// other than letters, digits and underscores become underscores, and a
// leading digit is prefixed with "L_". Blank labels stay empty.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		out = "L_" + out
	}
	return out
}
