package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comalice/storex/internal/primitives"
)

// SelectorGraph is the part of a store the visualizer reads from.
type SelectorGraph interface {
	Slices() []string
	SelectorNames() []string
	SelectorInputs(name string) ([]string, bool)
}

// Visualizer renders a store's selector graph and state.
type Visualizer struct{}

// ExportDOT generates Graphviz DOT source for the selector DAG. Slices are
// drawn as boxes and derived selectors as ellipses; edges run from input to
// dependent selector.
func (v *Visualizer) ExportDOT(g SelectorGraph) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph Selectors {
  rankdir=LR;
  node [fontsize=10];
  edge [fontsize=9];
`)

	slices := make(map[string]bool)
	for _, name := range g.Slices() {
		slices[name] = true
		fmt.Fprintf(&buf, "  %q [shape=box, style=filled, fillcolor=lightblue];\n", name)
	}

	names := g.SelectorNames()
	for _, name := range names {
		inputs, _ := g.SelectorInputs(name)
		if slices[name] {
			continue
		}
		if len(inputs) == 0 {
			// base selector for a slice not registered yet
			fmt.Fprintf(&buf, "  %q [shape=box, style=dashed];\n", name)
			continue
		}
		fmt.Fprintf(&buf, "  %q [shape=ellipse];\n", name)
	}
	for _, name := range names {
		inputs, _ := g.SelectorInputs(name)
		for _, input := range inputs {
			fmt.Fprintf(&buf, "  %q -> %q;\n", input, name)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the state tree to indented JSON.
func (v *Visualizer) ExportJSON(state primitives.State) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}
