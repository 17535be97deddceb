package state

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/karst-sim/karst/internal/keys"
)

func kindShape(k EvaluatorKind) string {
	switch k {
	case KindPrimary:
		return "box"
	case KindIndependent:
		return "diamond"
	default:
		return "ellipse"
	}
}

// WriteDependencyGraph renders the evaluator graph in DOT format for
// graphviz. Primary nodes draw as boxes, independent nodes as
// diamonds, secondary nodes as ellipses. Dependencies on fields with
// no evaluator draw gray.
func (s *State) WriteDependencyGraph(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph dependencies {")
	fmt.Fprintln(bw, "  rankdir=BT;")

	plain := map[keys.KeyTag]struct{}{}
	for _, e := range s.sortedEvaluators() {
		kt := keys.KeyTag{Key: e.Key(), Tag: e.Tag()}
		fmt.Fprintf(bw, "  %q [shape=%s];\n", kt.String(), kindShape(e.Kind()))
		for _, dep := range e.Dependencies() {
			if !s.HasEvaluator(dep.Key, dep.Tag) {
				plain[dep] = struct{}{}
			}
			fmt.Fprintf(bw, "  %q -> %q;\n", kt.String(), dep.String())
		}
	}

	names := make([]string, 0, len(plain))
	for kt := range plain {
		names = append(names, kt.String())
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(bw, "  %q [shape=box, style=filled, fillcolor=gray90];\n", name)
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
