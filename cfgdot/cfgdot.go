// Package cfgdot renders a lifted *ir.Contract's basic-block graph as
// Graphviz dot text, backing `-m cfg` (spec.md §6). It reads only
// already-public ir fields, grounded on
// original_source/hookscan/utils/cfg_visualizer.py's generate_cfg,
// reimplemented without a graphviz binding since the only thing this
// spec needs out of it is the dot text itself.
package cfgdot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blocksecteam/hookscan/ir"
)

// Graph is one function's rendered CFG: a file-system-safe name to
// save it under, and its dot source.
type Graph struct {
	Name   string
	Source string
}

// Render produces one Graph per function of contract, in creation-half
// then runtime-half order, matching generate_cfg's two-pass walk over
// `creation_functions_dict`/`runtime_functions_dict` plus the half's
// own entry function.
func Render(contract *ir.Contract) []Graph {
	var out []Graph
	out = append(out, renderHalf(contract, contract.CreationFuncs, contract.Creation, "creation")...)
	out = append(out, renderHalf(contract, contract.RuntimeFuncs, contract.Runtime, "runtime")...)
	return out
}

func renderHalf(contract *ir.Contract, funcs map[string]*ir.Function, entry *ir.Function, half string) []Graph {
	var names []string
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Graph
	for _, name := range names {
		out = append(out, renderFunction(contract, funcs[name], half))
	}
	if entry != nil {
		out = append(out, renderFunction(contract, entry, half))
	}
	return out
}

func renderFunction(contract *ir.Contract, fn *ir.Function, half string) Graph {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph CFG {\n")
	fmt.Fprintf(&b, "  node [shape=box];\n")

	args := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		args[i] = a.Name
	}
	label := fmt.Sprintf("%s\\narguments: %s\\nreturn values: %s",
		fn.Name, strings.Join(args, ", "), strings.Join(fn.ReturnNames, ", "))
	fmt.Fprintf(&b, "  labelloc=\"t\";\n  label=%q;\n", label)

	for _, bb := range fn.Blocks {
		lines := make([]string, len(bb.Instructions))
		for i, inst := range bb.Instructions {
			lines[i] = inst.String()
		}
		nodeLabel := fmt.Sprintf("basic block id:%d\\n\\n%s", bb.ValueID(), strings.Join(lines, "\\l"))
		if len(lines) > 0 {
			nodeLabel += "\\l"
		}
		fmt.Fprintf(&b, "  %d [label=%q];\n", bb.ValueID(), nodeLabel)
	}
	for _, bb := range fn.Blocks {
		for _, pred := range bb.Predecessors {
			fmt.Fprintf(&b, "  %d -> %d;\n", pred.ValueID(), bb.ValueID())
		}
	}
	b.WriteString("}\n")

	return Graph{Name: fmt.Sprintf("%s-%s-%s", contract.Name, half, fn.Name), Source: b.String()}
}
