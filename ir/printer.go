package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Print renders a Contract as readable SSA-ish text, in the style of the
// teacher's `ir.Print(program)` pretty-printer, extended for the wider
// instruction set this IR carries (EVM opcodes, typed memory/storage
// helpers) instead of the teacher's narrower Move-flavored IR.
func Print(c *Contract) string {
	var b strings.Builder
	fmt.Fprintf(&b, "contract %s {\n", c.Name)
	if c.Creation != nil {
		printFunction(&b, c.Creation)
	}
	if c.Runtime != nil {
		printFunction(&b, c.Runtime)
	}
	printHelperSet(&b, "creation helpers", c.CreationFuncs)
	printHelperSet(&b, "runtime helpers", c.RuntimeFuncs)
	if len(c.Dispatcher) > 0 {
		b.WriteString("  dispatcher {\n")
		selectors := make([]uint32, 0, len(c.Dispatcher))
		for sel := range c.Dispatcher {
			selectors = append(selectors, sel)
		}
		sort.Slice(selectors, func(i, j int) bool { return selectors[i] < selectors[j] })
		for _, sel := range selectors {
			fn := c.Dispatcher[sel]
			fmt.Fprintf(&b, "    0x%08x -> %s\n", sel, fn.Name)
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func printHelperSet(b *strings.Builder, label string, set map[string]*Function) {
	if len(set) == 0 {
		return
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintf(b, "  // %s\n", label)
	for _, n := range names {
		printFunction(b, set[n])
	}
}

func printFunction(b *strings.Builder, fn *Function) {
	fmt.Fprintf(b, "  fn %s(%s) %s {\n", fn.Name, printArgs(fn.Args), fn.Type)
	for _, bb := range fn.Blocks {
		printBlock(b, bb)
	}
	b.WriteString("  }\n")
}

func printArgs(args []*Argument) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name
	}
	return strings.Join(parts, ", ")
}

func printBlock(b *strings.Builder, bb *BasicBlock) {
	loopTag := ""
	if bb.IsLoopEntry {
		loopTag = " [loop_entry]"
	}
	fmt.Fprintf(b, "    %s:%s\n", bb.Label, loopTag)
	for _, inst := range bb.Instructions {
		fmt.Fprintf(b, "      %s\n", describeInstruction(inst))
	}
}

func describeInstruction(inst Instruction) string {
	if res := inst.Result(); res != nil {
		return fmt.Sprintf("%%%d = %s", res.ValueID(), inst.String())
	}
	return inst.String()
}
