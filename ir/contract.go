package ir

// Contract is the single aggregate root for one scan (spec.md §3).
type Contract struct {
	Arena *Arena

	File string
	Name string

	// IRText is the original Yul IR text, kept only for source-map
	// rendering (never re-parsed).
	IRText string

	Creation *Function
	Runtime  *Function

	// CreationFuncs / RuntimeFuncs are the per-half helper-function
	// dictionaries, keyed by name (spec.md §3).
	CreationFuncs map[string]*Function
	RuntimeFuncs  map[string]*Function

	// Dispatcher maps a 4-byte external selector to the runtime
	// Function it dispatches to (spec.md §3).
	Dispatcher map[uint32]*Function

	// AuxContracts records auxiliary contract names seen inside the
	// same Yul object, besides the chosen `<name>_deployed` runtime
	// half (spec.md §4.1 item 1).
	AuxContracts []string
}

// NewContract allocates an empty Contract with its own Arena.
func NewContract(file, name string) *Contract {
	return &Contract{
		Arena:         NewArena(),
		File:          file,
		Name:          name,
		CreationFuncs: make(map[string]*Function),
		RuntimeFuncs:  make(map[string]*Function),
		Dispatcher:    make(map[uint32]*Function),
	}
}

// AllFunctions returns every function reachable from the contract: the
// two entry halves plus both helper dictionaries, used by the
// operand/user symmetry checker and by mutability analysis.
func (c *Contract) AllFunctions() []*Function {
	seen := make(map[*Function]bool)
	var out []*Function
	add := func(f *Function) {
		if f != nil && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	add(c.Creation)
	add(c.Runtime)
	for _, f := range c.CreationFuncs {
		add(f)
	}
	for _, f := range c.RuntimeFuncs {
		add(f)
	}
	return out
}

// AllInstructions returns every Instruction across every block of every
// function reachable from the contract, in a deterministic (function,
// block, index) order.
func (c *Contract) AllInstructions() []Instruction {
	var out []Instruction
	for _, fn := range c.AllFunctions() {
		for _, bb := range fn.Blocks {
			out = append(out, bb.Instructions...)
		}
	}
	return out
}

// FunctionByName looks up a function on either half by name, used by the
// normalization pass and the lifter when resolving a call target.
func (c *Contract) FunctionByName(name string, runtimeHalf bool) *Function {
	if runtimeHalf {
		if f, ok := c.RuntimeFuncs[name]; ok {
			return f
		}
		if c.Runtime != nil && c.Runtime.Name == name {
			return c.Runtime
		}
		return nil
	}
	if f, ok := c.CreationFuncs[name]; ok {
		return f
	}
	if c.Creation != nil && c.Creation.Name == name {
		return c.Creation
	}
	return nil
}

// EraseFunction removes a helper function from its half's dictionary
// after normalization has replaced every call to it (spec.md §4.2:
// "Replaced helper functions are erased from the function dictionary
// after the pass").
func (c *Contract) EraseFunction(name string, runtimeHalf bool) {
	if runtimeHalf {
		delete(c.RuntimeFuncs, name)
	} else {
		delete(c.CreationFuncs, name)
	}
}
