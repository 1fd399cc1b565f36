package ir

// Opcode is the closed set of abstract EVM opcodes the lifter can emit
// for a Yul builtin call (spec.md §4.1 item 9). Arity and the
// is_halt_inst flag are looked up from opcodeTable rather than stored per
// instance, since they never vary by call site.
type Opcode int

const (
	OpADD Opcode = iota
	OpSUB
	OpMUL
	OpDIV
	OpSDIV
	OpMOD
	OpSMOD
	OpEXP
	OpLT
	OpGT
	OpSLT
	OpSGT
	OpEQ
	OpISZERO
	OpAND
	OpOR
	OpXOR
	OpNOT
	OpSHL
	OpSHR
	OpSAR
	OpBYTE
	OpKECCAK256
	OpADDRESS
	OpBALANCE
	OpORIGIN
	OpCALLER
	OpCALLVALUE
	OpCALLDATALOAD
	OpCALLDATASIZE
	OpCALLDATACOPY
	OpCODESIZE
	OpCODECOPY
	OpGASPRICE
	OpEXTCODESIZE
	OpEXTCODECOPY
	OpRETURNDATASIZE
	OpRETURNDATACOPY
	OpEXTCODEHASH
	OpBLOCKHASH
	OpCOINBASE
	OpTIMESTAMP
	OpNUMBER
	OpPREVRANDAO
	OpGASLIMIT
	OpCHAINID
	OpSELFBALANCE
	OpBASEFEE
	OpMLOAD
	OpMSTORE
	OpMSTORE8
	OpSLOAD
	OpSSTORE
	OpMSIZE
	OpGAS
	OpLOADIMMUTABLE
	OpSETIMMUTABLE
	OpLOG0
	OpLOG1
	OpLOG2
	OpLOG3
	OpLOG4
	OpCREATE
	OpCREATE2
	OpCALL
	OpCALLCODE
	OpDELEGATECALL
	OpSTATICCALL
	OpRETURN
	OpREVERT
	OpSELFDESTRUCT
	OpINVALID
	OpSTOP
	OpPOP
	OpDATASIZE
	OpDATAOFFSET
	OpDATACOPY
)

type opcodeMeta struct {
	Name  string
	Arity int // fixed operand count; LOGk and the CALL family have one per opcode
	Halts bool
}

var opcodeTable = map[Opcode]opcodeMeta{
	OpADD:             {"add", 2, false},
	OpSUB:             {"sub", 2, false},
	OpMUL:             {"mul", 2, false},
	OpDIV:             {"div", 2, false},
	OpSDIV:            {"sdiv", 2, false},
	OpMOD:             {"mod", 2, false},
	OpSMOD:            {"smod", 2, false},
	OpEXP:             {"exp", 2, false},
	OpLT:              {"lt", 2, false},
	OpGT:              {"gt", 2, false},
	OpSLT:             {"slt", 2, false},
	OpSGT:             {"sgt", 2, false},
	OpEQ:              {"eq", 2, false},
	OpISZERO:          {"iszero", 1, false},
	OpAND:             {"and", 2, false},
	OpOR:              {"or", 2, false},
	OpXOR:             {"xor", 2, false},
	OpNOT:             {"not", 1, false},
	OpSHL:             {"shl", 2, false},
	OpSHR:             {"shr", 2, false},
	OpSAR:             {"sar", 2, false},
	OpBYTE:            {"byte", 2, false},
	OpKECCAK256:       {"keccak256", 2, false},
	OpADDRESS:         {"address", 0, false},
	OpBALANCE:         {"balance", 1, false},
	OpORIGIN:          {"origin", 0, false},
	OpCALLER:          {"caller", 0, false},
	OpCALLVALUE:       {"callvalue", 0, false},
	OpCALLDATALOAD:    {"calldataload", 1, false},
	OpCALLDATASIZE:    {"calldatasize", 0, false},
	OpCALLDATACOPY:    {"calldatacopy", 3, false},
	OpCODESIZE:        {"codesize", 0, false},
	OpCODECOPY:        {"codecopy", 3, false},
	OpGASPRICE:        {"gasprice", 0, false},
	OpEXTCODESIZE:     {"extcodesize", 1, false},
	OpEXTCODECOPY:     {"extcodecopy", 4, false},
	OpRETURNDATASIZE:  {"returndatasize", 0, false},
	OpRETURNDATACOPY:  {"returndatacopy", 3, false},
	OpEXTCODEHASH:     {"extcodehash", 1, false},
	OpBLOCKHASH:       {"blockhash", 1, false},
	OpCOINBASE:        {"coinbase", 0, false},
	OpTIMESTAMP:       {"timestamp", 0, false},
	OpNUMBER:          {"number", 0, false},
	OpPREVRANDAO:      {"prevrandao", 0, false},
	OpGASLIMIT:        {"gaslimit", 0, false},
	OpCHAINID:         {"chainid", 0, false},
	OpSELFBALANCE:     {"selfbalance", 0, false},
	OpBASEFEE:         {"basefee", 0, false},
	OpMLOAD:           {"mload", 1, false},
	OpMSTORE:          {"mstore", 2, false},
	OpMSTORE8:         {"mstore8", 2, false},
	OpSLOAD:           {"sload", 1, false},
	OpSSTORE:          {"sstore", 2, false},
	OpMSIZE:           {"msize", 0, false},
	OpGAS:             {"gas", 0, false},
	OpLOADIMMUTABLE:   {"loadimmutable", 1, false},
	OpSETIMMUTABLE:    {"setimmutable", 3, false},
	OpLOG0:            {"log0", 2, false},
	OpLOG1:            {"log1", 3, false},
	OpLOG2:            {"log2", 4, false},
	OpLOG3:            {"log3", 5, false},
	OpLOG4:            {"log4", 6, false},
	OpCREATE:          {"create", 3, false},
	OpCREATE2:         {"create2", 4, false},
	OpCALL:            {"call", 7, false},
	OpCALLCODE:        {"callcode", 7, false},
	OpDELEGATECALL:    {"delegatecall", 6, false},
	OpSTATICCALL:      {"staticcall", 6, false},
	OpRETURN:          {"return", 2, true},
	OpREVERT:          {"revert", 2, true},
	OpSELFDESTRUCT:    {"selfdestruct", 1, true},
	OpINVALID:         {"invalid", 0, true},
	OpSTOP:            {"stop", 0, true},
	OpPOP:             {"pop", 1, false},
	OpDATASIZE:        {"datasize", 1, false},
	OpDATAOFFSET:      {"dataoffset", 1, false},
	OpDATACOPY:        {"datacopy", 3, false},
}

// OpcodeName returns the lower-case Yul builtin name for op.
func OpcodeName(op Opcode) string {
	if m, ok := opcodeTable[op]; ok {
		return m.Name
	}
	return "unknown"
}

var opcodeByName map[string]Opcode

func init() {
	opcodeByName = make(map[string]Opcode, len(opcodeTable))
	for op, meta := range opcodeTable {
		opcodeByName[meta.Name] = op
	}
}

// LookupOpcode resolves a Yul builtin call's function name to its
// Opcode, for use by the lifter when it decides a FunctionCall is an
// EVM builtin rather than a user-defined or recognized helper function
// (spec.md §4.1 item 9).
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// OpcodeArity returns the fixed operand count for op, or -1 for variadic
// opcodes (none currently modeled as variadic; LOGk's topic count is
// encoded by using distinct LOG0..LOG4 opcodes instead).
func OpcodeArity(op Opcode) int {
	if m, ok := opcodeTable[op]; ok {
		return m.Arity
	}
	return -1
}

// OpcodeHalts reports whether op is flagged is_halt_inst: the block's
// terminator becomes Unreachable immediately after it (spec.md §4.1
// item 9).
func OpcodeHalts(op Opcode) bool {
	if m, ok := opcodeTable[op]; ok {
		return m.Halts
	}
	return false
}

// returnsValue reports whether op produces a result value usable as an
// operand elsewhere (SSTORE, LOGk, REVERT, SELFDESTRUCT, STOP do not).
func returnsValue(op Opcode) bool {
	switch op {
	case OpSSTORE, OpMSTORE, OpMSTORE8, OpCALLDATACOPY, OpCODECOPY, OpEXTCODECOPY,
		OpRETURNDATACOPY, OpLOG0, OpLOG1, OpLOG2, OpLOG3, OpLOG4,
		OpRETURN, OpREVERT, OpSELFDESTRUCT, OpINVALID, OpSTOP, OpPOP, OpSETIMMUTABLE, OpDATACOPY:
		return false
	default:
		return true
	}
}

// EVMInst is a single abstract EVM opcode instruction. It carries a
// fixed-arity operand slice, per spec.md §9's suggested "tiny record"
// representation for the whole opcode family.
type EVMInst struct {
	BaseInst
	Op   Opcode
	Args []Value
}

func NewEVMInst(a *Arena, op Opcode, args []Value) *EVMInst {
	e := &EVMInst{BaseInst: newBaseInst(a), Op: op, Args: args}
	for _, arg := range args {
		use(arg, e)
	}
	return e
}

func (e *EVMInst) Kind() InstructionKind { return KindEVMOpcode }
func (e *EVMInst) Operands() []Value     { return e.Args }
func (e *EVMInst) Result() Value {
	if returnsValue(e.Op) {
		return e
	}
	return nil
}
func (e *EVMInst) IsTerminator() bool { return false }
func (e *EVMInst) IsHalt() bool       { return OpcodeHalts(e.Op) }
func (e *EVMInst) String() string     { return OpcodeName(e.Op) }
