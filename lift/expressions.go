package lift

import (
	"strconv"
	"strings"

	"github.com/blocksecteam/hookscan/hookerr"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/yulast"
)

func (b *builder) lowerExpr(e yulast.Expression) (ir.Value, error) {
	switch ex := e.(type) {
	case *yulast.Identifier:
		return b.readVariable(b.currentBlock, ex.Name), nil
	case *yulast.Literal:
		return b.lowerLiteral(ex)
	case *yulast.FunctionCall:
		vals, err := b.lowerCallMulti(ex, 1)
		if err != nil {
			return nil, err
		}
		if len(vals) != 1 {
			return nil, b.fail(hookerr.LiftError, "call used as expression must return exactly one value: "+ex.Name)
		}
		return vals[0], nil
	default:
		return nil, b.fail(hookerr.LiftError, "unrecognized expression shape")
	}
}

func (b *builder) lowerLiteral(lit *yulast.Literal) (ir.Value, error) {
	switch lit.Kind {
	case yulast.LitDecimal:
		return ir.NewIntConstant(b.arena(), lit.Text, parseDecimal(lit.Text)), nil
	case yulast.LitHexNumber:
		return ir.NewIntConstant(b.arena(), lit.Text, parseHex(lit.Text)), nil
	case yulast.LitString:
		return ir.NewStringConstant(b.arena(), lit.Text), nil
	case yulast.LitHexString:
		return ir.NewHexStringConstant(b.arena(), lit.Text), nil
	case yulast.LitBool:
		return ir.NewBoolConstant(b.arena(), lit.Bool), nil
	default:
		return nil, b.fail(hookerr.LiftError, "unrecognized literal kind")
	}
}

// parseDecimal and parseHex are best-effort: Yul literals may exceed 64
// bits (e.g. full-width masks), so the original token text in IntText
// remains the source of truth and a parse failure just yields 0.
func parseDecimal(text string) int64 {
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseHex(text string) int64 {
	t := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 64)
	if err != nil {
		return 0
	}
	return int64(v)
}

// lowerCallMulti lowers a call in a context that may bind more than one
// return value (let/assign with a name list), falling back through the
// three call shapes spec.md §4.1 item 9 and §3 describe: an abstract EVM
// opcode, an already- or lazily-built user-defined function, or a
// generic YulFuncInst for anything else (normalized later by package
// normalize). wantCount is the number of bound names at this call site
// (0 for a bare expression statement, 1 for a single-name let/assign or
// an expression context); it only changes behavior for the generic
// fallback, which must synthesize one YulFuncInst per logical return so
// a later `abi_decode_tuple_…` rewrite (spec.md §4.2) has a node per
// return to replace.
func (b *builder) lowerCallMulti(call *yulast.FunctionCall, wantCount int) ([]ir.Value, error) {
	args := make([]ir.Value, len(call.Args))
	for i, a := range call.Args {
		v, err := b.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if op, ok := ir.LookupOpcode(call.Name); ok {
		inst := ir.NewEVMInst(b.arena(), op, args)
		b.currentBlock.Append(inst)
		if inst.IsHalt() {
			b.currentBlock.Append(ir.NewUnreachableInst(b.arena()))
		}
		if r := inst.Result(); r != nil {
			return []ir.Value{r}, nil
		}
		return nil, nil
	}

	if call.Name == b.fn.Name {
		return b.lowerUserCall(b.fn, args), nil
	}
	if fn := b.half.ensureFunctionBuilt(call.Name); fn != nil {
		if b.half.err != nil {
			return nil, b.half.err
		}
		return b.lowerUserCall(fn, args), nil
	}

	if wantCount > 1 {
		vals := make([]ir.Value, wantCount)
		for i := 0; i < wantCount; i++ {
			inst := ir.NewYulFuncInst(b.arena(), call.Name, args)
			inst.ReturnIndex = i
			inst.ReturnCount = wantCount
			b.currentBlock.Append(inst)
			vals[i] = inst
		}
		return vals, nil
	}

	inst := ir.NewYulFuncInst(b.arena(), call.Name, args)
	inst.ReturnCount = 1
	b.currentBlock.Append(inst)
	if r := inst.Result(); r != nil {
		return []ir.Value{r}, nil
	}
	return nil, nil
}

func (b *builder) lowerUserCall(callee *ir.Function, args []ir.Value) []ir.Value {
	call := ir.NewCallInst(b.arena(), callee, args)
	b.currentBlock.Append(call)
	if len(callee.ReturnNames) <= 1 {
		return []ir.Value{call}
	}
	vals := make([]ir.Value, len(callee.ReturnNames))
	for i := range callee.ReturnNames {
		ev := ir.NewExtractReturnValueInst(b.arena(), call, i)
		b.currentBlock.Append(ev)
		vals[i] = ev
	}
	return vals
}
