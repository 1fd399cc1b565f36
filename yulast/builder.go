package yulast

// Fluent builder helpers used by tests to construct fixture ASTs
// directly in Go. None of this is on the production path (spec.md §6:
// the real Yul parser is an external collaborator); it exists only so
// `lift`, `normalize`, `mutability`, and `detector` tests can build
// realistic input without hand-rolling every node literal.

func Obj(name string, code *Block, children ...*Object) *Object {
	return &Object{Name: name, Code: code, Objects: children}
}

func Blk(stmts ...Statement) *Block {
	return &Block{Statements: stmts}
}

func FnDef(name string, params, returns []string, body *Block) *FunctionDefinition {
	return &FunctionDefinition{Name: name, Params: params, Returns: returns, Body: body}
}

func Let(value Expression, names ...string) *VariableDeclaration {
	return &VariableDeclaration{Names: names, Value: value}
}

func Assign(value Expression, names ...string) *Assignment {
	return &Assignment{Names: names, Value: value}
}

func ExprStmt(call *FunctionCall) *ExpressionStatement {
	return &ExpressionStatement{Call: call}
}

func IfStmt(cond Expression, body *Block) *If {
	return &If{Cond: cond, Body: body}
}

func SwitchStmt(cond Expression, def *Default, cases ...*Case) *Switch {
	return &Switch{Cond: cond, Cases: cases, Default: def}
}

func CaseStmt(lit *Literal, body *Block) *Case {
	return &Case{Value: lit, Body: body}
}

func DefaultStmt(body *Block) *Default {
	return &Default{Body: body}
}

func For(init *Block, cond Expression, post, body *Block) *ForLoop {
	return &ForLoop{Init: init, Cond: cond, Post: post, Body: body}
}

func Break() *BreakStatement       { return &BreakStatement{} }
func Continue() *ContinueStatement { return &ContinueStatement{} }
func Leave() *LeaveStatement       { return &LeaveStatement{} }

func Call(name string, args ...Expression) *FunctionCall {
	return &FunctionCall{Name: name, Args: args}
}

func Ident(name string) *Identifier {
	return &Identifier{Name: name}
}

func Dec(text string) *Literal {
	return &Literal{Kind: LitDecimal, Text: text}
}

func Hex(text string) *Literal {
	return &Literal{Kind: LitHexNumber, Text: text}
}

func Str(text string) *Literal {
	return &Literal{Kind: LitString, Text: text}
}

func HexStr(text string) *Literal {
	return &Literal{Kind: LitHexString, Text: text}
}

func BoolLit(v bool) *Literal {
	return &Literal{Kind: LitBool, Bool: v}
}
