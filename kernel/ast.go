// Package kernel represents single-timestep particle-behaviour routines as
// an abstract syntax tree, and executes them either by direct
// interpretation or by translating them to C, compiling the result into a
// content-addressed shared object, and running that over the whole particle
// buffer.
package kernel

import "fmt"

// Expr is a node producing a value. The node set is the supported language
// subset; anything a kernel needs beyond it is a translation error, not a
// silent fallback.
type Expr interface {
	exprNode()
}

// Stmt is an executable statement node.
type Stmt interface {
	stmtNode()
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Value float64
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
}

// Local references a kernel-local variable declared in the kernel's Locals.
type Local struct {
	Name string
}

// Attr reads or (as an assignment target) writes a particle attribute.
type Attr struct {
	Name string
}

// Param references one of the loop parameters handed to every kernel
// invocation: "time" or "dt".
type Param struct {
	Name string
}

// Binary applies an arithmetic operator: + - * /.
type Binary struct {
	Op          string
	Left, Right Expr
}

// Compare applies a comparison, yielding 1 or 0: < <= > >= == !=.
type Compare struct {
	Op          string
	Left, Right Expr
}

// Logical combines two boolean-valued expressions with "&&" or "||".
type Logical struct {
	Op          string
	Left, Right Expr
}

// Not negates a boolean-valued expression.
type Not struct {
	X Expr
}

// Call invokes a function from the fixed math library.
type Call struct {
	Fn   string
	Args []Expr
}

// FieldAt samples a referenced field: field(time, x, y). The sample passes
// through the field's unit converter in both execution modes.
type FieldAt struct {
	Field   string
	Time    Expr
	X, Y    Expr
}

// Assign stores Value into Target, which must be a Local or an Attr.
type Assign struct {
	Target Expr
	Value  Expr
}

// If executes Then when Cond is non-zero, Else otherwise.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (FloatLit) exprNode() {}
func (IntLit) exprNode()   {}
func (Local) exprNode()    {}
func (Attr) exprNode()     {}
func (Param) exprNode()    {}
func (Binary) exprNode()   {}
func (Compare) exprNode()  {}
func (Logical) exprNode()  {}
func (Not) exprNode()      {}
func (Call) exprNode()     {}
func (FieldAt) exprNode()  {}

func (Assign) stmtNode() {}
func (If) stmtNode()     {}

// mathFn describes one entry of the fixed math function library. The C
// name doubles as the lookup key so translated calls need no renaming.
type mathFn struct {
	arity int
	eval  func(args []float64) float64
}

func describe(e Expr) string {
	switch n := e.(type) {
	case FloatLit:
		return fmt.Sprintf("FloatLit(%g)", n.Value)
	case IntLit:
		return fmt.Sprintf("IntLit(%d)", n.Value)
	case Local:
		return fmt.Sprintf("Local(%s)", n.Name)
	case Attr:
		return fmt.Sprintf("Attr(%s)", n.Name)
	case Param:
		return fmt.Sprintf("Param(%s)", n.Name)
	case Binary:
		return fmt.Sprintf("Binary(%s)", n.Op)
	case Compare:
		return fmt.Sprintf("Compare(%s)", n.Op)
	case Logical:
		return fmt.Sprintf("Logical(%s)", n.Op)
	case Not:
		return "Not"
	case Call:
		return fmt.Sprintf("Call(%s)", n.Fn)
	case FieldAt:
		return fmt.Sprintf("FieldAt(%s)", n.Field)
	case nil:
		return "nil"
	}
	return fmt.Sprintf("%T", e)
}
