package kernel

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"

	"github.com/pthm-cable/drift/field"
	"github.com/pthm-cable/drift/particle"
)

// Kernel is a named, single-timestep particle-behaviour function held as an
// AST, together with the fields it references and the particle type it runs
// over. Kernels are immutable after construction; Merge produces a new
// Kernel and never mutates its operands.
type Kernel struct {
	Name   string
	Body   []Stmt
	Locals []string
	Fields map[string]*field.Field
	PType  *particle.Type

	// Compiled-path state, populated by Build.
	fieldOrder []string
	ccode      string
	srcPath    string
	libPath    string
	logPath    string
	entry      loopFunc
}

// New builds a kernel from its parts, validating that the body stays inside
// the supported language subset. Validation failures are TranslationErrors
// naming the offending node.
func New(name string, ptype *particle.Type, fields map[string]*field.Field, locals []string, body ...Stmt) (*Kernel, error) {
	k := &Kernel{
		Name:   name,
		Body:   body,
		Locals: locals,
		Fields: fields,
		PType:  ptype,
	}
	v := &validator{k: k, locals: make(map[string]bool, len(locals))}
	for _, l := range locals {
		v.locals[l] = true
	}
	for _, s := range body {
		if err := v.stmt(s); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Merge concatenates two kernels into one function executing a's statements
// and then b's, sharing the union of both kernels' locals and the union of
// their field references. Merging is associative in execution order. Both
// kernels must run over the same particle type, and a field name may not be
// bound to two different fields.
func Merge(a, b *Kernel) (*Kernel, error) {
	if a.PType != b.PType {
		return nil, fmt.Errorf("kernel: cannot merge %q and %q over different particle types", a.Name, b.Name)
	}
	fields := make(map[string]*field.Field, len(a.Fields)+len(b.Fields))
	for name, f := range a.Fields {
		fields[name] = f
	}
	for name, f := range b.Fields {
		if prev, ok := fields[name]; ok && prev != f {
			return nil, fmt.Errorf("kernel: merge of %q and %q binds field %q twice", a.Name, b.Name, name)
		}
		fields[name] = f
	}

	locals := append([]string(nil), a.Locals...)
	seen := make(map[string]bool, len(locals))
	for _, l := range locals {
		seen[l] = true
	}
	for _, l := range b.Locals {
		if !seen[l] {
			locals = append(locals, l)
			seen[l] = true
		}
	}

	body := make([]Stmt, 0, len(a.Body)+len(b.Body))
	body = append(body, a.Body...)
	body = append(body, b.Body...)

	return New(a.Name+b.Name, a.PType, fields, locals, body...)
}

// CacheKey is the content hash identifying this kernel's compiled artifact:
// kernel name, particle-type identity, and every referenced field's name
// paired with its unit-converter kind, sorted for stability. Two kernels
// with identical inputs share an artifact; changing any field's converter
// variant changes the key.
func (k *Kernel) CacheKey() string {
	pairs := make([]string, 0, len(k.Fields))
	for name, f := range k.Fields {
		pairs = append(pairs, name+":"+f.Conv.Kind())
	}
	sort.Strings(pairs)

	h := md5.New()
	fmt.Fprintf(h, "%s|%s|%s", k.Name, k.PType.CacheKey(), strings.Join(pairs, ";"))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// fieldNames returns the kernel's field iteration order: sorted by name, so
// that generation and execution agree on descriptor positions.
func (k *Kernel) fieldNames() []string {
	names := make([]string, 0, len(k.Fields))
	for name := range k.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validator walks the AST rejecting anything outside the translatable
// subset, so the scripted and compiled paths accept exactly the same
// kernels.
type validator struct {
	k      *Kernel
	locals map[string]bool
}

func (v *validator) stmt(s Stmt) error {
	switch n := s.(type) {
	case Assign:
		switch t := n.Target.(type) {
		case Local:
			if !v.locals[t.Name] {
				return &TranslationError{Node: describe(t), Detail: "local variable not declared"}
			}
		case Attr:
			if _, ok := v.k.PType.Lookup(t.Name); !ok {
				return &TranslationError{Node: describe(t), Detail: "particle type has no such attribute"}
			}
		default:
			return &TranslationError{Node: describe(n.Target), Detail: "assignment target must be a local or a particle attribute"}
		}
		return v.expr(n.Value)
	case If:
		if err := v.expr(n.Cond); err != nil {
			return err
		}
		for _, s := range n.Then {
			if err := v.stmt(s); err != nil {
				return err
			}
		}
		for _, s := range n.Else {
			if err := v.stmt(s); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return &TranslationError{Node: "nil", Detail: "nil statement"}
	}
	return &TranslationError{Node: fmt.Sprintf("%T", s), Detail: "unsupported statement kind"}
}

func (v *validator) expr(e Expr) error {
	switch n := e.(type) {
	case FloatLit, IntLit:
		return nil
	case Local:
		if !v.locals[n.Name] {
			return &TranslationError{Node: describe(n), Detail: "local variable not declared"}
		}
		return nil
	case Attr:
		if _, ok := v.k.PType.Lookup(n.Name); !ok {
			return &TranslationError{Node: describe(n), Detail: "particle type has no such attribute"}
		}
		return nil
	case Param:
		if n.Name != "time" && n.Name != "dt" {
			return &TranslationError{Node: describe(n), Detail: `parameter must be "time" or "dt"`}
		}
		return nil
	case Binary:
		switch n.Op {
		case "+", "-", "*", "/":
		default:
			return &TranslationError{Node: describe(n), Detail: "unsupported arithmetic operator"}
		}
		if err := v.expr(n.Left); err != nil {
			return err
		}
		return v.expr(n.Right)
	case Compare:
		switch n.Op {
		case "<", "<=", ">", ">=", "==", "!=":
		default:
			return &TranslationError{Node: describe(n), Detail: "unsupported comparison operator"}
		}
		if err := v.expr(n.Left); err != nil {
			return err
		}
		return v.expr(n.Right)
	case Logical:
		if n.Op != "&&" && n.Op != "||" {
			return &TranslationError{Node: describe(n), Detail: "unsupported logical operator"}
		}
		if err := v.expr(n.Left); err != nil {
			return err
		}
		return v.expr(n.Right)
	case Not:
		return v.expr(n.X)
	case Call:
		fn, ok := mathFuncs[n.Fn]
		if !ok {
			return &TranslationError{Node: describe(n), Detail: "function not in the math library"}
		}
		if len(n.Args) != fn.arity {
			return &TranslationError{Node: describe(n), Detail: fmt.Sprintf("expects %d arguments, got %d", fn.arity, len(n.Args))}
		}
		for _, a := range n.Args {
			if err := v.expr(a); err != nil {
				return err
			}
		}
		return nil
	case FieldAt:
		if _, ok := v.k.Fields[n.Field]; !ok {
			return &TranslationError{Node: describe(n), Detail: "field not bound to this kernel"}
		}
		for _, sub := range []Expr{n.Time, n.X, n.Y} {
			if err := v.expr(sub); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return &TranslationError{Node: "nil", Detail: "nil expression"}
	}
	return &TranslationError{Node: fmt.Sprintf("%T", e), Detail: "unsupported expression kind"}
}
