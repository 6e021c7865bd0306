package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/drift/field"
	"github.com/pthm-cable/drift/particle"
)

// mathFuncs is the fixed function library available to kernels. The keys are
// the C names, so calls translate one-to-one; every entry also carries its
// Go evaluation so the scripted path computes the same values.
var mathFuncs = map[string]mathFn{
	"fabs":  {1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"sqrt":  {1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"exp":   {1, func(a []float64) float64 { return math.Exp(a[0]) }},
	"log":   {1, func(a []float64) float64 { return math.Log(a[0]) }},
	"sin":   {1, func(a []float64) float64 { return math.Sin(a[0]) }},
	"cos":   {1, func(a []float64) float64 { return math.Cos(a[0]) }},
	"tan":   {1, func(a []float64) float64 { return math.Tan(a[0]) }},
	"atan2": {2, func(a []float64) float64 { return math.Atan2(a[0], a[1]) }},
	"pow":   {2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"fmin":  {2, func(a []float64) float64 { return math.Min(a[0], a[1]) }},
	"fmax":  {2, func(a []float64) float64 { return math.Max(a[0], a[1]) }},
	"fmod":  {2, func(a []float64) float64 { return math.Mod(a[0], a[1]) }},
}

// env is the evaluation context for one particle during one kernel pass.
// Attribute reads and writes go straight to the packed record buffer, so
// the scripted path observes the same float32 narrowing the compiled loop
// does.
type env struct {
	set    *particle.Set
	idx    int
	locals map[string]float64
	fields map[string]*field.Field
	time   float64
	dt     float64
}

// runInterpreted executes the kernel body over every active particle for
// the given number of timesteps, advancing time by dt between passes.
// Sampling failures deactivate the particle through its state attribute and
// never abort the loop, matching the compiled path.
func (k *Kernel) runInterpreted(set *particle.Set, timesteps int, startTime, dt float64) {
	e := &env{
		set:    set,
		locals: make(map[string]float64, len(k.Locals)),
		fields: k.Fields,
		dt:     dt,
	}
	for step := 0; step < timesteps; step++ {
		e.time = startTime + float64(step)*dt
		for i := 0; i < set.Len(); i++ {
			if !set.Active(i) {
				continue
			}
			e.idx = i
			for _, l := range k.Locals {
				e.locals[l] = 0
			}
			if err := e.runBody(k.Body); err != nil {
				set.SetState(i, stateForError(err))
			}
		}
	}
}

func stateForError(err error) int32 {
	switch {
	case errors.Is(err, field.ErrOutOfRange):
		return particle.StateErrOutOfRange
	case errors.Is(err, field.ErrDegenerateInterval):
		return particle.StateErrDegenerate
	}
	return particle.StateErrOutOfRange
}

func (e *env) runBody(body []Stmt) error {
	for _, s := range body {
		if err := e.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) stmt(s Stmt) error {
	switch n := s.(type) {
	case Assign:
		v, err := e.expr(n.Value)
		if err != nil {
			return err
		}
		switch t := n.Target.(type) {
		case Local:
			e.locals[t.Name] = v
		case Attr:
			e.set.SetFloat(e.idx, t.Name, v)
		}
		return nil
	case If:
		c, err := e.expr(n.Cond)
		if err != nil {
			return err
		}
		if c != 0 {
			return e.runBody(n.Then)
		}
		return e.runBody(n.Else)
	}
	panic(fmt.Sprintf("kernel: unvalidated statement %T", s))
}

func (e *env) expr(x Expr) (float64, error) {
	switch n := x.(type) {
	case FloatLit:
		return n.Value, nil
	case IntLit:
		return float64(n.Value), nil
	case Local:
		return e.locals[n.Name], nil
	case Attr:
		return e.set.Float(e.idx, n.Name), nil
	case Param:
		if n.Name == "dt" {
			return e.dt, nil
		}
		return e.time, nil
	case Binary:
		l, err := e.expr(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := e.expr(n.Right)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		default:
			return l / r, nil
		}
	case Compare:
		l, err := e.expr(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := e.expr(n.Right)
		if err != nil {
			return 0, err
		}
		var ok bool
		switch n.Op {
		case "<":
			ok = l < r
		case "<=":
			ok = l <= r
		case ">":
			ok = l > r
		case ">=":
			ok = l >= r
		case "==":
			ok = l == r
		default:
			ok = l != r
		}
		if ok {
			return 1, nil
		}
		return 0, nil
	case Logical:
		// Both operands evaluate unconditionally: the compiled path hoists
		// field samples out of the expression, so short-circuiting here
		// would make the two modes disagree on sampling errors.
		l, err := e.expr(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := e.expr(n.Right)
		if err != nil {
			return 0, err
		}
		var ok bool
		if n.Op == "&&" {
			ok = l != 0 && r != 0
		} else {
			ok = l != 0 || r != 0
		}
		if ok {
			return 1, nil
		}
		return 0, nil
	case Not:
		v, err := e.expr(n.X)
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case Call:
		fn := mathFuncs[n.Fn]
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := e.expr(a)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return fn.eval(args), nil
	case FieldAt:
		t, err := e.expr(n.Time)
		if err != nil {
			return 0, err
		}
		fx, err := e.expr(n.X)
		if err != nil {
			return 0, err
		}
		fy, err := e.expr(n.Y)
		if err != nil {
			return 0, err
		}
		return e.fields[n.Field].Sample(t, fx, fy)
	}
	panic(fmt.Sprintf("kernel: unvalidated expression %T", x))
}
