package kernel

import (
	"fmt"
	"strconv"
	"strings"
)

// generate emits a self-contained C translation unit for the kernel: the
// particle record and field descriptor typedefs, the sampling helpers, the
// kernel function itself, and the particle_loop entry point. The sampling
// helpers compute the same float64 arithmetic as the field package, so the
// two execution paths agree to rounding.
func (k *Kernel) generate() (string, error) {
	g := &cgen{k: k}
	var b strings.Builder

	b.WriteString("#include <math.h>\n\n")
	// Strict ISO math.h does not define M_PI, and the polar coefficient
	// needs it regardless of which -std the compiler runs under.
	b.WriteString("#ifndef M_PI\n#define M_PI 3.14159265358979323846\n#endif\n\n")
	b.WriteString("#define ERR_OUT_OF_RANGE 1\n")
	b.WriteString("#define ERR_DEGENERATE 2\n\n")

	b.WriteString("typedef struct {\n")
	b.WriteString("    int xdim, ydim, tdim, tidx;\n")
	b.WriteString("    float *lon;\n")
	b.WriteString("    float *lat;\n")
	b.WriteString("    double *time;\n")
	b.WriteString("    float *data;\n")
	b.WriteString("} CField;\n\n")

	b.WriteString("typedef struct {\n")
	for _, v := range k.PType.Vars {
		fmt.Fprintf(&b, "    %s %s;\n", v.Type.CType(), v.Name)
	}
	b.WriteString("} Particle;\n\n")

	b.WriteString(cHelpers)

	names := k.fieldNames()
	params := make([]string, 0, len(names)+3)
	params = append(params, "Particle *p", "double time", "double dt")
	for _, n := range names {
		params = append(params, "CField *"+cname(n))
	}
	fmt.Fprintf(&b, "static int kernel_%s(%s)\n{\n", cident(k.Name), strings.Join(params, ", "))
	b.WriteString("    int err;\n    (void)err;\n")
	for _, l := range k.Locals {
		fmt.Fprintf(&b, "    double %s = 0.0;\n", l)
	}
	g.w = &b
	g.indent = 1
	for _, s := range k.Body {
		if err := g.stmt(s); err != nil {
			return "", err
		}
	}
	b.WriteString("    return 0;\n}\n\n")

	b.WriteString("void particle_loop(int n, Particle *particles, int timesteps, double t, float dt, CField **fields)\n{\n")
	for i, n := range names {
		fmt.Fprintf(&b, "    CField *%s = fields[%d];\n", cname(n), i)
	}
	b.WriteString("    for (int s = 0; s < timesteps; s++) {\n")
	b.WriteString("        double time = t + (double)s * (double)dt;\n")
	b.WriteString("        for (int i = 0; i < n; i++) {\n")
	b.WriteString("            Particle *p = &particles[i];\n")
	b.WriteString("            if (p->state != 0) continue;\n")
	args := make([]string, 0, len(names)+3)
	args = append(args, "p", "time", "(double)dt")
	for _, n := range names {
		args = append(args, cname(n))
	}
	fmt.Fprintf(&b, "            int err = kernel_%s(%s);\n", cident(k.Name), strings.Join(args, ", "))
	b.WriteString("            if (err) p->state = err;\n")
	b.WriteString("        }\n    }\n}\n")

	return b.String(), nil
}

// cHelpers is the fixed runtime emitted into every translation unit. The
// index searches start from the last hit cached on the particle or the
// descriptor and walk to the bracketing interval, landing on the same cell
// the binary search on the Go side picks.
const cHelpers = `static int search_cell(float *coords, int n, double v, int *hint)
{
    if (v < (double)coords[0] || v > (double)coords[n-1])
        return ERR_OUT_OF_RANGE;
    int i = *hint;
    if (i < 0) i = 0;
    if (i > n-2) i = n-2;
    while (i > 0 && v < (double)coords[i]) i--;
    while (i < n-2 && v >= (double)coords[i+1]) i++;
    *hint = i;
    return 0;
}

static int time_index(CField *f, double t)
{
    int n = f->tdim;
    if (t > f->time[n-1]) return -1;
    int i = f->tidx;
    if (i < 0 || i > n-1) i = 0;
    while (i > 0 && f->time[i-1] >= t) i--;
    while (i < n-1 && f->time[i] < t) i++;
    f->tidx = i;
    return i;
}

static int spatial_interp(CField *f, int ti, double y, double x, int *xi, int *yi, double *out)
{
    int err;
    err = search_cell(f->lon, f->xdim, x, xi);
    if (err) return err;
    err = search_cell(f->lat, f->ydim, y, yi);
    if (err) return err;
    int i = *xi, j = *yi;
    double x0 = (double)f->lon[i], x1 = (double)f->lon[i+1];
    double y0 = (double)f->lat[j], y1 = (double)f->lat[j+1];
    float *d = f->data + (long)ti * f->ydim * f->xdim;
    double sw = (double)d[j*f->xdim + i];
    double se = (double)d[j*f->xdim + i + 1];
    double nw = (double)d[(j+1)*f->xdim + i];
    double ne = (double)d[(j+1)*f->xdim + i + 1];
    *out = (sw*(x1-x)*(y1-y) +
            se*(x-x0)*(y1-y) +
            nw*(x1-x)*(y-y0) +
            ne*(x-x0)*(y-y0)) /
           ((x1-x0)*(y1-y0));
    return 0;
}

static int field_sample(CField *f, double t, double x, double y, int *xi, int *yi, double *out)
{
    int ti = time_index(f, t);
    int err;
    if (ti > 0) {
        double t0 = f->time[ti-1], t1 = f->time[ti];
        if (t1 == t0) return ERR_DEGENERATE;
        double v0, v1;
        err = spatial_interp(f, ti-1, y, x, xi, yi, &v0);
        if (err) return err;
        err = spatial_interp(f, ti, y, x, xi, yi, &v1);
        if (err) return err;
        *out = v0 + (v1 - v0) * ((t - t0) / (t1 - t0));
    } else {
        int frame = (ti == -1) ? f->tdim - 1 : ti;
        err = spatial_interp(f, frame, y, x, xi, yi, out);
        if (err) return err;
    }
    return 0;
}

`

// cgen tracks generation state for one kernel body. Field samples are
// hoisted into numbered temporaries ahead of the statement that uses them
// because sampling can fail; hoisting is post-order, so nested samples land
// before the samples whose arguments they feed.
type cgen struct {
	k      *Kernel
	w      *strings.Builder
	indent int
	tmp    int
}

func (g *cgen) line(format string, args ...any) {
	g.w.WriteString(strings.Repeat("    ", g.indent))
	fmt.Fprintf(g.w, format, args...)
	g.w.WriteByte('\n')
}

func (g *cgen) stmt(s Stmt) error {
	switch n := s.(type) {
	case Assign:
		val, err := g.expr(n.Value)
		if err != nil {
			return err
		}
		switch t := n.Target.(type) {
		case Local:
			g.line("%s = %s;", t.Name, val)
		case Attr:
			v, _ := g.k.PType.Lookup(t.Name)
			g.line("p->%s = (%s)(%s);", t.Name, v.Type.CType(), val)
		}
		return nil
	case If:
		cond, err := g.expr(n.Cond)
		if err != nil {
			return err
		}
		g.line("if ((%s) != 0.0) {", cond)
		g.indent++
		for _, s := range n.Then {
			if err := g.stmt(s); err != nil {
				return err
			}
		}
		g.indent--
		if len(n.Else) > 0 {
			g.line("} else {")
			g.indent++
			for _, s := range n.Else {
				if err := g.stmt(s); err != nil {
					return err
				}
			}
			g.indent--
		}
		g.line("}")
		return nil
	}
	return &TranslationError{Node: fmt.Sprintf("%T", s), Detail: "unsupported statement kind"}
}

func (g *cgen) expr(x Expr) (string, error) {
	switch n := x.(type) {
	case FloatLit:
		return cfloat(n.Value), nil
	case IntLit:
		return fmt.Sprintf("%d.0", n.Value), nil
	case Local:
		return n.Name, nil
	case Attr:
		return fmt.Sprintf("((double)p->%s)", n.Name), nil
	case Param:
		return n.Name, nil
	case Binary:
		l, err := g.expr(n.Left)
		if err != nil {
			return "", err
		}
		r, err := g.expr(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, n.Op, r), nil
	case Compare:
		l, err := g.expr(n.Left)
		if err != nil {
			return "", err
		}
		r, err := g.expr(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((%s %s %s) ? 1.0 : 0.0)", l, n.Op, r), nil
	case Logical:
		l, err := g.expr(n.Left)
		if err != nil {
			return "", err
		}
		r, err := g.expr(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((((%s) != 0.0) %s ((%s) != 0.0)) ? 1.0 : 0.0)", l, n.Op, r), nil
	case Not:
		v, err := g.expr(n.X)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(((%s) == 0.0) ? 1.0 : 0.0)", v), nil
	case Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			v, err := g.expr(a)
			if err != nil {
				return "", err
			}
			args[i] = v
		}
		return fmt.Sprintf("%s(%s)", n.Fn, strings.Join(args, ", ")), nil
	case FieldAt:
		t, err := g.expr(n.Time)
		if err != nil {
			return "", err
		}
		fx, err := g.expr(n.X)
		if err != nil {
			return "", err
		}
		fy, err := g.expr(n.Y)
		if err != nil {
			return "", err
		}
		tmp := fmt.Sprintf("s%d", g.tmp)
		g.tmp++
		g.line("double %s;", tmp)
		g.line("err = field_sample(%s, %s, %s, %s, &p->xi, &p->yi, &%s);",
			cname(n.Field), t, fx, fy, tmp)
		g.line("if (err) return err;")
		coeff := g.k.Fields[n.Field].Conv.CodeToTarget(fx, fy)
		if coeff != "1.0" {
			g.line("%s = %s * %s;", tmp, tmp, coeff)
		}
		return tmp, nil
	}
	return "", &TranslationError{Node: describe(x), Detail: "unsupported expression kind"}
}

// cfloat formats a literal so the C compiler reads back the exact double.
func cfloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// cname is the C variable holding a field's descriptor pointer.
func cname(field string) string {
	return "f_" + cident(field)
}

// cident maps an arbitrary name onto a C identifier.
func cident(name string) string {
	var b strings.Builder
	for i, r := range name {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if ok {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
