package kernel

import (
	"fmt"
	"os"
	"os/exec"
)

// Compiler turns a generated C source file into a loadable shared object.
type Compiler interface {
	Compile(srcPath, libPath, logPath string) error
	Available() bool
}

// CCompiler drives a system C compiler through its command line. The zero
// configuration compiles with cc -shared -fPIC -O2, honouring $CC.
type CCompiler struct {
	Cmd   string
	Flags []string
}

var defaultFlags = []string{"-shared", "-fPIC", "-O2", "-std=c99"}

// NewCCompiler builds a CCompiler, filling empty settings from $CC and the
// default flag set.
func NewCCompiler(cmd string, flags ...string) *CCompiler {
	if cmd == "" {
		cmd = os.Getenv("CC")
	}
	if cmd == "" {
		cmd = "cc"
	}
	if len(flags) == 0 {
		flags = defaultFlags
	}
	return &CCompiler{Cmd: cmd, Flags: flags}
}

// Available reports whether the compiler binary resolves on PATH.
func (c *CCompiler) Available() bool {
	_, err := exec.LookPath(c.Cmd)
	return err == nil
}

// Compile runs the compiler over srcPath producing libPath. The full
// toolchain output is written to logPath whether or not the build succeeds;
// failures surface as BuildErrors pointing at the log.
func (c *CCompiler) Compile(srcPath, libPath, logPath string) error {
	args := append(append([]string{}, c.Flags...), "-o", libPath, srcPath, "-lm")
	out, err := exec.Command(c.Cmd, args...).CombinedOutput()

	logBody := fmt.Sprintf("%s %v\n\n%s", c.Cmd, args, out)
	if werr := os.WriteFile(logPath, []byte(logBody), 0o644); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return &BuildError{LogPath: logPath, Err: err}
	}
	return nil
}
