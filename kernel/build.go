package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/ebitengine/purego"
)

// entrySymbol is the exported loop in every compiled kernel artifact.
const entrySymbol = "particle_loop"

// loopFunc mirrors the entry's C signature:
//
//	void particle_loop(int n, Particle *p, int timesteps,
//	                   double time, float dt, CField **fields);
type loopFunc func(n int32, particles unsafe.Pointer, timesteps int32, t float64, dt float32, fields unsafe.Pointer)

// Build translates the kernel to C, compiles it into a shared object under
// cacheDir, and binds the entry point. Artifacts are content-addressed by
// CacheKey, so a second Build of an identical kernel reuses the existing
// library and skips the compile.
func (k *Kernel) Build(cacheDir string, cc Compiler) error {
	if !k.PType.JITCapable() {
		return fmt.Errorf("kernel %q: particle type %q does not allow compiled execution", k.Name, k.PType.Name)
	}
	src, err := k.generate()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("kernel %q: create cache dir: %w", k.Name, err)
	}

	key := k.CacheKey()
	k.ccode = src
	k.srcPath = filepath.Join(cacheDir, key+".c")
	k.libPath = filepath.Join(cacheDir, key+".so")
	k.logPath = filepath.Join(cacheDir, key+".log")

	if _, statErr := os.Stat(k.libPath); statErr != nil {
		if err := os.WriteFile(k.srcPath, []byte(src), 0o644); err != nil {
			return fmt.Errorf("kernel %q: write source: %w", k.Name, err)
		}
		if err := cc.Compile(k.srcPath, k.libPath, k.logPath); err != nil {
			return err
		}
	}
	return k.load()
}

// load opens the compiled artifact and resolves the entry point.
func (k *Kernel) load() error {
	lib, err := purego.Dlopen(k.libPath, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return &LinkError{Path: k.libPath, Symbol: entrySymbol, Err: err}
	}
	if _, err := purego.Dlsym(lib, entrySymbol); err != nil {
		return &LinkError{Path: k.libPath, Symbol: entrySymbol, Err: err}
	}
	purego.RegisterLibFunc(&k.entry, lib, entrySymbol)
	k.fieldOrder = k.fieldNames()
	return nil
}

// Compiled reports whether Build has bound a native entry point.
func (k *Kernel) Compiled() bool { return k.entry != nil }

// CSource returns the generated C for inspection; empty before Build.
func (k *Kernel) CSource() string { return k.ccode }

// LibPath returns the compiled artifact's path; empty before Build.
func (k *Kernel) LibPath() string { return k.libPath }
