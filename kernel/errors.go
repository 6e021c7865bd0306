package kernel

import "fmt"

// TranslationError reports an AST construct outside the supported subset.
// Translation errors are fatal to kernel construction and never fall back
// to partial generation.
type TranslationError struct {
	Node   string // node description, e.g. "Binary(%)"
	Detail string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("kernel: cannot translate %s: %s", e.Node, e.Detail)
}

// BuildError reports a failed external compile step. The build log at
// LogPath holds the toolchain output.
type BuildError struct {
	LogPath string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("kernel: compilation failed (see %s): %v", e.LogPath, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// LinkError reports an artifact that loaded but whose entry symbol is
// missing or incompatible. A LinkError after a successful build points at a
// toolchain or ABI mismatch, not at the kernel source.
type LinkError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("kernel: cannot resolve %q in %s: %v", e.Symbol, e.Path, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
