package kernel

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/pthm-cable/drift/field"
	"github.com/pthm-cable/drift/particle"
)

// Execute advances every active particle in set through the kernel for
// timesteps passes of dt seconds starting at startTime. The compiled entry
// runs when Build has bound one; otherwise the AST is interpreted. Both
// paths carry dt at float32 precision, matching the native calling
// convention, and both record per-particle failures in the state attribute.
//
// Execute returns a non-nil error when any particle ended the run in an
// error state, identifying the first such particle. The remaining particles
// keep their advanced positions either way.
func (k *Kernel) Execute(set *particle.Set, timesteps int, startTime, dt float64) error {
	if set.Type() != k.PType {
		return fmt.Errorf("kernel %q: set has type %q, kernel runs over %q",
			k.Name, set.Type().Name, k.PType.Name)
	}
	dt32 := float32(dt)
	if k.entry != nil {
		k.runCompiled(set, timesteps, startTime, dt32)
	} else {
		k.runInterpreted(set, timesteps, startTime, float64(dt32))
	}
	return k.scanStates(set)
}

func (k *Kernel) runCompiled(set *particle.Set, timesteps int, startTime float64, dt float32) {
	if set.Len() == 0 {
		return
	}
	descs := make([]*field.CStruct, len(k.fieldOrder))
	for i, name := range k.fieldOrder {
		descs[i] = k.Fields[name].CStruct()
	}
	var fieldsPtr unsafe.Pointer
	if len(descs) > 0 {
		fieldsPtr = unsafe.Pointer(&descs[0])
	}
	k.entry(int32(set.Len()), set.Buffer(), int32(timesteps), startTime, dt, fieldsPtr)
	runtime.KeepAlive(descs)
	runtime.KeepAlive(set)
	runtime.KeepAlive(k.Fields)
}

// scanStates reports the first particle left in an error state.
func (k *Kernel) scanStates(set *particle.Set) error {
	first := -1
	errored := 0
	for i := 0; i < set.Len(); i++ {
		if s := set.State(i); s > 0 {
			errored++
			if first < 0 {
				first = i
			}
		}
	}
	if errored == 0 {
		return nil
	}
	var cause error
	switch set.State(first) {
	case particle.StateErrDegenerate:
		cause = field.ErrDegenerateInterval
	default:
		cause = field.ErrOutOfRange
	}
	return fmt.Errorf("kernel %q: %d particle(s) errored, first at index %d (lon=%g lat=%g): %w",
		k.Name, errored, first, set.Lon(first), set.Lat(first), cause)
}
