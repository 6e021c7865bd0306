package field

import (
	"testing"
	"unsafe"
)

// The descriptor layout is an ABI contract with generated C; pin the byte
// offsets the C struct declaration implies.
func TestCStructLayout(t *testing.T) {
	var s CStruct

	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"XDim", unsafe.Offsetof(s.XDim), 0},
		{"YDim", unsafe.Offsetof(s.YDim), 4},
		{"TDim", unsafe.Offsetof(s.TDim), 8},
		{"TIdx", unsafe.Offsetof(s.TIdx), 12},
		{"Lon", unsafe.Offsetof(s.Lon), 16},
		{"Lat", unsafe.Offsetof(s.Lat), 16 + unsafe.Sizeof(uintptr(0))},
		{"Time", unsafe.Offsetof(s.Time), 16 + 2*unsafe.Sizeof(uintptr(0))},
		{"Data", unsafe.Offsetof(s.Data), 16 + 3*unsafe.Sizeof(uintptr(0))},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("offset of %s = %d, want %d", o.name, o.got, o.want)
		}
	}
}

func TestCStructProjection(t *testing.T) {
	f := testField(t)
	d := f.CStruct()

	if d.XDim != 3 || d.YDim != 3 || d.TDim != 2 {
		t.Errorf("dims = %dx%dx%d, want 3x3x2", d.XDim, d.YDim, d.TDim)
	}
	if d.TIdx != 0 {
		t.Errorf("TIdx = %d, want 0", d.TIdx)
	}
	if d.Lon != unsafe.Pointer(&f.Lon[0]) {
		t.Error("Lon pointer does not alias the coordinate array")
	}
	if d.Data != unsafe.Pointer(&f.data[0]) {
		t.Error("Data pointer does not alias the backing array")
	}

	// Each call builds a fresh descriptor.
	d.TIdx = 5
	if f.CStruct().TIdx != 0 {
		t.Error("descriptors must not share TIdx state")
	}
}
