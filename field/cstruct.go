package field

import "unsafe"

// CStruct is the fixed-layout descriptor handed across the FFI boundary.
// Generated C reads these fields by position and type, so the declaration
// order is an ABI contract:
//
//	{int32 xdim, int32 ydim, int32 tdim, int32 tidx,
//	 float32* lon, float32* lat, float64* time, float32* data}
//
// Data points at the field's flattened [time][lat][lon] array. The compiled
// particle loop mutates TIdx once per timestep, which is why descriptors are
// rebuilt per execution rather than cached. A descriptor is a view: it stays
// valid only as long as the owning Field's arrays are alive and unmoved.
type CStruct struct {
	XDim int32
	YDim int32
	TDim int32
	TIdx int32
	Lon  unsafe.Pointer
	Lat  unsafe.Pointer
	Time unsafe.Pointer
	Data unsafe.Pointer
}

// CStruct projects the field's dimensions and array pointers into a fresh
// descriptor with TIdx zeroed.
func (f *Field) CStruct() *CStruct {
	return &CStruct{
		XDim: int32(len(f.Lon)),
		YDim: int32(len(f.Lat)),
		TDim: int32(len(f.Time)),
		TIdx: 0,
		Lon:  unsafe.Pointer(&f.Lon[0]),
		Lat:  unsafe.Pointer(&f.Lat[0]),
		Time: unsafe.Pointer(&f.Time[0]),
		Data: unsafe.Pointer(&f.data[0]),
	}
}
