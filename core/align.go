package core

import "unsafe"

const (
	// CacheLineSize is a common cache line size, typically 64 bytes.
	// Adjust if targeting specific architectures with different cache line sizes.
	CacheLineSize = 64
)

// IsAligned checks if a pointer (represented as a uintptr) is aligned to a cache line boundary.
func IsAligned(addr uintptr) bool {
	return addr%CacheLineSize == 0
}

// AlignedSize calculates the size rounded up to the nearest cache line multiple.
func AlignedSize(size uintptr) uintptr {
	return (size + uintptr(CacheLineSize-1)) & ^uintptr(CacheLineSize-1)
}

// AlignedPoints allocates n points whose backing array starts on a cache line.
// Go only guarantees element alignment, so we over-allocate by one cache line
// worth of points and slice from the first aligned element.
func AlignedPoints(n int) []Point {
	if n == 0 {
		return nil
	}
	pad := CacheLineSize / PointSize
	buf := make([]Point, n+pad)

	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := 0
	if mod := ptr % CacheLineSize; mod != 0 {
		if mod%uintptr(PointSize) != 0 {
			// Element alignment rules out a cache-line start; keep the slice usable.
			return buf[:n:n]
		}
		offset = int((CacheLineSize - mod) / uintptr(PointSize))
	}
	return buf[offset : offset+n : offset+n]
}

// PointsAligned reports whether the first point of pts sits on a cache line.
func PointsAligned(pts []Point) bool {
	if len(pts) == 0 {
		return true
	}
	return IsAligned(uintptr(unsafe.Pointer(&pts[0])))
}
