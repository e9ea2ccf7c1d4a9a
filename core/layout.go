package core

import "unsafe"

// Memory layout constants for batch sizing
const (
	PageSize  = 4096
	PointSize = int(unsafe.Sizeof(Point{}))
)

// AlignSize rounds size up to the specified alignment boundary
func AlignSize(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}

// AlignCacheLine rounds size up to cache line boundary
func AlignCacheLine(size int) int {
	return AlignSize(size, CacheLineSize)
}

// AlignPage rounds size up to page boundary
func AlignPage(size int) int {
	return AlignSize(size, PageSize)
}

// PointsPerCacheLine is how many points fit in one cache line.
func PointsPerCacheLine() int {
	per := CacheLineSize / PointSize
	if per < 1 {
		return 1
	}
	return per
}

// BatchBytes is the footprint of n points rounded up to whole cache lines.
func BatchBytes(n int) int {
	return AlignCacheLine(n * PointSize)
}

// Footprint reports the memory a run needs: input batch, output batch and the
// transform matrix.
func Footprint(n int) int {
	return 2*BatchBytes(n) + AlignCacheLine(int(unsafe.Sizeof(Matrix{})))
}

// SplitChunks partitions n points into at most parts contiguous [start, end)
// ranges. Boundaries fall on cache lines so that neighbouring chunks never
// write the same line of an output batch.
func SplitChunks(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	line := PointsPerCacheLine()
	size := (n + parts - 1) / parts
	size = AlignSize(size, line)

	chunks := make([][2]int, 0, parts)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}
