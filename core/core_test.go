package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSensorBatch(t *testing.T) {
	t.Parallel()
	b, err := SeedSensorBatch(1000)
	require.NoError(t, err)
	require.Equal(t, 1000, b.Len())

	assert.Equal(t, Point{0, 0, 0, 1}, b.At(0))

	p := b.At(500)
	assert.InDelta(t, 0.5, p[0], 1e-6)
	assert.InDelta(t, 1.0, p[1], 1e-6)
	assert.InDelta(t, 1.5, p[2], 1e-6)
	assert.Equal(t, float32(1), p[3])

	assert.InDelta(t, 999*0.003, b.MaxComponent(), 1e-4)
}

func TestSeedSensorBatchRejectsBadSizes(t *testing.T) {
	t.Parallel()
	_, err := SeedSensorBatch(0)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = SeedSensorBatch(-3)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = SeedSensorBatch(MaxPoints + 1)
	assert.Error(t, err)

	_, err = NewOutputBatch(0)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestNewPointBatchCopies(t *testing.T) {
	t.Parallel()
	src := []Point{{1, 2, 3, 1}, {4, 5, 6, 1}}
	b, err := NewPointBatch(src)
	require.NoError(t, err)

	src[0][0] = 99
	assert.Equal(t, float32(1), b.At(0)[0], "batch must not alias caller storage")
	assert.Equal(t, float32(6), b.MaxComponent())
}

func TestTransformMatrix(t *testing.T) {
	t.Parallel()
	m := NewTransformMatrix()
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			if i == j {
				assert.Equal(t, float32(1), m[i][j])
				continue
			}
			assert.InDelta(t, 0.1*float64(i+j), m[i][j], 1e-6)
		}
	}

	tr := m.Transpose()
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			assert.Equal(t, m[i][j], tr[j][i])
		}
	}
	assert.Equal(t, m, tr.Transpose())
}

func TestAlignedPoints(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 7, 1000, 100000} {
		pts := AlignedPoints(n)
		assert.Len(t, pts, n)
		assert.Equal(t, n, cap(pts), "capacity must not expose padding")
		assert.True(t, PointsAligned(pts), "n=%d not cache aligned", n)
	}
	assert.Nil(t, AlignedPoints(0))
}

func TestOutputBatchFill(t *testing.T) {
	t.Parallel()
	o, err := NewOutputBatch(16)
	require.NoError(t, err)
	o.Fill(-1)
	for i := 0; i < o.Len(); i++ {
		assert.Equal(t, Point{-1, -1, -1, -1}, o.At(i))
	}
}

func TestLayoutHelpers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 16, PointSize)
	assert.Equal(t, 4, PointsPerCacheLine())
	assert.Equal(t, 64, AlignCacheLine(1))
	assert.Equal(t, 4096, AlignPage(100))
	assert.Equal(t, 64, BatchBytes(3))
	assert.Equal(t, 128, BatchBytes(5))
	assert.Equal(t, 2*BatchBytes(10)+64, Footprint(10))
	assert.Equal(t, uintptr(128), AlignedSize(65))
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		n     int
		parts int
	}{
		{"single", 10, 1},
		{"even", 1000, 4},
		{"uneven", 1001, 3},
		{"more parts than lines", 5, 8},
		{"zero parts", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitChunks(tt.n, tt.parts)
			require.NotEmpty(t, chunks)

			next := 0
			for i, c := range chunks {
				assert.Equal(t, next, c[0], "chunk %d must start where the previous ended", i)
				assert.Greater(t, c[1], c[0])
				if i < len(chunks)-1 {
					assert.Zero(t, c[1]%PointsPerCacheLine(), "interior boundary must sit on a cache line")
				}
				next = c[1]
			}
			assert.Equal(t, tt.n, next)
		})
	}
	assert.Nil(t, SplitChunks(0, 4))
}
