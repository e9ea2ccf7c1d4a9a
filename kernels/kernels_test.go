package kernels

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/flightloop/core"
)

const relTolerance = 1e-4

// Helper to generate a batch with components in [lo, hi)
func randomBatch(t testing.TB, n int, lo, hi float32, seed int64) *core.PointBatch {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	pts := make([]core.Point, n)
	for i := range pts {
		for k := 0; k < core.Dim-1; k++ {
			pts[i][k] = lo + r.Float32()*(hi-lo)
		}
		pts[i][core.Dim-1] = 1
	}
	b, err := core.NewPointBatch(pts)
	require.NoError(t, err)
	return b
}

func seededBatch(t testing.TB, n int) *core.PointBatch {
	t.Helper()
	b, err := core.SeedSensorBatch(n)
	require.NoError(t, err)
	return b
}

// asymmetricMatrix exposes orientation mistakes that the symmetric default
// transform would hide.
func asymmetricMatrix() core.Matrix {
	var m core.Matrix
	for i := 0; i < core.Dim; i++ {
		for j := 0; j < core.Dim; j++ {
			m[i][j] = float32(i*core.Dim+j+1) * 0.05
		}
	}
	return m
}

// Go reference for one point in float64
func referencePoint(p core.Point, m *core.Matrix, clamp bool) [core.Dim]float64 {
	var out [core.Dim]float64
	for j := 0; j < core.Dim; j++ {
		for k := 0; k < core.Dim; k++ {
			v := p[k]
			if clamp {
				v = Clamp(v)
			}
			out[j] += float64(v) * float64(m[k][j])
		}
	}
	return out
}

func assertMatchesReference(t *testing.T, v Variant, out *core.OutputBatch, src *core.PointBatch, m *core.Matrix, clamp bool) {
	t.Helper()
	for i := 0; i < src.Len(); i++ {
		want := referencePoint(src.At(i), m, clamp)
		got := out.At(i)
		for j := 0; j < core.Dim; j++ {
			diff := math.Abs(float64(got[j]) - want[j])
			if diff > relTolerance*math.Max(1, math.Abs(want[j])) {
				t.Fatalf("%s: point %d component %d: got %v, want %v", v, i, j, got[j], want[j])
			}
		}
	}
}

func TestVariantsMatchReference(t *testing.T) {
	t.Parallel()
	identity := core.NewTransformMatrix()
	skewed := asymmetricMatrix()

	batches := map[string]*core.PointBatch{
		"seeded":    seededBatch(t, 5000),
		"mixed":     randomBatch(t, 3000, -3, 3, 1),
		"below one": randomBatch(t, 3000, -1, 1, 2),
	}
	matrices := map[string]*core.Matrix{
		"default":    &identity,
		"asymmetric": &skewed,
	}

	for _, v := range DefaultVariants() {
		for bname, src := range batches {
			for mname, m := range matrices {
				v, src, m := v, src, m
				t.Run(v.String()+"/"+bname+"/"+mname, func(t *testing.T) {
					t.Parallel()
					out, err := core.NewOutputBatch(src.Len())
					require.NoError(t, err)
					v.Transform(out, src, m)
					assertMatchesReference(t, v, out, src, m, true)
				})
			}
		}
	}
}

func TestNoClampMatchesOnlyBelowThreshold(t *testing.T) {
	t.Parallel()
	m := core.NewTransformMatrix()

	below := randomBatch(t, 2000, 0, 1, 3)
	out, err := core.NewOutputBatch(below.Len())
	require.NoError(t, err)
	VariantNoClamp.Transform(out, below, &m)
	assertMatchesReference(t, VariantNoClamp, out, below, &m, true)

	above := seededBatch(t, 2000)
	require.Greater(t, above.MaxComponent(), ClampThreshold)
	out, err = core.NewOutputBatch(above.Len())
	require.NoError(t, err)
	VariantNoClamp.Transform(out, above, &m)

	// Matches its own documented mapping...
	assertMatchesReference(t, VariantNoClamp, out, above, &m, false)

	// ...but not the clamped reference once a component exceeds the threshold.
	want := referencePoint(above.At(1999), &m, true)
	got := out.At(1999)
	assert.Greater(t, math.Abs(float64(got[2])-want[2]), relTolerance*math.Abs(want[2]))
}

func TestKernelsOverwriteEveryElement(t *testing.T) {
	t.Parallel()
	m := core.NewTransformMatrix()
	src := seededBatch(t, 10007)
	for _, v := range Variants() {
		out, err := core.NewOutputBatch(src.Len())
		require.NoError(t, err)
		out.Fill(float32(math.NaN()))

		v.Transform(out, src, &m)
		for i := 0; i < out.Len(); i++ {
			for _, c := range out.At(i) {
				if math.IsNaN(float64(c)) {
					t.Fatalf("%s left point %d unwritten", v, i)
				}
			}
		}
	}
}

func TestKernelsAreDeterministic(t *testing.T) {
	t.Parallel()
	m := asymmetricMatrix()
	src := randomBatch(t, 4096, -2, 2, 4)
	for _, v := range Variants() {
		first, err := core.NewOutputBatch(src.Len())
		require.NoError(t, err)
		second, err := core.NewOutputBatch(src.Len())
		require.NoError(t, err)

		v.Transform(first, src, &m)
		second.Fill(7)
		v.Transform(second, src, &m)
		assert.Equal(t, first.Points(), second.Points(), "%s output depends on prior buffer state", v)
	}
}

func TestClampBranchlessAgreesWithClamp(t *testing.T) {
	t.Parallel()
	values := []float32{
		-5, -1, 0, 0.5, 0.999999, 1, math.Nextafter32(1, 2), 1.5, 2, 300,
		float32(math.Inf(1)), float32(math.Inf(-1)),
	}
	for _, x := range values {
		assert.Equal(t, Clamp(x), clampBranchless(x), "x=%v", x)
	}

	r := rand.New(rand.NewSource(5))
	for i := 0; i < 10000; i++ {
		x := r.Float32()*8 - 4
		require.Equal(t, Clamp(x), clampBranchless(x), "x=%v", x)
	}
}

func TestClampBoundary(t *testing.T) {
	t.Parallel()
	assert.Equal(t, float32(1), Clamp(1), "threshold itself is not scaled")
	assert.Equal(t, float32(2)*ClampScale, Clamp(2))
	assert.Equal(t, float32(-7), Clamp(-7))
}

func TestParallelMatchesUnrolled(t *testing.T) {
	m := asymmetricMatrix()
	src := randomBatch(t, 100003, -2, 2, 6)

	want, err := core.NewOutputBatch(src.Len())
	require.NoError(t, err)
	VariantUnrolled.Transform(want, src, &m)

	for _, workers := range []int{1, 2, 3, 8} {
		SetWorkers(workers)
		got, err := core.NewOutputBatch(src.Len())
		require.NoError(t, err)
		VariantParallel.Transform(got, src, &m)
		assert.Equal(t, want.Points(), got.Points(), "workers=%d", workers)
	}
	SetWorkers(0)
}

func TestWorkersOverride(t *testing.T) {
	SetWorkers(3)
	assert.Equal(t, 3, Workers())
	assert.Equal(t, 1, chunkCount(MinChunkPoints-1))
	assert.Equal(t, 3, chunkCount(10*MinChunkPoints))

	SetWorkers(-1)
	assert.Positive(t, Workers())
	SetWorkers(0)
}

func TestMismatchedLengthsPanic(t *testing.T) {
	t.Parallel()
	m := core.NewTransformMatrix()
	for _, v := range Variants() {
		d := v.Descriptor()
		assert.Panics(t, func() {
			d.Fn(make([]core.Point, 3), make([]core.Point, 4), &m)
		}, "%s", v)
	}
}

func TestParseVariant(t *testing.T) {
	t.Parallel()
	for _, v := range Variants() {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.True(t, v.Valid())
	}

	got, err := ParseVariant("  Locality ")
	require.NoError(t, err)
	assert.Equal(t, VariantLocality, got)

	_, err = ParseVariant("simd")
	assert.ErrorIs(t, err, ErrUnknownVariant)

	vs, err := ParseVariants([]string{"branchy", "cached"})
	require.NoError(t, err)
	assert.Equal(t, []Variant{VariantBranchy, VariantCached}, vs)

	_, err = ParseVariants([]string{"branchy", "bogus"})
	assert.ErrorIs(t, err, ErrUnknownVariant)

	assert.False(t, variantCount.Valid())
	assert.Equal(t, "variant(200)", Variant(200).String())
}

func TestDefaultVariantsExcludeDeviations(t *testing.T) {
	t.Parallel()
	defaults := DefaultVariants()
	assert.NotContains(t, defaults, VariantNoClamp)
	assert.Len(t, defaults, len(Variants())-1)
	assert.Equal(t, "clamp-omitted", VariantNoClamp.Descriptor().Deviation.String())
	assert.Equal(t, "none", VariantBranchy.Descriptor().Deviation.String())

	for i, d := range Catalog {
		assert.Equal(t, Variant(i), d.Variant)
		assert.NotEmpty(t, d.Name)
		assert.NotNil(t, d.Fn)
	}
}
