package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/flightloop/core"
)

func TestReferenceAgainstHandComputed(t *testing.T) {
	t.Parallel()
	src, err := core.NewPointBatch([]core.Point{
		{0.5, 0.25, 0, 1},
		{2, 0, 0, 1},
	})
	require.NoError(t, err)
	m := core.NewTransformMatrix()

	ref := Reference(src, &m, true)
	rows, cols := ref.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, core.Dim, cols)

	// Row 0: no component exceeds the threshold.
	// c[0] = 0.5*1 + 0.25*0.1 + 0*0.2 + 1*0.3
	assert.InDelta(t, 0.825, ref.At(0, 0), 1e-6)

	// Row 1: 2 clamps to 1.98.
	// c[0] = 1.98*1 + 1*0.3
	assert.InDelta(t, 2.28, ref.At(1, 0), 1e-6)

	raw := Reference(src, &m, false)
	assert.InDelta(t, 2.3, raw.At(1, 0), 1e-6)
}

func TestVerifyAllVariants(t *testing.T) {
	t.Parallel()
	src, err := core.SeedSensorBatch(20000)
	require.NoError(t, err)
	m := core.NewTransformMatrix()

	findings, err := Verify(src, &m, 0)
	require.NoError(t, err)
	require.Len(t, findings, len(Variants()))

	for _, f := range findings {
		assert.True(t, f.SelfConsistent, "%s is not self-consistent (rel err %g)", f.Variant, f.MaxRelErr)
		switch f.Variant {
		case VariantNoClamp:
			assert.False(t, f.OK)
			assert.True(t, f.Expected, "omitted clamp should be reported as the documented deviation")
		default:
			assert.True(t, f.OK, "%s rel err %g at point %d", f.Variant, f.MaxRelErr, f.WorstIndex)
			assert.False(t, f.Expected)
			assert.LessOrEqual(t, f.MaxRelErr, DefaultTolerance)
		}
	}
}

func TestVerifyNoClampBelowThreshold(t *testing.T) {
	t.Parallel()
	pts := make([]core.Point, 512)
	for i := range pts {
		x := float32(i) / 512
		pts[i] = core.Point{x, x / 2, x / 3, 1}
	}
	src, err := core.NewPointBatch(pts)
	require.NoError(t, err)
	m := core.NewTransformMatrix()

	findings, err := Verify(src, &m, 0, VariantNoClamp)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.True(t, findings[0].OK)
	assert.False(t, findings[0].Expected)
}

func TestVerifyFlagsOrientationMistakes(t *testing.T) {
	t.Parallel()
	src, err := core.SeedSensorBatch(1000)
	require.NoError(t, err)
	m := asymmetricMatrix()

	// Feeding the transposed matrix reproduces an orientation bug: the
	// kernel then effectively multiplies by A^T instead of A.
	wrong := m.Transpose()
	out, err := core.NewOutputBatch(src.Len())
	require.NoError(t, err)
	VariantLocality.Transform(out, src, &wrong)

	_, rel, _ := Compare(out, Reference(src, &m, true))
	assert.Greater(t, rel, DefaultTolerance, "a transposed operand must be detectable")

	findings, err := Verify(src, &m, 0, VariantLocality)
	require.NoError(t, err)
	assert.True(t, findings[0].OK)
}
