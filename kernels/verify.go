package kernels

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sbl8/flightloop/core"
)

// DefaultTolerance is the relative error a variant may show against the
// float64 reference before it is reported as a mismatch.
const DefaultTolerance = 1e-4

// Finding is the outcome of checking one variant against the reference.
type Finding struct {
	Variant    Variant
	Deviation  Deviation
	MaxAbsErr  float64
	MaxRelErr  float64
	WorstIndex int

	// OK: output matches the reference mapping within tolerance.
	OK bool
	// SelfConsistent: output matches the mapping the variant documents, which
	// differs from the reference only for deviating variants.
	SelfConsistent bool
	// Expected: the variant mismatches, but only because of its documented
	// deviation and inputs that trigger it.
	Expected bool
}

// Reference computes the transform in float64 with gonum. When clamp is set the
// clamp rule is applied in float32 first so the reference sees the same
// operands the kernels do.
func Reference(src *core.PointBatch, m *core.Matrix, clamp bool) *mat.Dense {
	n := src.Len()
	b := mat.NewDense(n, core.Dim, nil)
	pts := src.Points()
	for i := range pts {
		for k := 0; k < core.Dim; k++ {
			v := pts[i][k]
			if clamp {
				v = Clamp(v)
			}
			b.Set(i, k, float64(v))
		}
	}

	a := mat.NewDense(core.Dim, core.Dim, nil)
	for i := 0; i < core.Dim; i++ {
		for j := 0; j < core.Dim; j++ {
			a.Set(i, j, float64(m[i][j]))
		}
	}

	var c mat.Dense
	c.Mul(b, a)
	return &c
}

// Compare returns the largest absolute and relative errors of got against
// want, and the point index where the relative error peaked. Relative error is
// taken against max(1, |want|) so values near zero do not blow it up.
func Compare(got *core.OutputBatch, want mat.Matrix) (maxAbs, maxRel float64, worst int) {
	pts := got.Points()
	for i := range pts {
		for j := 0; j < core.Dim; j++ {
			w := want.At(i, j)
			diff := math.Abs(float64(pts[i][j]) - w)
			rel := diff / math.Max(1, math.Abs(w))
			if diff > maxAbs {
				maxAbs = diff
			}
			if rel > maxRel {
				maxRel = rel
				worst = i
			}
		}
	}
	return maxAbs, maxRel, worst
}

// Verify runs each variant over src and checks it against the reference
// mapping. A zero or negative tolerance selects DefaultTolerance.
func Verify(src *core.PointBatch, m *core.Matrix, tolerance float64, variants ...Variant) ([]Finding, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if len(variants) == 0 {
		variants = Variants()
	}

	out, err := core.NewOutputBatch(src.Len())
	if err != nil {
		return nil, err
	}

	clamped := Reference(src, m, true)
	var raw *mat.Dense
	triggers := src.MaxComponent() > ClampThreshold

	findings := make([]Finding, 0, len(variants))
	for _, v := range variants {
		d := v.Descriptor()
		d.Fn(out.Points(), src.Points(), m)

		f := Finding{Variant: v, Deviation: d.Deviation}
		f.MaxAbsErr, f.MaxRelErr, f.WorstIndex = Compare(out, clamped)
		f.OK = f.MaxRelErr <= tolerance

		switch d.Deviation {
		case DeviationClampOmitted:
			if raw == nil {
				raw = Reference(src, m, false)
			}
			_, selfRel, _ := Compare(out, raw)
			f.SelfConsistent = selfRel <= tolerance
			f.Expected = !f.OK && triggers && f.SelfConsistent
		default:
			f.SelfConsistent = f.OK
		}
		findings = append(findings, f)
	}
	return findings, nil
}
