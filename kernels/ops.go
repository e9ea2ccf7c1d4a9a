// Package kernels implements the sensor-point transform used by the simulated
// flight-control loop.
//
// Every kernel computes, for each point p of a batch,
//
//	c[j] = sum over k of f(p[k]) * A[k][j]
//
// where f is the clamp rule: a component above 1.0 is scaled by 0.99 before
// it is multiplied. The variants in this package compute the same mapping and
// differ only in how they touch memory and branch:
//   - branchy: conditional clamp, operands reloaded inside the reduction
//   - branchless: clamp selected from a two-entry table by the sign bit
//   - no-clamp: clamp omitted (documented deviation, opt-in only)
//   - cached: each point loaded and clamped once, reduction over locals
//   - unrolled: reduction over the four temporaries written out in full
//   - locality: matrix transposed once so the inner loop walks a row
//   - parallel: unrolled kernel fanned out over disjoint cache-line chunks
//
// Variants are selected by tag through the Catalog, the same way for every
// caller; no caller holds a bare function pointer.
package kernels

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sbl8/flightloop/core"
)

// KernelFn overwrites dst with the transform of src through m.
// len(dst) must equal len(src).
type KernelFn func(dst, src []core.Point, m *core.Matrix)

// Variant tags one kernel implementation.
type Variant uint8

// Kernel variants
const (
	VariantBranchy Variant = iota
	VariantBranchless
	VariantNoClamp
	VariantCached
	VariantUnrolled
	VariantLocality
	VariantParallel

	variantCount
)

// Deviation records an intentional difference from the reference mapping.
type Deviation uint8

const (
	DeviationNone Deviation = iota
	// DeviationClampOmitted: the clamp rule is skipped, so results match the
	// reference only when no input component exceeds ClampThreshold.
	DeviationClampOmitted
)

func (d Deviation) String() string {
	switch d {
	case DeviationNone:
		return "none"
	case DeviationClampOmitted:
		return "clamp-omitted"
	default:
		return fmt.Sprintf("deviation(%d)", uint8(d))
	}
}

// Clamp rule constants
const (
	ClampThreshold float32 = 1.0
	ClampScale     float32 = 0.99
)

// ErrUnknownVariant is returned by ParseVariant for names not in the Catalog.
var ErrUnknownVariant = errors.New("unknown kernel variant")

// Descriptor describes one catalog entry.
type Descriptor struct {
	Variant   Variant
	Name      string
	Summary   string
	Fn        KernelFn
	Deviation Deviation
}

// Catalog maps variant tags to implementations.
var Catalog = [variantCount]Descriptor{
	VariantBranchy: {
		Variant: VariantBranchy,
		Name:    "branchy",
		Summary: "conditional clamp, operands reloaded per product",
		Fn:      transformBranchy,
	},
	VariantBranchless: {
		Variant: VariantBranchless,
		Name:    "branchless",
		Summary: "clamp via sign-bit table select",
		Fn:      transformBranchless,
	},
	VariantNoClamp: {
		Variant:   VariantNoClamp,
		Name:      "no-clamp",
		Summary:   "clamp omitted",
		Fn:        transformNoClamp,
		Deviation: DeviationClampOmitted,
	},
	VariantCached: {
		Variant: VariantCached,
		Name:    "cached",
		Summary: "point loaded and clamped once",
		Fn:      transformCached,
	},
	VariantUnrolled: {
		Variant: VariantUnrolled,
		Name:    "unrolled",
		Summary: "inner reduction fully unrolled",
		Fn:      transformUnrolled,
	},
	VariantLocality: {
		Variant: VariantLocality,
		Name:    "locality",
		Summary: "pre-transposed matrix, row-contiguous inner loop",
		Fn:      transformLocality,
	},
	VariantParallel: {
		Variant: VariantParallel,
		Name:    "parallel",
		Summary: "unrolled kernel over cache-line aligned chunks",
		Fn:      transformParallel,
	},
}

// String returns the catalog name of v.
func (v Variant) String() string {
	if v < variantCount {
		return Catalog[v].Name
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// Descriptor returns the catalog entry for v.
func (v Variant) Descriptor() Descriptor {
	return Catalog[v]
}

// Valid reports whether v names a catalog entry.
func (v Variant) Valid() bool {
	return v < variantCount
}

// Transform runs variant v over the batches.
func (v Variant) Transform(dst *core.OutputBatch, src *core.PointBatch, m *core.Matrix) {
	Catalog[v].Fn(dst.Points(), src.Points(), m)
}

// Variants returns every catalog entry in tag order.
func Variants() []Variant {
	vs := make([]Variant, 0, variantCount)
	for v := Variant(0); v < variantCount; v++ {
		vs = append(vs, v)
	}
	return vs
}

// DefaultVariants returns the variants that implement the reference mapping
// exactly. Variants carrying a deviation must be requested by name.
func DefaultVariants() []Variant {
	vs := make([]Variant, 0, variantCount)
	for v := Variant(0); v < variantCount; v++ {
		if Catalog[v].Deviation == DeviationNone {
			vs = append(vs, v)
		}
	}
	return vs
}

// ParseVariant resolves a catalog name. Matching ignores case and surrounding
// whitespace.
func ParseVariant(name string) (Variant, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for v := Variant(0); v < variantCount; v++ {
		if Catalog[v].Name == want {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

// ParseVariants resolves a list of names, rejecting the first unknown one.
func ParseVariants(names []string) ([]Variant, error) {
	vs := make([]Variant, 0, len(names))
	for _, n := range names {
		v, err := ParseVariant(n)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// Clamp applies the clamp rule to one component.
func Clamp(x float32) float32 {
	if x > ClampThreshold {
		return x * ClampScale
	}
	return x
}

var clampScales = [2]float32{1, ClampScale}

// clampBranchless selects the scale from the sign bit of threshold-x, which is
// set exactly when x > threshold.
func clampBranchless(x float32) float32 {
	sel := math.Float32bits(ClampThreshold-x) >> 31
	return x * clampScales[sel&1]
}

func mustMatch(dst, src []core.Point) {
	if len(dst) != len(src) {
		panic("kernels: output length mismatch")
	}
}

// -------- Variants ----------

func transformBranchy(dst, src []core.Point, m *core.Matrix) {
	mustMatch(dst, src)
	for i := range src {
		for j := 0; j < core.Dim; j++ {
			dst[i][j] = 0
			for k := 0; k < core.Dim; k++ {
				temp := src[i][k]
				if temp > ClampThreshold {
					temp *= ClampScale
				}
				dst[i][j] += temp * m[k][j]
			}
		}
	}
}

func transformBranchless(dst, src []core.Point, m *core.Matrix) {
	mustMatch(dst, src)
	for i := range src {
		for j := 0; j < core.Dim; j++ {
			dst[i][j] = 0
			for k := 0; k < core.Dim; k++ {
				dst[i][j] += clampBranchless(src[i][k]) * m[k][j]
			}
		}
	}
}

func transformNoClamp(dst, src []core.Point, m *core.Matrix) {
	mustMatch(dst, src)
	for i := range src {
		for j := 0; j < core.Dim; j++ {
			dst[i][j] = 0
			for k := 0; k < core.Dim; k++ {
				dst[i][j] += src[i][k] * m[k][j]
			}
		}
	}
}

func transformCached(dst, src []core.Point, m *core.Matrix) {
	mustMatch(dst, src)
	a := *m
	for i := range src {
		p := src[i]
		var t core.Point
		for k := 0; k < core.Dim; k++ {
			t[k] = Clamp(p[k])
		}
		out := &dst[i]
		for j := 0; j < core.Dim; j++ {
			var sum float32
			for k := 0; k < core.Dim; k++ {
				sum += t[k] * a[k][j]
			}
			out[j] = sum
		}
	}
}

func transformUnrolled(dst, src []core.Point, m *core.Matrix) {
	mustMatch(dst, src)
	a := *m
	for i := range src {
		p := &src[i]
		t0, t1, t2, t3 := p[0], p[1], p[2], p[3]
		if t0 > ClampThreshold {
			t0 *= ClampScale
		}
		if t1 > ClampThreshold {
			t1 *= ClampScale
		}
		if t2 > ClampThreshold {
			t2 *= ClampScale
		}
		if t3 > ClampThreshold {
			t3 *= ClampScale
		}
		dst[i] = core.Point{
			t0*a[0][0] + t1*a[1][0] + t2*a[2][0] + t3*a[3][0],
			t0*a[0][1] + t1*a[1][1] + t2*a[2][1] + t3*a[3][1],
			t0*a[0][2] + t1*a[1][2] + t2*a[2][2] + t3*a[3][2],
			t0*a[0][3] + t1*a[1][3] + t2*a[2][3] + t3*a[3][3],
		}
	}
}

// transformLocality multiplies by the transpose indexed [j][k], which is the
// same element as A[k][j]; only the traversal order changes.
func transformLocality(dst, src []core.Point, m *core.Matrix) {
	mustMatch(dst, src)
	at := m.Transpose()
	for i := range src {
		p := src[i]
		var t core.Point
		for k := 0; k < core.Dim; k++ {
			t[k] = Clamp(p[k])
		}
		for j := 0; j < core.Dim; j++ {
			row := &at[j]
			var sum float32
			for k := 0; k < core.Dim; k++ {
				sum += t[k] * row[k]
			}
			dst[i][j] = sum
		}
	}
}
