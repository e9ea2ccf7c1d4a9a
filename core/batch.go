// Package core provides the data model shared by the transform kernels and the
// cycle harness.
//
// A control-loop run works over three buffers:
//   - PointBatch: N sensor points, seeded once and never written again
//   - Matrix: the 4x4 transform applied to every point
//   - OutputBatch: N transformed points, overwritten in full by every kernel call
//
// Point storage is cache-line aligned so that kernel variants differ only in
// how they walk memory, not in where the allocator happened to place it.
package core

import (
	"errors"
	"fmt"
)

// Dim is the dimension of every point: three spatial coordinates plus the
// homogeneous constant 1.0.
const Dim = 4

// MaxPoints bounds batch sizes so that N*Dim*4 bytes stays well inside an int
// on every platform.
const MaxPoints = 1 << 26

// Point is one sensor sample in homogeneous coordinates.
type Point [Dim]float32

// Matrix is a Dim x Dim row-major transform.
type Matrix [Dim][Dim]float32

// ErrEmptyBatch is returned when a batch would hold no points.
var ErrEmptyBatch = errors.New("batch must hold at least one point")

// PointBatch is an immutable, ordered batch of sensor points.
type PointBatch struct {
	points []Point
}

// OutputBatch receives transformed points. Kernels overwrite every element.
type OutputBatch struct {
	points []Point
}

func checkSize(n int) error {
	if n <= 0 {
		return ErrEmptyBatch
	}
	if n > MaxPoints {
		return fmt.Errorf("batch of %d points exceeds limit of %d", n, MaxPoints)
	}
	return nil
}

// SeedSensorBatch builds the deterministic sensor batch used by the simulated
// loop: point i is (i*0.001, i*0.002, i*0.003, 1).
func SeedSensorBatch(n int) (*PointBatch, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	pts := AlignedPoints(n)
	for i := range pts {
		f := float32(i)
		pts[i] = Point{f * 0.001, f * 0.002, f * 0.003, 1.0}
	}
	return &PointBatch{points: pts}, nil
}

// NewPointBatch copies pts into aligned storage.
func NewPointBatch(pts []Point) (*PointBatch, error) {
	if err := checkSize(len(pts)); err != nil {
		return nil, err
	}
	aligned := AlignedPoints(len(pts))
	copy(aligned, pts)
	return &PointBatch{points: aligned}, nil
}

// Len returns the number of points.
func (b *PointBatch) Len() int { return len(b.points) }

// At returns point i.
func (b *PointBatch) At(i int) Point { return b.points[i] }

// Points exposes the backing slice to kernels. Callers must not write to it.
func (b *PointBatch) Points() []Point { return b.points }

// MaxComponent returns the largest component in the batch, which decides
// whether the clamp rule can ever fire.
func (b *PointBatch) MaxComponent() float32 {
	var m float32
	for i := range b.points {
		for _, v := range b.points[i] {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// NewOutputBatch allocates an aligned output buffer for n points.
func NewOutputBatch(n int) (*OutputBatch, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	return &OutputBatch{points: AlignedPoints(n)}, nil
}

// Len returns the number of points.
func (o *OutputBatch) Len() int { return len(o.points) }

// At returns point i.
func (o *OutputBatch) At(i int) Point { return o.points[i] }

// Points exposes the backing slice for kernels to overwrite.
func (o *OutputBatch) Points() []Point { return o.points }

// Fill sets every component to v. Tests use it to prove kernels overwrite the
// whole buffer.
func (o *OutputBatch) Fill(v float32) {
	for i := range o.points {
		o.points[i] = Point{v, v, v, v}
	}
}

// NewTransformMatrix returns the identity perturbed off-diagonal by 0.1*(i+j).
func NewTransformMatrix() Matrix {
	var m Matrix
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			if i == j {
				m[i][j] = 1.0
			} else {
				m[i][j] = float32(0.1) * float32(i+j)
			}
		}
	}
	return m
}

// Transpose returns the transpose of m.
func (m *Matrix) Transpose() Matrix {
	var t Matrix
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			t[j][i] = m[i][j]
		}
	}
	return t
}
