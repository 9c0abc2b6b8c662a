// Package volume provides the dense N-dimensional array used for channel data.
//
// Arrays are stored as a flat []float64 in row-major order, the same layout the
// rest of voxelprep assumes: for a 3D array of shape (X, Y, Z) the element at
// (x, y, z) lives at index x*Y*Z + y*Z + z.
package volume

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Array is a dense N-dimensional array of float64 values.
//
// Operations that change geometry (Transpose, Flip) return a new Array with its
// own storage, so the receiver can still be shared safely.
type Array struct {
	// shape holds the size of each axis
	shape []int

	// data holds the elements in row-major order
	data []float64
}

// Stats summarises the values of an array.
type Stats struct {
	Min, Max  float64
	Mean, Std float64
}

// New creates an array with the given shape backed by data. The slice is used
// as-is, not copied.
func New(shape []int, data []float64) (*Array, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(data), shape, n)
	}
	return &Array{shape: append([]int(nil), shape...), data: data}, nil
}

// Zeros creates a zero-filled array. It panics on a negative dimension.
func Zeros(shape ...int) *Array {
	n, err := numElements(shape)
	if err != nil {
		panic(err)
	}
	return &Array{shape: append([]int(nil), shape...), data: make([]float64, n)}
}

func numElements(shape []int) (int, error) {
	n := 1
	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d on axis %d", d, i)
		}
		n *= d
	}
	return n, nil
}

// FromNested converts a value of nested slices (for example [][][]float32 or
// [][]int16) into an array. Any Go integer or floating point element type is
// accepted. A bare number becomes a rank-0 array. Ragged input is rejected.
func FromNested(v interface{}) (*Array, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("cannot convert nil to an array")
	}

	var shape []int
	for cur := rv; cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array; {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			break
		}
		cur = cur.Index(0)
	}

	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	data := make([]float64, 0, n)
	data, err = flatten(rv, shape, data)
	if err != nil {
		return nil, err
	}
	return &Array{shape: shape, data: data}, nil
}

func flatten(v reflect.Value, shape []int, out []float64) ([]float64, error) {
	if len(shape) == 0 {
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return append(out, f), nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("ragged input: expected %d more dimensions, got %s", len(shape), v.Kind())
	}
	if v.Len() != shape[0] {
		return nil, fmt.Errorf("ragged input: expected length %d, got %d", shape[0], v.Len())
	}
	var err error
	for i := 0; i < v.Len(); i++ {
		if out, err = flatten(v.Index(i), shape[1:], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toFloat(v reflect.Value) (float64, error) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.Interface:
		return toFloat(v.Elem())
	default:
		return 0, fmt.Errorf("unsupported element type %s", v.Type())
	}
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Rank returns the number of axes.
func (a *Array) Rank() int { return len(a.shape) }

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.data) }

// Data returns the backing slice in row-major order. Writes through it modify the array.
func (a *Array) Data() []float64 { return a.data }

func (a *Array) strides() []int {
	strides := make([]int, len(a.shape))
	s := 1
	for i := len(a.shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= a.shape[i]
	}
	return strides
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("volume: %d indices for rank %d array", len(idx), len(a.shape)))
	}
	off := 0
	for i, s := range a.strides() {
		if idx[i] < 0 || idx[i] >= a.shape[i] {
			panic(fmt.Sprintf("volume: index %d out of range for axis %d with size %d", idx[i], i, a.shape[i]))
		}
		off += idx[i] * s
	}
	return off
}

// At returns the element at idx. It panics if idx is out of range.
func (a *Array) At(idx ...int) float64 {
	return a.data[a.offset(idx)]
}

// Set stores v at idx. It panics if idx is out of range.
func (a *Array) Set(v float64, idx ...int) {
	a.data[a.offset(idx)] = v
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{shape: a.Shape(), data: append([]float64(nil), a.data...)}
}

// Equal reports whether both arrays have the same shape and identical elements.
// NaNs compare equal to each other.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.shape) != len(b.shape) || len(a.data) != len(b.data) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	for i := range a.data {
		if a.data[i] != b.data[i] && !(a.data[i] != a.data[i] && b.data[i] != b.data[i]) {
			return false
		}
	}
	return true
}

// Transpose returns a new array with the axis order reversed, so that
// out[k, j, i] == a[i, j, k] for a 3D input.
func (a *Array) Transpose() *Array {
	rank := len(a.shape)
	outShape := make([]int, rank)
	for i, d := range a.shape {
		outShape[rank-1-i] = d
	}
	out := &Array{shape: outShape, data: make([]float64, len(a.data))}
	if len(a.data) == 0 || rank < 2 {
		copy(out.data, a.data)
		return out
	}

	outStrides := out.strides()
	// walk the input in row-major order, carrying the output offset along
	idx := make([]int, rank)
	dst := 0
	for src := range a.data {
		out.data[dst] = a.data[src]
		for ax := rank - 1; ax >= 0; ax-- {
			idx[ax]++
			dst += outStrides[rank-1-ax]
			if idx[ax] < a.shape[ax] {
				break
			}
			dst -= idx[ax] * outStrides[rank-1-ax]
			idx[ax] = 0
		}
	}
	return out
}

// Flip returns a new array with the element order reversed along axis.
func (a *Array) Flip(axis int) (*Array, error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("axis %d out of range for rank %d array", axis, len(a.shape))
	}
	outer := 1
	for _, d := range a.shape[:axis] {
		outer *= d
	}
	inner := 1
	for _, d := range a.shape[axis+1:] {
		inner *= d
	}
	n := a.shape[axis]

	out := &Array{shape: a.Shape(), data: make([]float64, len(a.data))}
	for o := 0; o < outer; o++ {
		base := o * n * inner
		for k := 0; k < n; k++ {
			dst := base + k*inner
			src := base + (n-1-k)*inner
			copy(out.data[dst:dst+inner], a.data[src:src+inner])
		}
	}
	return out, nil
}

// Stats computes the minimum, maximum, mean and population standard deviation.
// An empty array yields zero values.
func (a *Array) Stats() Stats {
	if len(a.data) == 0 {
		return Stats{}
	}
	mean, variance := stat.PopMeanVariance(a.data, nil)
	std := 0.0
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return Stats{
		Min:  floats.Min(a.data),
		Max:  floats.Max(a.data),
		Mean: mean,
		Std:  std,
	}
}

// String renders the shape, not the data.
func (a *Array) String() string {
	dims := make([]string, len(a.shape))
	for i, d := range a.shape {
		dims[i] = fmt.Sprint(d)
	}
	return "Array(" + strings.Join(dims, "x") + ")"
}
