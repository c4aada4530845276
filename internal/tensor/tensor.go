package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Tensor is a dense, row-major float32 tensor.
//
// A Tensor owns a flat data slice plus shape metadata. Views created by
// Reshape and Index share the underlying data; every other operation
// allocates a fresh result and never mutates its inputs, so forward-pass
// intermediates can be handed to external observers safely.
type Tensor struct {
	data  []float32
	shape Shape
}

// New creates a tensor with the given shape, initialized to zeros.
func New(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return &Tensor{
		data:  make([]float32, shape.NumElements()),
		shape: shape.Clone(),
	}
}

// FromSlice creates a tensor from existing data with the given shape.
// The data is copied, so the tensor owns its memory.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data size %d does not match shape %v (expected %d elements)",
			len(data), shape, shape.NumElements())
	}
	dataCopy := make([]float32, len(data))
	copy(dataCopy, data)
	return &Tensor{data: dataCopy, shape: shape.Clone()}, nil
}

// Shape returns the tensor's shape. The caller must not modify it.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the flat underlying data slice.
func (t *Tensor) Data() []float32 {
	return t.data
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// At returns the element at the given multi-dimensional indices.
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.flatIndex(indices)]
}

// SetAt sets the element at the given multi-dimensional indices.
func (t *Tensor) SetAt(value float32, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: got %d indices for shape %v", len(indices), t.shape))
	}
	strides := t.shape.ComputeStrides()
	idx := 0
	for i, index := range indices {
		if index < 0 || index >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of bounds for dimension %d with size %d",
				index, i, t.shape[i]))
		}
		idx += index * strides[i]
	}
	return idx
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	dataCopy := make([]float32, len(t.data))
	copy(dataCopy, t.data)
	return &Tensor{data: dataCopy, shape: t.shape.Clone()}
}

// Reshape returns a view with a different shape sharing the same data.
// The total number of elements must match.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	newShape := Shape(dims)
	if newShape.NumElements() != len(t.data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v to %v", t.shape, newShape))
	}
	return &Tensor{data: t.data, shape: newShape.Clone()}
}

// Index returns a view of the i-th sub-tensor along the first axis.
// For a [h, m, d] weight tensor, Index(2) is the [m, d] slab of head 2.
// The view shares data with the parent.
func (t *Tensor) Index(i int) *Tensor {
	if len(t.shape) == 0 {
		panic("tensor: cannot index a scalar tensor")
	}
	if i < 0 || i >= t.shape[0] {
		panic(fmt.Sprintf("tensor: index %d out of bounds for axis of size %d", i, t.shape[0]))
	}
	subSize := Shape(t.shape[1:]).NumElements()
	return &Tensor{
		data:  t.data[i*subSize : (i+1)*subSize],
		shape: t.shape[1:].Clone(),
	}
}

// Select extracts the sub-tensor at position i along the given dimension,
// removing that dimension from the shape. The result is a copy.
func (t *Tensor) Select(dim, i int) *Tensor {
	dim = t.shape.normalizeDim(dim)
	if i < 0 || i >= t.shape[dim] {
		panic(fmt.Sprintf("tensor: index %d out of bounds for dimension %d with size %d",
			i, dim, t.shape[dim]))
	}

	outShape := make(Shape, 0, len(t.shape)-1)
	outShape = append(outShape, t.shape[:dim]...)
	outShape = append(outShape, t.shape[dim+1:]...)
	if len(outShape) == 0 {
		outShape = Shape{1}
	}
	result := New(outShape)

	outer := Shape(t.shape[:dim]).NumElements()
	size := t.shape[dim]
	inner := Shape(t.shape[dim+1:]).NumElements()
	for o := 0; o < outer; o++ {
		src := (o*size + i) * inner
		dst := o * inner
		copy(result.data[dst:dst+inner], t.data[src:src+inner])
	}
	return result
}

// Slice extracts the sub-tensor covering [starts[i], ends[i]) along every
// dimension. The result is a copy.
func (t *Tensor) Slice(starts, ends []int) *Tensor {
	if len(starts) != len(t.shape) || len(ends) != len(t.shape) {
		panic(fmt.Sprintf("tensor: slice bounds must match rank %d, got %d and %d",
			len(t.shape), len(starts), len(ends)))
	}
	outShape := make(Shape, len(t.shape))
	for i := range t.shape {
		if starts[i] < 0 || ends[i] > t.shape[i] || starts[i] >= ends[i] {
			panic(fmt.Sprintf("tensor: invalid slice range [%d, %d) for dimension %d with size %d",
				starts[i], ends[i], i, t.shape[i]))
		}
		outShape[i] = ends[i] - starts[i]
	}

	result := New(outShape)
	srcStrides := t.shape.ComputeStrides()
	dstStrides := outShape.ComputeStrides()
	indices := make([]int, len(outShape))
	var walk func(dim int)
	walk = func(dim int) {
		if dim == len(outShape) {
			src, dst := 0, 0
			for i := range indices {
				src += (starts[i] + indices[i]) * srcStrides[i]
				dst += indices[i] * dstStrides[i]
			}
			result.data[dst] = t.data[src]
			return
		}
		for i := 0; i < outShape[dim]; i++ {
			indices[dim] = i
			walk(dim + 1)
		}
	}
	walk(0)
	return result
}

// Transpose permutes the tensor's axes. The permutation must name every
// axis exactly once, e.g. Transpose(0, 2, 1, 3) swaps axes 1 and 2.
// The result is a contiguous copy.
func (t *Tensor) Transpose(axes ...int) *Tensor {
	if len(axes) != len(t.shape) {
		panic(fmt.Sprintf("tensor: transpose needs %d axes for shape %v, got %d",
			len(t.shape), t.shape, len(axes)))
	}
	seen := make([]bool, len(axes))
	outShape := make(Shape, len(axes))
	for i, a := range axes {
		if a < 0 || a >= len(axes) || seen[a] {
			panic(fmt.Sprintf("tensor: invalid axis permutation %v", axes))
		}
		seen[a] = true
		outShape[i] = t.shape[a]
	}

	result := New(outShape)
	srcStrides := t.shape.ComputeStrides()
	dstStrides := outShape.ComputeStrides()
	indices := make([]int, len(t.shape)) // indices in source order
	var walk func(dim int)
	walk = func(dim int) {
		if dim == len(t.shape) {
			src, dst := 0, 0
			for i := range indices {
				src += indices[i] * srcStrides[i]
			}
			for i, a := range axes {
				dst += indices[a] * dstStrides[i]
			}
			result.data[dst] = t.data[src]
			return
		}
		for i := 0; i < t.shape[dim]; i++ {
			indices[dim] = i
			walk(dim + 1)
		}
	}
	walk(0)
	return result
}

// Equal reports whether two tensors have identical shapes and bit-identical
// element values.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i := range t.data {
		if t.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// AllClose reports whether two tensors have identical shapes and element
// values within the given absolute tolerance.
func (t *Tensor) AllClose(other *Tensor, tolerance float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i := range t.data {
		if math.Abs(float64(t.data[i]-other.data[i])) > tolerance {
			return false
		}
	}
	return true
}

// Fingerprint returns an xxhash digest of the tensor's shape and raw
// element bytes. Two tensors have equal fingerprints exactly when they are
// bit-identical, which makes fingerprints a cheap way to assert that an
// instrumented forward pass did not perturb a value.
func (t *Tensor) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, dim := range t.shape {
		binary.LittleEndian.PutUint64(buf[:], uint64(dim))
		_, _ = h.Write(buf[:])
	}
	for _, v := range t.data {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
		_, _ = h.Write(buf[:4])
	}
	return h.Sum64()
}

// String returns a compact description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}
