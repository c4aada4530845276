// Copyright 2025 the TransformerLens Go authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense float32 tensors the
// model core computes with.
//
// The package re-exports the internal implementation:
//   - Tensor: dense, row-major float32 tensor
//   - Shape: dimension list with broadcasting helpers
//   - Creation functions: Zeros, Ones, Full, Randn, FromSlice, Tril, Triu
//
// Example:
//
//	x := tensor.Ones(tensor.Shape{2, 3})
//	y := tensor.Full(tensor.Shape{2, 3}, 0.5)
//	z := x.Add(y) // element-wise addition with broadcasting
package tensor

import (
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a dense, row-major float32 tensor. Operations never mutate
// their inputs; views created by Reshape and Index share data.
type Tensor = tensor.Tensor

// New creates a tensor with the given shape, initialized to zeros.
func New(shape Shape) *Tensor {
	return tensor.New(shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return tensor.Ones(shape)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float32) *Tensor {
	return tensor.Full(shape, value)
}

// Randn creates a tensor filled with values from N(0, 1) drawn from a
// seeded generator.
func Randn(shape Shape, seed int64) *Tensor {
	return tensor.Randn(shape, seed)
}

// FromSlice creates a tensor from a Go slice. The data is copied.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Tril creates a lower-triangular matrix of ones with the given diagonal
// offset.
func Tril(n, diagonal int) *Tensor {
	return tensor.Tril(n, diagonal)
}

// Triu creates an upper-triangular matrix of ones with the given diagonal
// offset.
func Triu(n, diagonal int) *Tensor {
	return tensor.Triu(n, diagonal)
}

// Where selects elements from x where cond is non-zero and from y
// elsewhere, with broadcasting.
func Where(cond, x, y *Tensor) *Tensor {
	return tensor.Where(cond, x, y)
}

// BroadcastShapes computes the broadcast shape for two shapes following
// NumPy broadcasting rules.
func BroadcastShapes(a, b Shape) (Shape, error) {
	return tensor.BroadcastShapes(a, b)
}
