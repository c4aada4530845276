package tensor

import (
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return New(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float32) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Randn creates a tensor filled with values drawn from N(0, 1) using a
// seeded generator, so callers get reproducible parameter tensors.
func Randn(shape Shape, seed int64) *Tensor {
	rng := rand.New(rand.NewSource(seed))
	t := New(shape)
	for i := range t.data {
		t.data[i] = float32(rng.NormFloat64())
	}
	return t
}

// Tril creates a square lower-triangular matrix of ones with the given
// diagonal offset: element (i, j) is 1 when j <= i+diagonal.
func Tril(n, diagonal int) *Tensor {
	t := New(Shape{n, n})
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j <= i+diagonal {
				t.data[i*n+j] = 1
			}
		}
	}
	return t
}

// Triu creates a square upper-triangular matrix of ones with the given
// diagonal offset: element (i, j) is 1 when j >= i+diagonal.
func Triu(n, diagonal int) *Tensor {
	t := New(Shape{n, n})
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j >= i+diagonal {
				t.data[i*n+j] = 1
			}
		}
	}
	return t
}
