package tensor

import (
	"fmt"
	"math"
)

// Add performs element-wise addition with broadcasting.
func (t *Tensor) Add(other *Tensor) *Tensor {
	return broadcastOp(t, other, func(a, b float32) float32 { return a + b })
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return broadcastOp(t, other, func(a, b float32) float32 { return a - b })
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return broadcastOp(t, other, func(a, b float32) float32 { return a * b })
}

// Div performs element-wise division with broadcasting.
func (t *Tensor) Div(other *Tensor) *Tensor {
	return broadcastOp(t, other, func(a, b float32) float32 { return a / b })
}

// AddScalar adds a scalar to every element.
func (t *Tensor) AddScalar(s float32) *Tensor {
	return t.Map(func(v float32) float32 { return v + s })
}

// MulScalar multiplies every element by a scalar.
func (t *Tensor) MulScalar(s float32) *Tensor {
	return t.Map(func(v float32) float32 { return v * s })
}

// Sqrt returns the element-wise square root.
func (t *Tensor) Sqrt() *Tensor {
	return t.Map(func(v float32) float32 { return float32(math.Sqrt(float64(v))) })
}

// Map applies f element-wise, returning a new tensor.
func (t *Tensor) Map(f func(float32) float32) *Tensor {
	result := New(t.shape)
	for i, v := range t.data {
		result.data[i] = f(v)
	}
	return result
}

// broadcastOp applies a binary op element-wise with NumPy broadcasting.
func broadcastOp(a, b *Tensor, op func(float32, float32) float32) *Tensor {
	if a.shape.Equal(b.shape) {
		// Fast path: identical shapes, no index arithmetic.
		result := New(a.shape)
		for i := range a.data {
			result.data[i] = op(a.data[i], b.data[i])
		}
		return result
	}

	outShape, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	result := New(outShape)
	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(a.shape, outShape)
	bStrides := broadcastStrides(b.shape, outShape)

	indices := make([]int, len(outShape))
	for flat := 0; flat < len(result.data); flat++ {
		rem := flat
		aIdx, bIdx := 0, 0
		for d := range outShape {
			indices[d] = rem / outStrides[d]
			rem %= outStrides[d]
			aIdx += indices[d] * aStrides[d]
			bIdx += indices[d] * bStrides[d]
		}
		result.data[flat] = op(a.data[aIdx], b.data[bIdx])
	}
	return result
}

// broadcastStrides computes per-output-dimension strides into a tensor of
// shape `in` when broadcast to shape `out`. Broadcast dimensions get a
// stride of zero.
func broadcastStrides(in, out Shape) []int {
	inStrides := in.ComputeStrides()
	strides := make([]int, len(out))
	offset := len(out) - len(in)
	for d := range out {
		srcDim := d - offset
		if srcDim < 0 || in[srcDim] == 1 && out[d] != 1 {
			strides[d] = 0
		} else {
			strides[d] = inStrides[srcDim]
		}
	}
	return strides
}

// MeanDim computes the mean along a dimension. With keepdim the reduced
// dimension is retained with size 1, which keeps the result broadcastable
// against the input.
func (t *Tensor) MeanDim(dim int, keepdim bool) *Tensor {
	dim = t.shape.normalizeDim(dim)
	sum := t.reduceDim(dim, keepdim)
	return sum.MulScalar(1 / float32(t.shape[dim]))
}

// SumDim computes the sum along a dimension.
func (t *Tensor) SumDim(dim int, keepdim bool) *Tensor {
	dim = t.shape.normalizeDim(dim)
	return t.reduceDim(dim, keepdim)
}

func (t *Tensor) reduceDim(dim int, keepdim bool) *Tensor {
	outer := Shape(t.shape[:dim]).NumElements()
	size := t.shape[dim]
	inner := Shape(t.shape[dim+1:]).NumElements()

	outShape := make(Shape, 0, len(t.shape))
	outShape = append(outShape, t.shape[:dim]...)
	if keepdim {
		outShape = append(outShape, 1)
	}
	outShape = append(outShape, t.shape[dim+1:]...)
	if len(outShape) == 0 {
		outShape = Shape{1}
	}

	result := New(outShape)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var sum float32
			for i := 0; i < size; i++ {
				sum += t.data[(o*size+i)*inner+in]
			}
			result.data[o*inner+in] = sum
		}
	}
	return result
}

// Softmax applies a numerically-stable softmax along the given dimension
// (max-subtracted before exponentiation).
func (t *Tensor) Softmax(dim int) *Tensor {
	dim = t.shape.normalizeDim(dim)
	outer := Shape(t.shape[:dim]).NumElements()
	size := t.shape[dim]
	inner := Shape(t.shape[dim+1:]).NumElements()

	result := New(t.shape)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o * size * inner
			maxVal := float32(math.Inf(-1))
			for i := 0; i < size; i++ {
				if v := t.data[base+i*inner+in]; v > maxVal {
					maxVal = v
				}
			}
			var expSum float32
			for i := 0; i < size; i++ {
				e := float32(math.Exp(float64(t.data[base+i*inner+in] - maxVal)))
				result.data[base+i*inner+in] = e
				expSum += e
			}
			for i := 0; i < size; i++ {
				result.data[base+i*inner+in] /= expSum
			}
		}
	}
	return result
}

// Where selects elements from x where cond is non-zero and from y
// elsewhere. All three tensors broadcast together, so a [q, k] mask and a
// single-element sentinel work against [batch, head, q, k] scores.
func Where(cond, x, y *Tensor) *Tensor {
	outShape, err := BroadcastShapes(cond.shape, x.shape)
	if err == nil {
		outShape, err = BroadcastShapes(outShape, y.shape)
	}
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}

	result := New(outShape)
	outStrides := outShape.ComputeStrides()
	condStrides := broadcastStrides(cond.shape, outShape)
	xStrides := broadcastStrides(x.shape, outShape)
	yStrides := broadcastStrides(y.shape, outShape)

	for flat := 0; flat < len(result.data); flat++ {
		rem := flat
		cIdx, xIdx, yIdx := 0, 0, 0
		for d := range outShape {
			i := rem / outStrides[d]
			rem %= outStrides[d]
			cIdx += i * condStrides[d]
			xIdx += i * xStrides[d]
			yIdx += i * yStrides[d]
		}
		if cond.data[cIdx] != 0 {
			result.data[flat] = x.data[xIdx]
		} else {
			result.data[flat] = y.data[yIdx]
		}
	}
	return result
}

// MatMul performs matrix multiplication over the last two dimensions.
//
// Supported operand ranks:
//   - 2D @ 2D: (m, n) @ (n, p) -> (m, p)
//   - ND @ 2D: (..., m, n) @ (n, p) -> (..., m, p)  (weights broadcast)
//   - ND @ ND: equal batch dimensions, batched matmul
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	a, b := t, other
	if len(a.shape) < 2 || len(b.shape) < 2 {
		panic(fmt.Sprintf("tensor: matmul requires at least 2D operands, got %v and %v", a.shape, b.shape))
	}
	m := a.shape[len(a.shape)-2]
	n := a.shape[len(a.shape)-1]
	p := b.shape[len(b.shape)-1]
	if b.shape[len(b.shape)-2] != n {
		panic(fmt.Sprintf("tensor: incompatible shapes for matmul: %v and %v", a.shape, b.shape))
	}

	// ND @ 2D: broadcast the right operand across batch dimensions.
	if len(b.shape) == 2 {
		batch := Shape(a.shape[:len(a.shape)-2]).NumElements()
		outShape := append(a.shape[:len(a.shape)-2].Clone(), m, p)
		result := New(outShape)
		for bi := 0; bi < batch; bi++ {
			matmul2D(a.data[bi*m*n:(bi+1)*m*n], b.data, result.data[bi*m*p:(bi+1)*m*p], m, n, p)
		}
		return result
	}

	if !Shape(a.shape[:len(a.shape)-2]).Equal(b.shape[:len(b.shape)-2]) {
		panic(fmt.Sprintf("tensor: batch dimensions must match for matmul: %v and %v", a.shape, b.shape))
	}
	batch := Shape(a.shape[:len(a.shape)-2]).NumElements()
	outShape := append(a.shape[:len(a.shape)-2].Clone(), m, p)
	result := New(outShape)
	for bi := 0; bi < batch; bi++ {
		matmul2D(a.data[bi*m*n:(bi+1)*m*n], b.data[bi*n*p:(bi+1)*n*p], result.data[bi*m*p:(bi+1)*m*p], m, n, p)
	}
	return result
}

func matmul2D(a, b, out []float32, m, n, p int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			av := a[i*n+j]
			bRow := b[j*p : (j+1)*p]
			outRow := out[i*p : (i+1)*p]
			for k := range bRow {
				outRow[k] += av * bRow[k]
			}
		}
	}
}
