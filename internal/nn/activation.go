package nn

import (
	"fmt"
	"math"

	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// ReLU applies the rectifier max(0, x) element-wise.
func ReLU(t *tensor.Tensor) *tensor.Tensor {
	return t.Map(func(v float32) float32 {
		if v < 0 {
			return 0
		}
		return v
	})
}

// GELU applies the exact Gaussian-error linear unit,
// 0.5*x*(1+erf(x/sqrt(2))), element-wise.
func GELU(t *tensor.Tensor) *tensor.Tensor {
	return t.Map(func(v float32) float32 {
		return float32(0.5 * float64(v) * (1 + math.Erf(float64(v)/math.Sqrt2)))
	})
}

// GELUNew applies the tanh approximation of GELU used by GPT-2:
// 0.5*x*(1+tanh(sqrt(2/pi)*(x+0.044715*x^3))).
func GELUNew(t *tensor.Tensor) *tensor.Tensor {
	sqrt2OverPi := math.Sqrt(2 / math.Pi)
	return t.Map(func(v float32) float32 {
		x := float64(v)
		return float32(0.5 * x * (1 + math.Tanh(sqrt2OverPi*(x+0.044715*x*x*x))))
	})
}

// SiLU applies the sigmoid-weighted linear unit x*sigmoid(x) element-wise.
func SiLU(t *tensor.Tensor) *tensor.Tensor {
	return t.Map(func(v float32) float32 {
		return v / (1 + float32(math.Exp(float64(-v))))
	})
}

// SoLU applies the softmax-gated product x*softmax(x) over the last axis.
// In an MLP it is followed by a LayerNorm over the same axis (see MLP's
// solu_ln handling); on its own it is just the gate.
func SoLU(t *tensor.Tensor) *tensor.Tensor {
	return t.Mul(t.Softmax(-1))
}

// resolveActivation maps an ActKind to its function. Unknown kinds are a
// construction-time error in the caller.
func resolveActivation(kind ActKind) (func(*tensor.Tensor) *tensor.Tensor, error) {
	switch kind {
	case ActReLU:
		return ReLU, nil
	case ActGELU:
		return GELU, nil
	case ActGELUNew:
		return GELUNew, nil
	case ActSiLU:
		return SiLU, nil
	case ActSoLULN:
		return SoLU, nil
	default:
		return nil, fmt.Errorf("unknown activation kind %d", kind)
	}
}
