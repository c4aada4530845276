package nn

import (
	"fmt"
	"log"

	"github.com/yzhhr/TransformerLens/internal/hooks"
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// Normalizer is the interface blocks use for their normalization step, so
// a block works identically with LayerNorm, LayerNormPre, or the identity.
type Normalizer interface {
	Forward(x *tensor.Tensor) *tensor.Tensor
	HookPoints() map[string]*hooks.HookPoint
	Parameters() []*Parameter
}

// LayerNorm normalizes over the last (feature) axis and applies a learned
// per-feature scale and bias.
//
// Recipe, shared with LayerNormPre:
//  1. subtract the mean over the feature axis
//  2. scale = sqrt(mean(centered^2) + eps), exposed via hook_scale
//  3. divide by the scale, exposed via hook_normalized
//  4. multiply by w and add b
//
// Eps is added before the square root so near-constant inputs do not
// amplify into a division by zero.
//
// The feature-axis length is normally d_model but is d_mlp when LayerNorm
// runs inside the solu_ln activation.
type LayerNorm struct {
	W   *Parameter // learned scale [length]
	B   *Parameter // learned bias [length]
	eps float32

	HookScale      *hooks.HookPoint // [batch, pos, 1]
	HookNormalized *hooks.HookPoint // [batch, pos, length]
}

// NewLayerNorm creates a LayerNorm over a feature axis of the given
// length, with w initialized to ones and b to zeros.
func NewLayerNorm(cfg Config, length int) *LayerNorm {
	if length <= 0 {
		panic(fmt.Sprintf("LayerNorm: length must be positive, got %d", length))
	}
	return &LayerNorm{
		W:              NewParameter("w", tensor.Ones(tensor.Shape{length})),
		B:              NewParameter("b", tensor.Zeros(tensor.Shape{length})),
		eps:            cfg.Eps,
		HookScale:      hooks.New(),
		HookNormalized: hooks.New(),
	}
}

// Forward applies LayerNorm. Input and output have shape
// [batch, pos, length].
func (l *LayerNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	centered := x.Sub(x.MeanDim(-1, true))
	scale := l.HookScale.Apply(
		centered.Mul(centered).MeanDim(-1, true).AddScalar(l.eps).Sqrt(),
	)
	normalized := l.HookNormalized.Apply(centered.Div(scale))
	return normalized.Mul(l.W.Tensor()).Add(l.B.Tensor())
}

// HookPoints returns the layer's hook points under their local names.
func (l *LayerNorm) HookPoints() map[string]*hooks.HookPoint {
	return map[string]*hooks.HookPoint{
		"hook_scale":      l.HookScale,
		"hook_normalized": l.HookNormalized,
	}
}

// Parameters returns the learned scale and bias.
func (l *LayerNorm) Parameters() []*Parameter {
	return []*Parameter{l.W, l.B}
}

// LayerNormPre is the center-and-rescale part of LayerNorm, for inference
// on models whose LayerNorm weights have been folded into the adjacent
// linear layers. It shares LayerNorm's recipe and hook points but carries
// no parameters.
type LayerNormPre struct {
	eps float32

	HookScale      *hooks.HookPoint // [batch, pos, 1]
	HookNormalized *hooks.HookPoint // [batch, pos, length]
}

// NewLayerNormPre creates the pre-folded normalization. No length is
// needed since there are no parameters.
func NewLayerNormPre(cfg Config) *LayerNormPre {
	return &LayerNormPre{
		eps:            cfg.Eps,
		HookScale:      hooks.New(),
		HookNormalized: hooks.New(),
	}
}

// Forward centers and rescales x over the last axis.
func (l *LayerNormPre) Forward(x *tensor.Tensor) *tensor.Tensor {
	centered := x.Sub(x.MeanDim(-1, true))
	scale := l.HookScale.Apply(
		centered.Mul(centered).MeanDim(-1, true).AddScalar(l.eps).Sqrt(),
	)
	return l.HookNormalized.Apply(centered.Div(scale))
}

// HookPoints returns the layer's hook points under their local names.
func (l *LayerNormPre) HookPoints() map[string]*hooks.HookPoint {
	return map[string]*hooks.HookPoint{
		"hook_scale":      l.HookScale,
		"hook_normalized": l.HookNormalized,
	}
}

// Parameters returns nil: the pre-folded variant has no parameters.
func (l *LayerNormPre) Parameters() []*Parameter {
	return nil
}

// identityNorm is the degenerate Normalizer used when normalization is
// disabled. It adds no hook points beyond the pass-through.
type identityNorm struct{}

func (identityNorm) Forward(x *tensor.Tensor) *tensor.Tensor { return x }
func (identityNorm) HookPoints() map[string]*hooks.HookPoint { return nil }
func (identityNorm) Parameters() []*Parameter                { return nil }

// newNormalizer builds the Normalizer for a block given the configured
// kind. Unrecognized kinds degrade to the identity with a diagnostic
// rather than failing: this is the one permissive path in the model.
func newNormalizer(cfg Config, length int) Normalizer {
	switch cfg.Norm {
	case NormLayerNorm:
		return NewLayerNorm(cfg, length)
	case NormLayerNormPre:
		return NewLayerNormPre(cfg)
	case NormNone:
		return identityNorm{}
	default:
		log.Printf("nn: unrecognized normalization kind %d, falling back to identity", cfg.Norm)
		return identityNorm{}
	}
}
