package nn

import (
	"fmt"

	"github.com/yzhhr/TransformerLens/internal/hooks"
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// MLP is the position-wise two-layer feed-forward transform:
// project to d_mlp, apply the configured nonlinearity, project back.
//
// The pre-activation and post-activation values are hooked; with solu_ln
// the gated product additionally passes through a LayerNorm over the d_mlp
// axis, hooked as hook_post_ln.
type MLP struct {
	cfg Config

	WIn  *Parameter // [d_model, d_mlp]
	BIn  *Parameter // [d_mlp]
	WOut *Parameter // [d_mlp, d_model]
	BOut *Parameter // [d_model]

	actFn func(*tensor.Tensor) *tensor.Tensor
	ln    *LayerNorm // non-nil only for solu_ln

	HookPre    *hooks.HookPoint // [batch, pos, d_mlp]
	HookPost   *hooks.HookPoint // [batch, pos, d_mlp]
	HookPostLN *hooks.HookPoint // [batch, pos, d_mlp], solu_ln only
}

// NewMLP creates the feed-forward layer. An unrecognized activation kind
// is a construction-time error.
func NewMLP(cfg Config) *MLP {
	actFn, err := resolveActivation(cfg.Act)
	if err != nil {
		panic(fmt.Sprintf("MLP: %v", err))
	}

	m := &MLP{
		cfg:      cfg,
		WIn:      NewParameter("W_in", tensor.Zeros(tensor.Shape{cfg.DModel, cfg.DMLP})),
		BIn:      NewParameter("b_in", tensor.Zeros(tensor.Shape{cfg.DMLP})),
		WOut:     NewParameter("W_out", tensor.Zeros(tensor.Shape{cfg.DMLP, cfg.DModel})),
		BOut:     NewParameter("b_out", tensor.Zeros(tensor.Shape{cfg.DModel})),
		actFn:    actFn,
		HookPre:  hooks.New(),
		HookPost: hooks.New(),
	}
	if cfg.Act == ActSoLULN {
		m.ln = NewLayerNorm(cfg, cfg.DMLP)
		m.ln.W.SetName("ln.w")
		m.ln.B.SetName("ln.b")
		m.HookPostLN = hooks.New()
	}
	return m
}

// Forward applies the feed-forward transform to x of shape
// [batch, pos, d_model], returning a tensor of the same shape.
func (m *MLP) Forward(x *tensor.Tensor) *tensor.Tensor {
	pre := m.HookPre.Apply(x.MatMul(m.WIn.Tensor()).Add(m.BIn.Tensor()))
	post := m.HookPost.Apply(m.actFn(pre))
	if m.ln != nil {
		post = m.HookPostLN.Apply(m.ln.Forward(post))
	}
	return post.MatMul(m.WOut.Tensor()).Add(m.BOut.Tensor())
}

// HookPoints returns the MLP hook points under their local names,
// including the internal LayerNorm's points for solu_ln.
func (m *MLP) HookPoints() map[string]*hooks.HookPoint {
	points := map[string]*hooks.HookPoint{
		"hook_pre":  m.HookPre,
		"hook_post": m.HookPost,
	}
	if m.ln != nil {
		points["hook_post_ln"] = m.HookPostLN
		for name, hp := range m.ln.HookPoints() {
			points["ln."+name] = hp
		}
	}
	return points
}

// Parameters returns the MLP weights and biases, plus the internal
// LayerNorm's parameters for solu_ln.
func (m *MLP) Parameters() []*Parameter {
	params := []*Parameter{m.WIn, m.BIn, m.WOut, m.BOut}
	if m.ln != nil {
		params = append(params, m.ln.Parameters()...)
	}
	return params
}
