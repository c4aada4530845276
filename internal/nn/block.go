package nn

import (
	"fmt"

	"github.com/yzhhr/TransformerLens/internal/hooks"
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// Block is one unit of the stack: a full TransformerBlock or an
// AttnOnlyBlock. The residual stream enters, is read by the sub-stages,
// and an additively-updated residual stream exits.
type Block interface {
	Forward(x *tensor.Tensor) *tensor.Tensor
	HookPoints() map[string]*hooks.HookPoint
	Parameters() []*Parameter
}

// blockAttention builds the attention layer for block blockIndex,
// resolving the per-block kind when local attention is configured.
func blockAttention(cfg Config, blockIndex int) *Attention {
	if !cfg.UseLocalAttn {
		return NewAttention(cfg, AttnGlobal)
	}
	if blockIndex < 0 || blockIndex >= len(cfg.AttnKinds) {
		panic(fmt.Sprintf("TransformerBlock: local attention configured but no attention kind for block %d", blockIndex))
	}
	return NewAttention(cfg, cfg.AttnKinds[blockIndex])
}

// TransformerBlock composes normalization, attention, and the
// feed-forward transform around two additive residual updates:
//
//	resid_pre -> ln1 -> attn -> attn_out
//	resid_mid = resid_pre + attn_out
//	resid_mid -> ln2 -> mlp -> mlp_out
//	resid_post = resid_mid + mlp_out
//
// Normalization output only feeds the sub-component; it never replaces
// the residual stream.
type TransformerBlock struct {
	cfg Config

	Ln1  Normalizer
	Ln2  Normalizer
	Attn *Attention
	MLP  *MLP

	HookAttnOut   *hooks.HookPoint // [batch, pos, d_model]
	HookMLPOut    *hooks.HookPoint // [batch, pos, d_model]
	HookResidPre  *hooks.HookPoint // [batch, pos, d_model]
	HookResidMid  *hooks.HookPoint // [batch, pos, d_model]
	HookResidPost *hooks.HookPoint // [batch, pos, d_model]
}

// NewTransformerBlock creates a full block. The block index selects the
// attention kind when local attention is configured.
func NewTransformerBlock(cfg Config, blockIndex int) *TransformerBlock {
	b := &TransformerBlock{
		cfg:           cfg,
		Ln1:           newNormalizer(cfg, cfg.DModel),
		Ln2:           newNormalizer(cfg, cfg.DModel),
		Attn:          blockAttention(cfg, blockIndex),
		MLP:           NewMLP(cfg),
		HookAttnOut:   hooks.New(),
		HookMLPOut:    hooks.New(),
		HookResidPre:  hooks.New(),
		HookResidMid:  hooks.New(),
		HookResidPost: hooks.New(),
	}
	qualify("ln1", b.Ln1.Parameters())
	qualify("ln2", b.Ln2.Parameters())
	qualify("attn", b.Attn.Parameters())
	qualify("mlp", b.MLP.Parameters())
	return b
}

// Forward threads the residual stream [batch, pos, d_model] through the
// block's five stages and returns the updated stream.
func (b *TransformerBlock) Forward(x *tensor.Tensor) *tensor.Tensor {
	residPre := b.HookResidPre.Apply(x)
	attnOut := b.HookAttnOut.Apply(b.Attn.Forward(b.Ln1.Forward(residPre)))
	residMid := b.HookResidMid.Apply(residPre.Add(attnOut))

	mlpOut := b.HookMLPOut.Apply(b.MLP.Forward(b.Ln2.Forward(residMid)))
	return b.HookResidPost.Apply(residMid.Add(mlpOut))
}

// HookPoints returns every hook point in the block under local names
// ("attn.hook_q", "ln1.hook_scale", "hook_resid_pre", ...).
func (b *TransformerBlock) HookPoints() map[string]*hooks.HookPoint {
	points := map[string]*hooks.HookPoint{
		"hook_attn_out":   b.HookAttnOut,
		"hook_mlp_out":    b.HookMLPOut,
		"hook_resid_pre":  b.HookResidPre,
		"hook_resid_mid":  b.HookResidMid,
		"hook_resid_post": b.HookResidPost,
	}
	for name, hp := range b.Ln1.HookPoints() {
		points["ln1."+name] = hp
	}
	for name, hp := range b.Ln2.HookPoints() {
		points["ln2."+name] = hp
	}
	for name, hp := range b.Attn.HookPoints() {
		points["attn."+name] = hp
	}
	for name, hp := range b.MLP.HookPoints() {
		points["mlp."+name] = hp
	}
	return points
}

// Parameters returns the block's parameters. Names are component-relative
// ("attn.W_Q", "mlp.ln.w") until the owning model's setup pass adds the
// block prefix.
func (b *TransformerBlock) Parameters() []*Parameter {
	var params []*Parameter
	params = append(params, b.Ln1.Parameters()...)
	params = append(params, b.Ln2.Parameters()...)
	params = append(params, b.Attn.Parameters()...)
	params = append(params, b.MLP.Parameters()...)
	return params
}

// AttnOnlyBlock is a TransformerBlock without the feed-forward half:
// resid_post = resid_pre + attn_out.
type AttnOnlyBlock struct {
	cfg Config

	Ln1  Normalizer
	Attn *Attention

	HookAttnOut   *hooks.HookPoint // [batch, pos, d_model]
	HookResidPre  *hooks.HookPoint // [batch, pos, d_model]
	HookResidPost *hooks.HookPoint // [batch, pos, d_model]
}

// NewAttnOnlyBlock creates an attention-only block.
func NewAttnOnlyBlock(cfg Config, blockIndex int) *AttnOnlyBlock {
	b := &AttnOnlyBlock{
		cfg:           cfg,
		Ln1:           newNormalizer(cfg, cfg.DModel),
		Attn:          blockAttention(cfg, blockIndex),
		HookAttnOut:   hooks.New(),
		HookResidPre:  hooks.New(),
		HookResidPost: hooks.New(),
	}
	qualify("ln1", b.Ln1.Parameters())
	qualify("attn", b.Attn.Parameters())
	return b
}

// Forward threads the residual stream through normalization and attention
// with a single additive update.
func (b *AttnOnlyBlock) Forward(x *tensor.Tensor) *tensor.Tensor {
	residPre := b.HookResidPre.Apply(x)
	attnOut := b.HookAttnOut.Apply(b.Attn.Forward(b.Ln1.Forward(residPre)))
	return b.HookResidPost.Apply(residPre.Add(attnOut))
}

// HookPoints returns every hook point in the block under local names.
func (b *AttnOnlyBlock) HookPoints() map[string]*hooks.HookPoint {
	points := map[string]*hooks.HookPoint{
		"hook_attn_out":   b.HookAttnOut,
		"hook_resid_pre":  b.HookResidPre,
		"hook_resid_post": b.HookResidPost,
	}
	for name, hp := range b.Ln1.HookPoints() {
		points["ln1."+name] = hp
	}
	for name, hp := range b.Attn.HookPoints() {
		points["attn."+name] = hp
	}
	return points
}

// Parameters returns the block's parameters with component-relative names.
func (b *AttnOnlyBlock) Parameters() []*Parameter {
	var params []*Parameter
	params = append(params, b.Ln1.Parameters()...)
	params = append(params, b.Attn.Parameters()...)
	return params
}

// qualify prefixes each parameter's name with the component path. Called
// exactly once per parameter, from the block constructor.
func qualify(prefix string, params []*Parameter) {
	for _, p := range params {
		p.SetName(prefix + "." + p.Name())
	}
}
