// Copyright 2025 the TransformerLens Go authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/yzhhr/TransformerLens/internal/nn"
)

// Config fixes the architecture of a hooked transformer.
type Config = nn.Config

// AttentionDir selects causal or bidirectional attention.
type AttentionDir = nn.AttentionDir

// AttnKind selects global or windowed-local masking.
type AttnKind = nn.AttnKind

// NormKind selects the normalization variant.
type NormKind = nn.NormKind

// ActKind selects the MLP nonlinearity.
type ActKind = nn.ActKind

// Enumeration values re-exported from the internal package.
const (
	AttnCausal        = nn.AttnCausal
	AttnBidirectional = nn.AttnBidirectional

	AttnGlobal = nn.AttnGlobal
	AttnLocal  = nn.AttnLocal

	NormLayerNorm    = nn.NormLayerNorm
	NormLayerNormPre = nn.NormLayerNormPre
	NormNone         = nn.NormNone

	ActReLU    = nn.ActReLU
	ActGELU    = nn.ActGELU
	ActGELUNew = nn.ActGELUNew
	ActSiLU    = nn.ActSiLU
	ActSoLULN  = nn.ActSoLULN
)

// Parameter is a named weight or bias tensor.
type Parameter = nn.Parameter

// Normalizer is the interface blocks use for their normalization step.
type Normalizer = nn.Normalizer

// LayerNorm is full layer normalization with learned scale and bias.
type LayerNorm = nn.LayerNorm

// LayerNormPre is the pre-folded center-and-rescale variant.
type LayerNormPre = nn.LayerNormPre

// Attention is multi-head self-attention with causal or windowed masking.
type Attention = nn.Attention

// MLP is the position-wise two-layer feed-forward transform.
type MLP = nn.MLP

// Block is one unit of the stack.
type Block = nn.Block

// TransformerBlock composes normalization, attention, and the MLP around
// two additive residual updates.
type TransformerBlock = nn.TransformerBlock

// AttnOnlyBlock is a block without the feed-forward half.
type AttnOnlyBlock = nn.AttnOnlyBlock

// Embed, PosEmbed and Unembed bound the block stack.
type (
	Embed    = nn.Embed
	PosEmbed = nn.PosEmbed
	Unembed  = nn.Unembed
)

// Transformer is the full hooked model.
type Transformer = nn.Transformer

// NamedHook pairs a hook point name with a transform for scoped runs.
type NamedHook = nn.NamedHook

// NewLayerNorm creates a LayerNorm over a feature axis of the given length.
func NewLayerNorm(cfg Config, length int) *LayerNorm {
	return nn.NewLayerNorm(cfg, length)
}

// NewLayerNormPre creates the pre-folded normalization.
func NewLayerNormPre(cfg Config) *LayerNormPre {
	return nn.NewLayerNormPre(cfg)
}

// NewAttention creates an attention layer of the given kind.
func NewAttention(cfg Config, kind AttnKind) *Attention {
	return nn.NewAttention(cfg, kind)
}

// NewMLP creates the feed-forward layer.
func NewMLP(cfg Config) *MLP {
	return nn.NewMLP(cfg)
}

// NewTransformerBlock creates a full block.
func NewTransformerBlock(cfg Config, blockIndex int) *TransformerBlock {
	return nn.NewTransformerBlock(cfg, blockIndex)
}

// NewAttnOnlyBlock creates an attention-only block.
func NewAttnOnlyBlock(cfg Config, blockIndex int) *AttnOnlyBlock {
	return nn.NewAttnOnlyBlock(cfg, blockIndex)
}

// NewTransformer builds the full model for a validated configuration.
func NewTransformer(cfg Config) (*Transformer, error) {
	return nn.NewTransformer(cfg)
}

// ParseActivation maps an activation name to its kind.
func ParseActivation(name string) (ActKind, error) {
	return nn.ParseActivation(name)
}

// ParseNormKind maps a normalization name to its kind.
func ParseNormKind(name string) (NormKind, error) {
	return nn.ParseNormKind(name)
}

// ParseAttentionDir maps an attention direction name to its kind.
func ParseAttentionDir(name string) (AttentionDir, error) {
	return nn.ParseAttentionDir(name)
}
