// Package nn implements the hooked transformer forward pass: normalization,
// multi-head attention, position-wise feed-forward layers, transformer
// blocks, and the block stack, with every named intermediate tensor exposed
// through a hook point (see internal/hooks).
//
// Components read their weights from Parameter tensors owned by the caller
// and never mutate them; the forward pass allocates fresh tensors for every
// intermediate value.
package nn

import "fmt"

// AttentionDir selects whether attention may look at future positions.
type AttentionDir int

const (
	// AttnCausal masks out keys after the query position.
	AttnCausal AttentionDir = iota
	// AttnBidirectional applies no mask.
	AttnBidirectional
)

// AttnKind selects the masking pattern of a causal attention layer.
type AttnKind int

const (
	// AttnGlobal attends to every earlier position (lower-triangular mask).
	AttnGlobal AttnKind = iota
	// AttnLocal attends to a trailing window: query-window < key <= query.
	AttnLocal
)

// NormKind selects the normalization variant used in blocks.
type NormKind int

const (
	// NormLayerNorm is full LayerNorm with learned scale and bias.
	NormLayerNorm NormKind = iota
	// NormLayerNormPre is the center-and-rescale part only, for models
	// whose LayerNorm weights have been folded into adjacent layers.
	NormLayerNormPre
	// NormNone disables normalization entirely.
	NormNone
)

// ActKind selects the MLP nonlinearity.
type ActKind int

const (
	ActReLU ActKind = iota
	ActGELU
	ActGELUNew
	ActSiLU
	// ActSoLULN is the gated softmax-weighted product followed by a
	// LayerNorm over the d_mlp axis.
	ActSoLULN
)

// Config fixes the architecture of a hooked transformer. It is immutable
// from the model's perspective: components copy it at construction and the
// forward pass never writes to it.
type Config struct {
	DModel int // residual stream width
	NHeads int // number of attention heads
	DHead  int // per-head dimension
	DMLP   int // feed-forward hidden dimension
	NCtx   int // maximum sequence length
	DVocab int // vocabulary size (embed/unembed)

	NLayers int // number of transformer blocks

	Eps float32 // numerical floor added before the normalization sqrt

	AttnDir AttentionDir
	Norm    NormKind
	Act     ActKind

	// UseLocalAttn enables per-block attention kinds; AttnKinds must then
	// have one entry per block and WindowSize must be positive.
	UseLocalAttn bool
	AttnKinds    []AttnKind
	WindowSize   int

	// UseAttnScale divides attention scores by sqrt(DHead).
	UseAttnScale bool
	// UseAttnResult preserves the per-head contribution to the output
	// space behind hook_result before summing over heads.
	UseAttnResult bool

	// AttnOnly builds blocks without the feed-forward half.
	AttnOnly bool
}

// Validate checks the subset of fields the model consumes. It fails fast
// on combinations that would otherwise panic inside a constructor.
func (c Config) Validate() error {
	if c.DModel <= 0 || c.NHeads <= 0 || c.DHead <= 0 || c.NCtx <= 0 {
		return fmt.Errorf("d_model, n_heads, d_head and n_ctx must be positive, got %d/%d/%d/%d",
			c.DModel, c.NHeads, c.DHead, c.NCtx)
	}
	if c.NLayers <= 0 {
		return fmt.Errorf("n_layers must be positive, got %d", c.NLayers)
	}
	if c.DVocab <= 0 {
		return fmt.Errorf("d_vocab must be positive, got %d", c.DVocab)
	}
	if !c.AttnOnly && c.DMLP <= 0 {
		return fmt.Errorf("d_mlp must be positive, got %d", c.DMLP)
	}
	if c.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %g", c.Eps)
	}
	if c.UseLocalAttn {
		if len(c.AttnKinds) != c.NLayers {
			return fmt.Errorf("local attention needs one attention kind per block, got %d for %d blocks",
				len(c.AttnKinds), c.NLayers)
		}
		if c.WindowSize <= 0 {
			return fmt.Errorf("local attention needs a positive window size, got %d", c.WindowSize)
		}
	}
	switch c.Act {
	case ActReLU, ActGELU, ActGELUNew, ActSiLU, ActSoLULN:
	default:
		return fmt.Errorf("unknown activation kind %d", c.Act)
	}
	return nil
}

// ParseActivation maps an activation name to its kind. Names follow the
// conventional spellings: relu, gelu, gelu_new, silu, solu_ln.
func ParseActivation(name string) (ActKind, error) {
	switch name {
	case "relu":
		return ActReLU, nil
	case "gelu":
		return ActGELU, nil
	case "gelu_new":
		return ActGELUNew, nil
	case "silu":
		return ActSiLU, nil
	case "solu_ln":
		return ActSoLULN, nil
	default:
		return 0, fmt.Errorf("unknown activation %q", name)
	}
}

// ParseNormKind maps a normalization name to its kind: LN, LNPre, or none.
func ParseNormKind(name string) (NormKind, error) {
	switch name {
	case "LN":
		return NormLayerNorm, nil
	case "LNPre":
		return NormLayerNormPre, nil
	case "none", "":
		return NormNone, nil
	default:
		return 0, fmt.Errorf("unknown normalization type %q", name)
	}
}

// ParseAttentionDir maps an attention direction name to its kind.
func ParseAttentionDir(name string) (AttentionDir, error) {
	switch name {
	case "causal":
		return AttnCausal, nil
	case "bidirectional":
		return AttnBidirectional, nil
	default:
		return 0, fmt.Errorf("unknown attention direction %q", name)
	}
}
