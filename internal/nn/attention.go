package nn

import (
	"fmt"
	"math"

	"github.com/yzhhr/TransformerLens/internal/hooks"
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// maskIgnore is the sentinel written over masked attention scores. Large
// enough to vanish under softmax, finite so downstream arithmetic stays
// well defined.
const maskIgnore = -1e5

// Attention is multi-head self-attention with causal or windowed masking.
//
// Weights are per-head: W_Q, W_K, W_V are [n_heads, d_model, d_head] and
// W_O is [n_heads, d_head, d_model]; biases b_Q, b_K, b_V are
// [n_heads, d_head] and b_O is [d_model].
//
// The boolean mask over [n_ctx, n_ctx] is derived from the config at
// construction and shared read-only across forward calls: lower-triangular
// for global attention, banded (query-window < key <= query) for local.
type Attention struct {
	cfg  Config
	kind AttnKind

	WQ *Parameter // [n_heads, d_model, d_head]
	WK *Parameter // [n_heads, d_model, d_head]
	WV *Parameter // [n_heads, d_model, d_head]
	WO *Parameter // [n_heads, d_head, d_model]
	BQ *Parameter // [n_heads, d_head]
	BK *Parameter // [n_heads, d_head]
	BV *Parameter // [n_heads, d_head]
	BO *Parameter // [d_model]

	mask     *tensor.Tensor // [n_ctx, n_ctx], 1 where attention is allowed
	sentinel *tensor.Tensor // single-element tensor holding maskIgnore
	scale    float32

	HookQ       *hooks.HookPoint // [batch, pos, head, d_head]
	HookK       *hooks.HookPoint // [batch, pos, head, d_head]
	HookV       *hooks.HookPoint // [batch, pos, head, d_head]
	HookZ       *hooks.HookPoint // [batch, pos, head, d_head]
	HookScores  *hooks.HookPoint // [batch, head, query_pos, key_pos]
	HookPattern *hooks.HookPoint // [batch, head, query_pos, key_pos]
	HookResult  *hooks.HookPoint // [batch, pos, head, d_model]
}

// NewAttention creates an attention layer of the given kind. Requesting
// local attention without a positive window size is a construction-time
// error; so is an unknown kind.
func NewAttention(cfg Config, kind AttnKind) *Attention {
	h, m, d := cfg.NHeads, cfg.DModel, cfg.DHead

	causal := tensor.Tril(cfg.NCtx, 0)
	var mask *tensor.Tensor
	switch kind {
	case AttnGlobal:
		mask = causal
	case AttnLocal:
		if cfg.WindowSize <= 0 {
			panic(fmt.Sprintf("Attention: local attention needs a positive window size, got %d", cfg.WindowSize))
		}
		// Banded mask: keep key positions with query-window < key <= query.
		mask = causal.Mul(tensor.Triu(cfg.NCtx, 1-cfg.WindowSize))
	default:
		panic(fmt.Sprintf("Attention: invalid attention kind %d", kind))
	}

	scale := float32(1)
	if cfg.UseAttnScale {
		scale = float32(math.Sqrt(float64(d)))
	}

	sentinel, _ := tensor.FromSlice([]float32{maskIgnore}, tensor.Shape{1})

	return &Attention{
		cfg:  cfg,
		kind: kind,

		WQ: NewParameter("W_Q", tensor.Zeros(tensor.Shape{h, m, d})),
		WK: NewParameter("W_K", tensor.Zeros(tensor.Shape{h, m, d})),
		WV: NewParameter("W_V", tensor.Zeros(tensor.Shape{h, m, d})),
		WO: NewParameter("W_O", tensor.Zeros(tensor.Shape{h, d, m})),
		BQ: NewParameter("b_Q", tensor.Zeros(tensor.Shape{h, d})),
		BK: NewParameter("b_K", tensor.Zeros(tensor.Shape{h, d})),
		BV: NewParameter("b_V", tensor.Zeros(tensor.Shape{h, d})),
		BO: NewParameter("b_O", tensor.Zeros(tensor.Shape{m})),

		mask:     mask,
		sentinel: sentinel,
		scale:    scale,

		HookQ:       hooks.New(),
		HookK:       hooks.New(),
		HookV:       hooks.New(),
		HookZ:       hooks.New(),
		HookScores:  hooks.New(),
		HookPattern: hooks.New(),
		HookResult:  hooks.New(),
	}
}

// Forward computes self-attention over x of shape [batch, pos, d_model]
// and returns a tensor of the same shape.
func (a *Attention) Forward(x *tensor.Tensor) *tensor.Tensor {
	q := a.HookQ.Apply(a.project(x, a.WQ, a.BQ)) // [batch, pos, head, d_head]
	k := a.HookK.Apply(a.project(x, a.WK, a.BK)) // [batch, pos, head, d_head]
	v := a.HookV.Apply(a.project(x, a.WV, a.BV)) // [batch, pos, head, d_head]

	qh := q.Transpose(0, 2, 1, 3)                              // [batch, head, query_pos, d_head]
	kh := k.Transpose(0, 2, 3, 1)                              // [batch, head, d_head, key_pos]
	scores := qh.MatMul(kh).MulScalar(1 / a.scale)             // [batch, head, query_pos, key_pos]
	if a.cfg.AttnDir == AttnCausal {
		scores = a.applyMask(scores)
	}
	scores = a.HookScores.Apply(scores)
	pattern := a.HookPattern.Apply(scores.Softmax(-1)) // [batch, head, query_pos, key_pos]

	vh := v.Transpose(0, 2, 1, 3)                       // [batch, head, key_pos, d_head]
	z := pattern.MatMul(vh).Transpose(0, 2, 1, 3)       // [batch, query_pos, head, d_head]
	z = a.HookZ.Apply(z)

	return a.recombine(z)
}

// project computes the per-head linear projection of x through w plus
// bias, producing [batch, pos, head, d_head].
func (a *Attention) project(x *tensor.Tensor, w, bias *Parameter) *tensor.Tensor {
	shape := x.Shape()
	batch, pos := shape[0], shape[1]
	h, d := a.cfg.NHeads, a.cfg.DHead

	out := tensor.New(tensor.Shape{batch, pos, h, d})
	outData := out.Data()
	for hi := 0; hi < h; hi++ {
		proj := x.MatMul(w.Tensor().Index(hi)).Add(bias.Tensor().Index(hi)) // [batch, pos, d_head]
		projData := proj.Data()
		for b := 0; b < batch; b++ {
			for p := 0; p < pos; p++ {
				src := (b*pos + p) * d
				dst := ((b*pos+p)*h + hi) * d
				copy(outData[dst:dst+d], projData[src:src+d])
			}
		}
	}
	return out
}

// applyMask replaces scores at disallowed (query, key) positions with the
// sentinel via a masked select, leaving allowed scores untouched.
func (a *Attention) applyMask(scores *tensor.Tensor) *tensor.Tensor {
	shape := scores.Shape()
	qLen, kLen := shape[2], shape[3]
	window := a.mask.Slice([]int{0, 0}, []int{qLen, kLen})
	return tensor.Where(window, scores, a.sentinel)
}

// recombine maps the per-head weighted values z [batch, pos, head, d_head]
// back to the residual width.
//
// With UseAttnResult the per-head contribution to the output space is
// materialized as [batch, pos, head, d_model] behind HookResult before
// summing over heads; otherwise heads are contracted directly. The two
// paths agree up to floating-point summation order.
func (a *Attention) recombine(z *tensor.Tensor) *tensor.Tensor {
	shape := z.Shape()
	batch, pos := shape[0], shape[1]
	h, m := a.cfg.NHeads, a.cfg.DModel
	bO := a.BO.Tensor()

	if a.cfg.UseAttnResult {
		result := tensor.New(tensor.Shape{batch, pos, h, m})
		resultData := result.Data()
		for hi := 0; hi < h; hi++ {
			contrib := z.Select(2, hi).MatMul(a.WO.Tensor().Index(hi)) // [batch, pos, d_model]
			contribData := contrib.Data()
			for b := 0; b < batch; b++ {
				for p := 0; p < pos; p++ {
					src := (b*pos + p) * m
					dst := ((b*pos+p)*h + hi) * m
					copy(resultData[dst:dst+m], contribData[src:src+m])
				}
			}
		}
		result = a.HookResult.Apply(result)
		return result.SumDim(2, false).Add(bO)
	}

	out := tensor.Zeros(tensor.Shape{batch, pos, m})
	for hi := 0; hi < h; hi++ {
		out = out.Add(z.Select(2, hi).MatMul(a.WO.Tensor().Index(hi)))
	}
	return out.Add(bO)
}

// HookPoints returns the attention hook points under their local names.
func (a *Attention) HookPoints() map[string]*hooks.HookPoint {
	return map[string]*hooks.HookPoint{
		"hook_q":           a.HookQ,
		"hook_k":           a.HookK,
		"hook_v":           a.HookV,
		"hook_z":           a.HookZ,
		"hook_attn_scores": a.HookScores,
		"hook_attn":        a.HookPattern,
		"hook_result":      a.HookResult,
	}
}

// Parameters returns the attention weights and biases.
func (a *Attention) Parameters() []*Parameter {
	return []*Parameter{a.WQ, a.WK, a.WV, a.WO, a.BQ, a.BK, a.BV, a.BO}
}

// Mask exposes the precomputed attention mask (read-only, shared across
// forward calls). Element (q, k) is 1 when query q may attend to key k.
func (a *Attention) Mask() *tensor.Tensor {
	return a.mask
}
