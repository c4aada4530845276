package nn

import (
	"fmt"

	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// Embed maps token IDs to residual-stream vectors by gathering rows of
// W_E [d_vocab, d_model].
type Embed struct {
	cfg Config
	WE  *Parameter // [d_vocab, d_model]
}

// NewEmbed creates the token embedding.
func NewEmbed(cfg Config) *Embed {
	return &Embed{
		cfg: cfg,
		WE:  NewParameter("W_E", tensor.Zeros(tensor.Shape{cfg.DVocab, cfg.DModel})),
	}
}

// Forward gathers embeddings for a [batch][pos] token grid, producing
// [batch, pos, d_model]. All rows must share one length.
func (e *Embed) Forward(tokens [][]int) *tensor.Tensor {
	batch := len(tokens)
	if batch == 0 {
		panic("Embed: empty token batch")
	}
	pos := len(tokens[0])
	m := e.cfg.DModel

	out := tensor.New(tensor.Shape{batch, pos, m})
	outData := out.Data()
	weData := e.WE.Tensor().Data()
	for b, row := range tokens {
		if len(row) != pos {
			panic(fmt.Sprintf("Embed: ragged token batch, row %d has %d tokens, expected %d", b, len(row), pos))
		}
		for p, tok := range row {
			if tok < 0 || tok >= e.cfg.DVocab {
				panic(fmt.Sprintf("Embed: token %d out of vocabulary range [0, %d)", tok, e.cfg.DVocab))
			}
			copy(outData[(b*pos+p)*m:(b*pos+p+1)*m], weData[tok*m:(tok+1)*m])
		}
	}
	return out
}

// Parameters returns the embedding table.
func (e *Embed) Parameters() []*Parameter {
	return []*Parameter{e.WE}
}

// PosEmbed supplies learned positional embeddings: the first pos rows of
// W_pos [n_ctx, d_model], broadcast over the batch.
type PosEmbed struct {
	cfg  Config
	WPos *Parameter // [n_ctx, d_model]
}

// NewPosEmbed creates the positional embedding.
func NewPosEmbed(cfg Config) *PosEmbed {
	return &PosEmbed{
		cfg:  cfg,
		WPos: NewParameter("W_pos", tensor.Zeros(tensor.Shape{cfg.NCtx, cfg.DModel})),
	}
}

// Forward returns [pos, d_model] for a sequence of the given length. The
// result broadcasts against the token embedding's [batch, pos, d_model].
func (e *PosEmbed) Forward(pos int) *tensor.Tensor {
	if pos <= 0 || pos > e.cfg.NCtx {
		panic(fmt.Sprintf("PosEmbed: sequence length %d outside (0, %d]", pos, e.cfg.NCtx))
	}
	return e.WPos.Tensor().Slice([]int{0, 0}, []int{pos, e.cfg.DModel})
}

// Parameters returns the positional embedding table.
func (e *PosEmbed) Parameters() []*Parameter {
	return []*Parameter{e.WPos}
}

// Unembed projects the final residual stream to vocabulary logits via
// W_U [d_model, d_vocab] plus b_U.
type Unembed struct {
	cfg Config
	WU  *Parameter // [d_model, d_vocab]
	BU  *Parameter // [d_vocab]
}

// NewUnembed creates the unembedding projection.
func NewUnembed(cfg Config) *Unembed {
	return &Unembed{
		cfg: cfg,
		WU:  NewParameter("W_U", tensor.Zeros(tensor.Shape{cfg.DModel, cfg.DVocab})),
		BU:  NewParameter("b_U", tensor.Zeros(tensor.Shape{cfg.DVocab})),
	}
}

// Forward maps [batch, pos, d_model] to logits [batch, pos, d_vocab].
func (u *Unembed) Forward(residual *tensor.Tensor) *tensor.Tensor {
	return residual.MatMul(u.WU.Tensor()).Add(u.BU.Tensor())
}

// Parameters returns the unembedding weights.
func (u *Unembed) Parameters() []*Parameter {
	return []*Parameter{u.WU, u.BU}
}
