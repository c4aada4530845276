package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yzhhr/TransformerLens/internal/tensor"
)

func TestEmbed_GathersRows(t *testing.T) {
	cfg := testConfig()
	embed := NewEmbed(cfg)
	embed.WE.FillNormal(61, 1)

	out := embed.Forward([][]int{{3, 0, 3}})
	require.Equal(t, tensor.Shape{1, 3, cfg.DModel}, out.Shape())

	we := embed.WE.Tensor()
	for j := 0; j < cfg.DModel; j++ {
		assert.Equal(t, we.At(3, j), out.At(0, 0, j))
		assert.Equal(t, we.At(0, j), out.At(0, 1, j))
		assert.Equal(t, we.At(3, j), out.At(0, 2, j))
	}
}

func TestEmbed_Validation(t *testing.T) {
	embed := NewEmbed(testConfig())
	assert.Panics(t, func() { embed.Forward(nil) })
	assert.Panics(t, func() { embed.Forward([][]int{{1, 2}, {3}}) })
	assert.Panics(t, func() { embed.Forward([][]int{{-1}}) })
	assert.Panics(t, func() { embed.Forward([][]int{{testConfig().DVocab}}) })
}

func TestPosEmbed_PrefixRows(t *testing.T) {
	cfg := testConfig()
	pos := NewPosEmbed(cfg)
	pos.WPos.FillNormal(67, 1)

	out := pos.Forward(3)
	require.Equal(t, tensor.Shape{3, cfg.DModel}, out.Shape())
	for p := 0; p < 3; p++ {
		for j := 0; j < cfg.DModel; j++ {
			assert.Equal(t, pos.WPos.Tensor().At(p, j), out.At(p, j))
		}
	}

	assert.Panics(t, func() { pos.Forward(0) })
	assert.Panics(t, func() { pos.Forward(cfg.NCtx + 1) })
}

func TestPosEmbed_BroadcastsOverBatch(t *testing.T) {
	cfg := testConfig()
	embed := NewEmbed(cfg)
	pos := NewPosEmbed(cfg)
	embed.WE.FillNormal(71, 1)
	pos.WPos.FillNormal(73, 1)

	tokens := [][]int{{1, 2}, {3, 4}}
	sum := embed.Forward(tokens).Add(pos.Forward(2))
	require.Equal(t, tensor.Shape{2, 2, cfg.DModel}, sum.Shape())

	we, wp := embed.WE.Tensor(), pos.WPos.Tensor()
	assert.Equal(t, we.At(3, 0)+wp.At(0, 0), sum.At(1, 0, 0))
	assert.Equal(t, we.At(4, 5)+wp.At(1, 5), sum.At(1, 1, 5))
}

func TestUnembed_ProjectsToLogits(t *testing.T) {
	cfg := testConfig()
	unembed := NewUnembed(cfg)
	unembed.BU.FillConstant(0.25)

	// Zero weights leave only the bias.
	logits := unembed.Forward(tensor.Randn(tensor.Shape{1, 2, cfg.DModel}, 79))
	require.Equal(t, tensor.Shape{1, 2, cfg.DVocab}, logits.Shape())
	for _, v := range logits.Data() {
		assert.Equal(t, float32(0.25), v)
	}
}
