package nn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yzhhr/TransformerLens/internal/hooks"
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

func modelConfig() Config {
	cfg := testConfig()
	cfg.Norm = NormLayerNormPre
	cfg.UseAttnResult = true
	return cfg
}

// fillModel gives every model parameter a deterministic random value,
// keyed by parameter order so two models built from the same config get
// identical weights.
func fillModel(m *Transformer, base int64) {
	for i, p := range m.Parameters() {
		p.FillNormal(base+int64(i), 0.02)
	}
}

func TestNewTransformer_InvalidConfig(t *testing.T) {
	cfg := modelConfig()
	cfg.NLayers = 0
	_, err := NewTransformer(cfg)
	assert.Error(t, err)

	cfg = modelConfig()
	cfg.UseLocalAttn = true
	cfg.WindowSize = 2
	cfg.AttnKinds = []AttnKind{AttnGlobal} // one kind for two blocks
	_, err = NewTransformer(cfg)
	assert.Error(t, err)

	cfg = modelConfig()
	cfg.DVocab = 0
	_, err = NewTransformer(cfg)
	assert.Error(t, err)
}

func TestTransformer_ForwardShape(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	fillModel(m, 1000)

	logits := m.Forward([][]int{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, tensor.Shape{2, 3, m.Config().DVocab}, logits.Shape())
}

func TestTransformer_ConstantWeightsCollapse(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	// Constant embeddings make every residual vector constant across
	// features, so the centering inside LayerNormPre collapses the input
	// of every attention and MLP layer and the final residual vanishes
	// up to rounding.
	for _, p := range m.Parameters() {
		p.FillConstant(0.01)
	}

	residual := m.ForwardResidual([][]int{{0, 1, 2, 3}})
	for _, v := range residual.Data() {
		assert.InDelta(t, 0, float64(v), 1e-3)
	}
}

func TestTransformer_GoldenFixture(t *testing.T) {
	build := func() *Transformer {
		cfg := testConfig()
		cfg.Norm = NormLayerNormPre
		m, err := NewTransformer(cfg)
		require.NoError(t, err)
		// All weight matrices share one small constant, biases stay zero.
		for _, p := range m.Parameters() {
			name := p.Name()
			if strings.HasPrefix(name[strings.LastIndex(name, ".")+1:], "W_") {
				p.FillConstant(0.02)
			}
		}
		return m
	}

	tokens := [][]int{{1, 2, 3}}
	a := build().Forward(tokens)
	b := build().Forward(tokens)

	// Bit-reproducible across identically constructed models.
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, tensor.Shape{1, 3, 10}, a.Shape())

	// Constant embeddings collapse under the centering inside
	// LayerNormPre, so with zero biases the logits stay near zero.
	for _, v := range a.Data() {
		assert.InDelta(t, 0, float64(v), 1e-3)
	}
}

func TestTransformer_Deterministic(t *testing.T) {
	a, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	b, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	fillModel(a, 1000)
	fillModel(b, 1000)

	tokens := [][]int{{3, 1, 4, 1}}
	assert.Equal(t, a.Forward(tokens).Fingerprint(), b.Forward(tokens).Fingerprint())
}

func TestTransformer_HookNames(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, name := range m.HookNames() {
		names[name] = true
	}
	for _, want := range []string{
		"hook_embed",
		"hook_pos_embed",
		"blocks.0.hook_resid_pre",
		"blocks.0.attn.hook_q",
		"blocks.0.attn.hook_attn",
		"blocks.0.mlp.hook_pre",
		"blocks.1.hook_resid_post",
		"blocks.1.ln1.hook_scale",
		"ln_final.hook_normalized",
	} {
		assert.True(t, names[want], "missing hook point %s", want)
	}

	hp, err := m.HookPoint("blocks.1.attn.hook_z")
	require.NoError(t, err)
	assert.Equal(t, "blocks.1.attn.hook_z", hp.Name())

	_, err = m.HookPoint("blocks.7.attn.hook_z")
	assert.Error(t, err)
}

func TestTransformer_AddHookAndReset(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	fillModel(m, 1100)

	tokens := [][]int{{1, 2, 3}}
	plain := m.Forward(tokens).Fingerprint()

	err = m.AddHook("blocks.0.hook_attn_out", func(x *tensor.Tensor, hp *hooks.HookPoint) *tensor.Tensor {
		return tensor.Zeros(x.Shape())
	})
	require.NoError(t, err)
	ablated := m.Forward(tokens).Fingerprint()
	assert.NotEqual(t, plain, ablated)

	m.ResetHooks()
	assert.Equal(t, plain, m.Forward(tokens).Fingerprint())

	assert.Error(t, m.AddHook("no_such_hook", func(x *tensor.Tensor, hp *hooks.HookPoint) *tensor.Tensor {
		return nil
	}))
}

func TestTransformer_RunWithHooksIsScoped(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	fillModel(m, 1200)

	tokens := [][]int{{1, 2, 3}}
	plain := m.Forward(tokens).Fingerprint()

	hooked, err := m.RunWithHooks(tokens, []NamedHook{{
		Name: "blocks.0.hook_mlp_out",
		Fn: func(x *tensor.Tensor, hp *hooks.HookPoint) *tensor.Tensor {
			return tensor.Zeros(x.Shape())
		},
	}})
	require.NoError(t, err)
	assert.NotEqual(t, plain, hooked.Fingerprint())

	// The scoped hooks are gone after the run.
	assert.Equal(t, plain, m.Forward(tokens).Fingerprint())

	_, err = m.RunWithHooks(tokens, []NamedHook{{Name: "bogus"}})
	assert.Error(t, err)
}

func TestTransformer_RunWithCache(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	fillModel(m, 1300)

	tokens := [][]int{{2, 4, 6}}
	plain := m.Forward(tokens)

	logits, cache := m.RunWithCache(tokens)
	assert.Equal(t, plain.Fingerprint(), logits.Fingerprint())
	assert.Equal(t, len(m.HookNames()), cache.Len())

	resid := cache.Get("blocks.0.hook_resid_pre")
	require.NotNil(t, resid)
	assert.Equal(t, tensor.Shape{1, 3, m.Config().DModel}, resid.Shape())

	pattern := cache.Get("blocks.1.attn.hook_attn")
	require.NotNil(t, pattern)
	assert.Equal(t, tensor.Shape{1, m.Config().NHeads, 3, 3}, pattern.Shape())

	// Residual additivity holds across the whole cached pass.
	mid := cache.Get("blocks.0.hook_resid_mid")
	want := cache.Get("blocks.0.hook_resid_pre").Add(cache.Get("blocks.0.hook_attn_out"))
	assert.True(t, mid.Equal(want))

	// Caching observers are detached before returning.
	assert.Equal(t, plain.Fingerprint(), m.Forward(tokens).Fingerprint())
	hp, err := m.HookPoint("hook_embed")
	require.NoError(t, err)
	assert.Equal(t, 0, hp.NumHooks())
}

func TestTransformer_Parameters(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)

	params := m.Parameters()
	require.NotEmpty(t, params)
	for i := 1; i < len(params); i++ {
		assert.Less(t, params[i-1].Name(), params[i].Name())
	}

	wq, err := m.Parameter("blocks.0.attn.W_Q")
	require.NoError(t, err)
	cfg := m.Config()
	assert.Equal(t, tensor.Shape{cfg.NHeads, cfg.DModel, cfg.DHead}, wq.Tensor().Shape())

	we, err := m.Parameter("embed.W_E")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{cfg.DVocab, cfg.DModel}, we.Tensor().Shape())

	_, err = m.Parameter("blocks.0.attn.W_X")
	assert.Error(t, err)
}

func TestTransformer_AttnOnly(t *testing.T) {
	cfg := modelConfig()
	cfg.AttnOnly = true
	cfg.DMLP = 0
	m, err := NewTransformer(cfg)
	require.NoError(t, err)
	fillModel(m, 1400)

	logits := m.Forward([][]int{{1, 2}})
	assert.Equal(t, tensor.Shape{1, 2, cfg.DVocab}, logits.Shape())

	for _, name := range m.HookNames() {
		assert.NotContains(t, name, "mlp")
	}
}

func TestTransformer_EmbedValidation(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)

	assert.Panics(t, func() { m.Forward([][]int{}) })
	assert.Panics(t, func() { m.Forward([][]int{{1, 2}, {3}}) })
	assert.Panics(t, func() { m.Forward([][]int{{m.Config().DVocab}}) })
	assert.Panics(t, func() { m.Forward([][]int{{1, 2, 3, 4, 5}}) }) // beyond n_ctx
}

func TestTransformer_HookPanicPropagates(t *testing.T) {
	m, err := NewTransformer(modelConfig())
	require.NoError(t, err)
	fillModel(m, 1500)

	require.NoError(t, m.AddHook("blocks.0.attn.hook_q", func(x *tensor.Tensor, hp *hooks.HookPoint) *tensor.Tensor {
		panic("probe failure")
	}))
	assert.PanicsWithValue(t, "probe failure", func() {
		m.Forward([][]int{{1, 2}})
	})
}
