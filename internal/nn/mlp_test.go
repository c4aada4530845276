package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yzhhr/TransformerLens/internal/hooks"
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

func TestActivations_KnownValues(t *testing.T) {
	in, err := tensor.FromSlice([]float32{-2, -1, 0, 1, 2}, tensor.Shape{5})
	require.NoError(t, err)

	tests := []struct {
		name string
		fn   func(*tensor.Tensor) *tensor.Tensor
		want []float32
	}{
		{"relu", ReLU, []float32{0, 0, 0, 1, 2}},
		{"gelu", GELU, []float32{-0.04550, -0.15866, 0, 0.84134, 1.95450}},
		{"gelu_new", GELUNew, []float32{-0.04540, -0.15881, 0, 0.84119, 1.95460}},
		{"silu", SiLU, []float32{-0.23841, -0.26894, 0, 0.73106, 1.76159}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.fn(in)
			for i, want := range tc.want {
				assert.InDelta(t, float64(want), float64(out.At(i)), 1e-4)
			}
		})
	}
}

func TestSoLU_GatesWithSoftmax(t *testing.T) {
	in, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3})
	require.NoError(t, err)

	out := SoLU(in)
	gate := in.Softmax(-1)
	want := in.Mul(gate)
	assert.True(t, out.Equal(want))
}

func TestMLP_IdentityWeightsApplyActivation(t *testing.T) {
	cfg := testConfig()
	cfg.DMLP = cfg.DModel // square projections so identity weights exist
	mlp := NewMLP(cfg)
	for i := 0; i < cfg.DModel; i++ {
		mlp.WIn.Tensor().SetAt(1, i, i)
		mlp.WOut.Tensor().SetAt(1, i, i)
	}

	x := tensor.Randn(tensor.Shape{1, 2, cfg.DModel}, 13)
	out := mlp.Forward(x)
	assert.True(t, out.Equal(ReLU(x)))
}

func TestMLP_HooksFireInOrder(t *testing.T) {
	cfg := testConfig()
	mlp := NewMLP(cfg)
	for i, p := range mlp.Parameters() {
		p.FillNormal(int64(400+i), 0.1)
	}

	var pre, post *tensor.Tensor
	mlp.HookPre.AddObserver(func(x *tensor.Tensor, hp *hooks.HookPoint) { pre = x })
	mlp.HookPost.AddObserver(func(x *tensor.Tensor, hp *hooks.HookPoint) { post = x })

	mlp.Forward(tensor.Randn(tensor.Shape{1, 3, cfg.DModel}, 19))

	require.NotNil(t, pre)
	require.NotNil(t, post)
	assert.Equal(t, tensor.Shape{1, 3, cfg.DMLP}, pre.Shape())
	assert.Equal(t, tensor.Shape{1, 3, cfg.DMLP}, post.Shape())
	assert.True(t, post.Equal(ReLU(pre)))
}

func TestMLP_SoLULN(t *testing.T) {
	cfg := testConfig()
	cfg.Act = ActSoLULN
	mlp := NewMLP(cfg)

	points := mlp.HookPoints()
	require.Contains(t, points, "hook_post_ln")
	require.Contains(t, points, "ln.hook_scale")
	require.Contains(t, points, "ln.hook_normalized")

	var postLN *tensor.Tensor
	mlp.HookPostLN.AddObserver(func(x *tensor.Tensor, hp *hooks.HookPoint) { postLN = x })

	mlp.Forward(tensor.Randn(tensor.Shape{1, 2, cfg.DModel}, 29))

	// The internal LayerNorm runs over the hidden axis.
	require.NotNil(t, postLN)
	assert.Equal(t, tensor.Shape{1, 2, cfg.DMLP}, postLN.Shape())

	names := make([]string, 0, len(mlp.Parameters()))
	for _, p := range mlp.Parameters() {
		names = append(names, p.Name())
	}
	assert.Contains(t, names, "ln.w")
	assert.Contains(t, names, "ln.b")
}

func TestMLP_PlainActivationHasNoLNHooks(t *testing.T) {
	mlp := NewMLP(testConfig())
	points := mlp.HookPoints()
	assert.NotContains(t, points, "hook_post_ln")
	assert.Len(t, mlp.Parameters(), 4)
}

func TestNewMLP_UnknownActivationPanics(t *testing.T) {
	cfg := testConfig()
	cfg.Act = ActKind(99)
	assert.Panics(t, func() { NewMLP(cfg) })
}
