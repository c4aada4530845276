package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yzhhr/TransformerLens/internal/tensor"
)

func TestHookPoint_IdentityWhenEmpty(t *testing.T) {
	hp := New()
	x := tensor.Randn(tensor.Shape{2, 3}, 1)

	y := hp.Apply(x)
	assert.Same(t, x, y)
}

func TestHookPoint_ObserverSeesButCannotChange(t *testing.T) {
	hp := New()
	hp.SetName("hook_test")

	var seen *tensor.Tensor
	hp.AddObserver(func(x *tensor.Tensor, hp *HookPoint) {
		seen = x
		assert.Equal(t, "hook_test", hp.Name())
	})

	x := tensor.Randn(tensor.Shape{2, 2}, 3)
	y := hp.Apply(x)
	assert.Same(t, x, y)
	assert.Same(t, x, seen)
}

func TestHookPoint_ReplaceChangesValue(t *testing.T) {
	hp := New()
	replacement := tensor.Ones(tensor.Shape{2})
	hp.Add(func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor {
		return replacement
	})

	y := hp.Apply(tensor.Zeros(tensor.Shape{2}))
	assert.Same(t, replacement, y)
}

func TestHookPoint_NilReturnKeepsValue(t *testing.T) {
	hp := New()
	hp.Add(func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor {
		return nil
	})

	x := tensor.Ones(tensor.Shape{2})
	assert.Same(t, x, hp.Apply(x))
}

func TestHookPoint_RunInRegistrationOrder(t *testing.T) {
	hp := New()
	var order []int
	hp.Add(func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor {
		order = append(order, 1)
		return x.AddScalar(1)
	})
	hp.Add(func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor {
		order = append(order, 2)
		return x.MulScalar(10)
	})

	y := hp.Apply(tensor.Zeros(tensor.Shape{1}))
	assert.Equal(t, []int{1, 2}, order)
	// (0 + 1) * 10, not 0*10 + 1.
	assert.Equal(t, float32(10), y.At(0))
}

func TestHookPoint_AddNilPanics(t *testing.T) {
	hp := New()
	assert.Panics(t, func() { hp.Add(nil) })
	assert.Panics(t, func() { hp.AddObserver(nil) })
}

func TestHookPoint_ResetAndTruncate(t *testing.T) {
	hp := New()
	noop := func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor { return nil }
	hp.Add(noop)
	hp.Add(noop)
	hp.Add(noop)
	assert.Equal(t, 3, hp.NumHooks())

	hp.Truncate(1)
	assert.Equal(t, 1, hp.NumHooks())
	assert.Panics(t, func() { hp.Truncate(5) })
	assert.Panics(t, func() { hp.Truncate(-1) })

	hp.Reset()
	assert.Equal(t, 0, hp.NumHooks())
}

func TestHookPoint_PanicPropagates(t *testing.T) {
	hp := New()
	hp.Add(func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor {
		panic("ablation failed")
	})

	assert.PanicsWithValue(t, "ablation failed", func() {
		hp.Apply(tensor.Zeros(tensor.Shape{1}))
	})
}

func TestActivationCache_StoresClones(t *testing.T) {
	cache := NewActivationCache()
	x := tensor.Ones(tensor.Shape{2})
	cache.Store("hook_a", x)

	// Mutating the original must not touch the cached copy.
	x.Data()[0] = 99
	cached := cache.Get("hook_a")
	require.NotNil(t, cached)
	assert.Equal(t, float32(1), cached.At(0))

	assert.Nil(t, cache.Get("missing"))
}

func TestActivationCache_NamesSorted(t *testing.T) {
	cache := NewActivationCache()
	cache.Store("hook_b", tensor.Zeros(tensor.Shape{1}))
	cache.Store("hook_a", tensor.Zeros(tensor.Shape{1}))
	cache.Store("hook_c", tensor.Zeros(tensor.Shape{1}))

	assert.Equal(t, []string{"hook_a", "hook_b", "hook_c"}, cache.Names())
	assert.Equal(t, 3, cache.Len())
}

func TestCaching_KeyedByHookPointName(t *testing.T) {
	cache := NewActivationCache()

	hp := New()
	hp.SetName("blocks.0.hook_resid_pre")
	hp.Add(Caching(cache))

	x := tensor.Randn(tensor.Shape{2, 2}, 5)
	y := hp.Apply(x)
	assert.Same(t, x, y)

	cached := cache.Get("blocks.0.hook_resid_pre")
	require.NotNil(t, cached)
	assert.True(t, cached.Equal(x))
	assert.Equal(t, x.Fingerprint(), cached.Fingerprint())
}
