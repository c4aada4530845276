package hooks

import (
	"sort"

	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// ActivationCache accumulates hooked tensors keyed by hook point name.
//
// A cache is filled by attaching Caching(cache) as an observer to the hook
// points of interest and running a forward pass. The cache stores clones,
// so later stages of the pass cannot alias cached values.
//
// The cache is not safe for concurrent forward passes; use one cache per
// pass.
type ActivationCache struct {
	activations map[string]*tensor.Tensor
}

// NewActivationCache creates an empty cache.
func NewActivationCache() *ActivationCache {
	return &ActivationCache{activations: make(map[string]*tensor.Tensor)}
}

// Store records a tensor under the given name, replacing any previous
// entry. The tensor is cloned.
func (c *ActivationCache) Store(name string, t *tensor.Tensor) {
	c.activations[name] = t.Clone()
}

// Get returns the cached tensor for a hook point name, or nil if the name
// was never stored.
func (c *ActivationCache) Get(name string) *tensor.Tensor {
	return c.activations[name]
}

// Names returns the stored hook point names in sorted order.
func (c *ActivationCache) Names() []string {
	names := make([]string, 0, len(c.activations))
	for name := range c.activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of cached activations.
func (c *ActivationCache) Len() int {
	return len(c.activations)
}

// Fingerprints returns the xxhash fingerprint of every cached tensor,
// keyed by name. Handy for diffing two instrumented passes.
func (c *ActivationCache) Fingerprints() map[string]uint64 {
	fps := make(map[string]uint64, len(c.activations))
	for name, t := range c.activations {
		fps[name] = t.Fingerprint()
	}
	return fps
}

// Caching returns an observer hook that stores each value it sees into the
// cache under the firing hook point's name.
func Caching(cache *ActivationCache) Hook {
	return func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor {
		cache.Store(hp.Name(), x)
		return x
	}
}
