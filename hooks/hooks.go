// Copyright 2025 the TransformerLens Go authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package hooks exposes hook points and activation caching.
//
// A HookPoint is an identity node placed at a named intermediate
// activation. With no hooks attached it passes its input through
// untouched; attached hooks see the value and may replace it.
package hooks

import (
	"github.com/yzhhr/TransformerLens/internal/hooks"
)

// Hook transforms the value flowing through a HookPoint. Returning nil
// keeps the value unchanged.
type Hook = hooks.Hook

// HookPoint is a named identity node in the forward pass.
type HookPoint = hooks.HookPoint

// ActivationCache stores captured activations by hook point name.
type ActivationCache = hooks.ActivationCache

// New creates an unnamed hook point with no hooks attached.
func New() *HookPoint {
	return hooks.New()
}

// NewActivationCache creates an empty cache.
func NewActivationCache() *ActivationCache {
	return hooks.NewActivationCache()
}

// Caching returns a hook that stores each value it sees in cache,
// keyed by the hook point's name.
func Caching(cache *ActivationCache) Hook {
	return hooks.Caching(cache)
}
