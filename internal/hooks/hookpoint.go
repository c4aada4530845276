// Package hooks implements named interception points for forward passes.
//
// A HookPoint is an identity transform wrapping one intermediate tensor in
// the computation graph. External code attaches transforms to a hook point
// by name; with nothing attached the hook point passes its input through
// untouched, so an uninstrumented forward pass is bit-identical to an
// instrumented one whose transforms are all identities.
package hooks

import (
	"fmt"

	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// Hook is a transform attached to a HookPoint. It receives the current
// value of the hooked tensor and the hook point it fires on (useful for
// name-keyed caching). Returning a tensor replaces the value seen by the
// rest of the forward pass; returning nil keeps the value unchanged.
//
// Hooks run synchronously and inline, in registration order, exactly once
// per forward pass per component instance. A panic inside a hook
// propagates unmodified to the caller of the forward pass.
type Hook func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor

// HookPoint is a named identity node in the computation graph.
//
// The zero value is usable; New gives it an allocation in one call.
// Names are assigned when the owning model wires its components together
// (see nn.Transformer), encoding block index and signal, e.g.
// "blocks.2.attn.hook_q".
type HookPoint struct {
	name  string
	hooks []Hook
}

// New creates an unnamed HookPoint with no hooks attached.
func New() *HookPoint {
	return &HookPoint{}
}

// Name returns the hook point's registered name.
func (hp *HookPoint) Name() string {
	return hp.name
}

// SetName assigns the hook point's stable name. Called once, by the model
// that owns the component tree.
func (hp *HookPoint) SetName(name string) {
	hp.name = name
}

// Add attaches a transform. Transforms run in registration order, each
// receiving the previous transform's output.
func (hp *HookPoint) Add(fn Hook) {
	if fn == nil {
		panic(fmt.Sprintf("HookPoint: nil hook added to %q", hp.name))
	}
	hp.hooks = append(hp.hooks, fn)
}

// AddObserver attaches a read-only transform: it sees the value but cannot
// change it. Used for caching and logging.
func (hp *HookPoint) AddObserver(fn func(x *tensor.Tensor, hp *HookPoint)) {
	if fn == nil {
		panic(fmt.Sprintf("HookPoint: nil observer added to %q", hp.name))
	}
	hp.hooks = append(hp.hooks, func(x *tensor.Tensor, hp *HookPoint) *tensor.Tensor {
		fn(x, hp)
		return x
	})
}

// Reset detaches every hook.
func (hp *HookPoint) Reset() {
	hp.hooks = nil
}

// Truncate keeps only the first n hooks. Used to restore a hook point
// after a scoped run attached temporary hooks on top of persistent ones.
func (hp *HookPoint) Truncate(n int) {
	if n < 0 || n > len(hp.hooks) {
		panic(fmt.Sprintf("HookPoint: cannot truncate %q to %d hooks (have %d)", hp.name, n, len(hp.hooks)))
	}
	hp.hooks = hp.hooks[:n]
}

// NumHooks returns the number of attached hooks.
func (hp *HookPoint) NumHooks() int {
	return len(hp.hooks)
}

// Apply runs the hook point on x. With no hooks attached it returns x
// itself; otherwise each hook runs in order and the final value is
// returned.
func (hp *HookPoint) Apply(x *tensor.Tensor) *tensor.Tensor {
	for _, fn := range hp.hooks {
		if y := fn(x, hp); y != nil {
			x = y
		}
	}
	return x
}
