package nn

import (
	"fmt"
	"sort"

	"github.com/yzhhr/TransformerLens/internal/hooks"
	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// Transformer is the full hooked model: token and positional embeddings,
// a sequential stack of blocks sharing one Config, an optional final
// normalization, and the unembedding projection to logits.
//
// Blocks are strictly sequential; block n+1 consumes block n's residual
// stream. Every hook point in the component tree is addressable through
// the model by a stable dotted name, e.g. "blocks.2.attn.hook_attn".
//
// Parameters and attention masks are read-only during forward passes and
// may be shared across concurrent calls on different inputs. Hooks attach
// to shared state, so scoped helpers (RunWithHooks, RunWithCache) must
// not run concurrently on one model.
type Transformer struct {
	cfg Config

	Embed    *Embed
	PosEmbed *PosEmbed
	Blocks   []Block
	LnFinal  Normalizer
	Unembed  *Unembed

	HookEmbed    *hooks.HookPoint // [batch, pos, d_model]
	HookPosEmbed *hooks.HookPoint // [pos, d_model]

	points map[string]*hooks.HookPoint
	params map[string]*Parameter
}

// NamedHook pairs a hook point name with a transform, for scoped runs.
type NamedHook struct {
	Name string
	Fn   hooks.Hook
}

// NewTransformer builds the model for a validated configuration.
func NewTransformer(cfg Config) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Transformer{
		cfg:          cfg,
		Embed:        NewEmbed(cfg),
		PosEmbed:     NewPosEmbed(cfg),
		LnFinal:      newNormalizer(cfg, cfg.DModel),
		Unembed:      NewUnembed(cfg),
		HookEmbed:    hooks.New(),
		HookPosEmbed: hooks.New(),
	}
	for i := 0; i < cfg.NLayers; i++ {
		if cfg.AttnOnly {
			m.Blocks = append(m.Blocks, NewAttnOnlyBlock(cfg, i))
		} else {
			m.Blocks = append(m.Blocks, NewTransformerBlock(cfg, i))
		}
	}
	m.setup()
	return m, nil
}

// Config returns the model's configuration.
func (m *Transformer) Config() Config {
	return m.cfg
}

// setup assigns every hook point and parameter its stable qualified name
// and indexes them for lookup. Runs once, from NewTransformer.
func (m *Transformer) setup() {
	m.points = make(map[string]*hooks.HookPoint)
	m.params = make(map[string]*Parameter)

	register := func(name string, hp *hooks.HookPoint) {
		hp.SetName(name)
		m.points[name] = hp
	}
	registerParams := func(prefix string, params []*Parameter) {
		for _, p := range params {
			p.SetName(prefix + "." + p.Name())
			m.params[p.Name()] = p
		}
	}

	register("hook_embed", m.HookEmbed)
	register("hook_pos_embed", m.HookPosEmbed)
	registerParams("embed", m.Embed.Parameters())
	registerParams("pos_embed", m.PosEmbed.Parameters())

	for i, blk := range m.Blocks {
		prefix := fmt.Sprintf("blocks.%d", i)
		for name, hp := range blk.HookPoints() {
			register(prefix+"."+name, hp)
		}
		registerParams(prefix, blk.Parameters())
	}

	for name, hp := range m.LnFinal.HookPoints() {
		register("ln_final."+name, hp)
	}
	registerParams("ln_final", m.LnFinal.Parameters())
	registerParams("unembed", m.Unembed.Parameters())
}

// Forward runs the model on a [batch][pos] token grid and returns logits
// [batch, pos, d_vocab].
func (m *Transformer) Forward(tokens [][]int) *tensor.Tensor {
	return m.Unembed.Forward(m.ForwardResidual(tokens))
}

// ForwardResidual runs the model up to (and including) the final
// normalization, returning the residual stream [batch, pos, d_model].
func (m *Transformer) ForwardResidual(tokens [][]int) *tensor.Tensor {
	embed := m.HookEmbed.Apply(m.Embed.Forward(tokens))
	posEmbed := m.HookPosEmbed.Apply(m.PosEmbed.Forward(len(tokens[0])))

	residual := embed.Add(posEmbed)
	for _, blk := range m.Blocks {
		residual = blk.Forward(residual)
	}
	return m.LnFinal.Forward(residual)
}

// HookNames returns every addressable hook point name in sorted order.
func (m *Transformer) HookNames() []string {
	names := make([]string, 0, len(m.points))
	for name := range m.points {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HookPoint looks up a hook point by its qualified name.
func (m *Transformer) HookPoint(name string) (*hooks.HookPoint, error) {
	hp, ok := m.points[name]
	if !ok {
		return nil, fmt.Errorf("unknown hook point %q", name)
	}
	return hp, nil
}

// AddHook attaches a transform to the named hook point. It stays attached
// until ResetHooks (or the hook point's own Reset) removes it.
func (m *Transformer) AddHook(name string, fn hooks.Hook) error {
	hp, err := m.HookPoint(name)
	if err != nil {
		return err
	}
	hp.Add(fn)
	return nil
}

// AddObserver attaches a read-only transform to the named hook point.
func (m *Transformer) AddObserver(name string, fn func(x *tensor.Tensor, hp *hooks.HookPoint)) error {
	hp, err := m.HookPoint(name)
	if err != nil {
		return err
	}
	hp.AddObserver(fn)
	return nil
}

// ResetHooks detaches every hook from every hook point.
func (m *Transformer) ResetHooks() {
	for _, hp := range m.points {
		hp.Reset()
	}
}

// RunWithHooks runs a forward pass with the given hooks attached for the
// duration of the call only. Previously-attached hooks stay in place and
// run first. An unknown hook name is an error before the pass starts.
func (m *Transformer) RunWithHooks(tokens [][]int, named []NamedHook) (*tensor.Tensor, error) {
	restore, err := m.attachScoped(named)
	if err != nil {
		return nil, err
	}
	defer restore()
	return m.Forward(tokens), nil
}

// RunWithCache runs a forward pass while caching every hook point's value,
// returning the logits and the filled cache. Temporary caching observers
// are detached before returning.
func (m *Transformer) RunWithCache(tokens [][]int) (*tensor.Tensor, *hooks.ActivationCache) {
	cache := hooks.NewActivationCache()
	caching := hooks.Caching(cache)

	counts := make(map[*hooks.HookPoint]int, len(m.points))
	for _, hp := range m.points {
		counts[hp] = hp.NumHooks()
		hp.Add(caching)
	}
	defer func() {
		for hp, n := range counts {
			hp.Truncate(n)
		}
	}()

	return m.Forward(tokens), cache
}

// attachScoped attaches named hooks and returns a restore function that
// detaches exactly those hooks.
func (m *Transformer) attachScoped(named []NamedHook) (func(), error) {
	counts := make(map[*hooks.HookPoint]int)
	for _, nh := range named {
		hp, err := m.HookPoint(nh.Name)
		if err != nil {
			return nil, err
		}
		if _, seen := counts[hp]; !seen {
			counts[hp] = hp.NumHooks()
		}
		hp.Add(nh.Fn)
	}
	return func() {
		for hp, n := range counts {
			hp.Truncate(n)
		}
	}, nil
}

// Parameters returns every parameter in the model, sorted by qualified
// name, for an external parameter store to fill.
func (m *Transformer) Parameters() []*Parameter {
	names := make([]string, 0, len(m.params))
	for name := range m.params {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]*Parameter, len(names))
	for i, name := range names {
		params[i] = m.params[name]
	}
	return params
}

// Parameter looks up a parameter by its qualified name, e.g.
// "blocks.0.attn.W_Q".
func (m *Transformer) Parameter(name string) (*Parameter, error) {
	p, ok := m.params[name]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", name)
	}
	return p, nil
}
