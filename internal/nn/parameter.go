package nn

import (
	"math/rand"

	"github.com/yzhhr/TransformerLens/internal/tensor"
)

// Parameter is a named weight or bias tensor.
//
// Parameters are created once at model construction and filled by external
// code (a parameter store, a test fixture, an init helper); the forward
// pass only ever reads them. Gradients are out of scope, so unlike a
// training framework's parameter there is no attached grad tensor.
type Parameter struct {
	name   string
	tensor *tensor.Tensor
}

// NewParameter creates a parameter wrapping an initialized tensor.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name. After the owning model's setup pass the
// name is fully qualified, e.g. "blocks.0.attn.W_Q".
func (p *Parameter) Name() string {
	return p.name
}

// SetName assigns the qualified name. Called once, by the owning model.
func (p *Parameter) SetName(name string) {
	p.name = name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// FillConstant sets every element of the parameter to the same value.
func (p *Parameter) FillConstant(value float32) {
	data := p.tensor.Data()
	for i := range data {
		data[i] = value
	}
}

// FillNormal fills the parameter with N(0, std) values from a seeded
// generator, so fixtures are reproducible.
func (p *Parameter) FillNormal(seed int64, std float32) {
	rng := rand.New(rand.NewSource(seed))
	data := p.tensor.Data()
	for i := range data {
		data[i] = std * float32(rng.NormFloat64())
	}
}
