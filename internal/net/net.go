// Package net provides the sentiment network and the loops that train,
// evaluate and query it.
package net

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoSentiment/internal/checkpoint"
	"github.com/FlavioCFOliveira/GoSentiment/internal/data"
	"github.com/FlavioCFOliveira/GoSentiment/internal/layer"
)

var (
	// ErrDeviceMismatch is returned when an ExecContext names a device other than the model's.
	ErrDeviceMismatch = errors.New("execution device does not match model device")
	// ErrNoRandSource is returned for a training pass without a dropout source.
	ErrNoRandSource = errors.New("training pass needs a random source")
	// ErrInvalidConfig is returned by New for impossible architectures.
	ErrInvalidConfig = errors.New("invalid model config")
)

// Config describes the architecture of a Model.
type Config struct {
	VocabSize     int
	EmbeddingDim  int
	HiddenDim     int
	NLayers       int
	Bidirectional bool
	Dropout       float64
	PadIdx        int
}

// Validate reports whether the architecture can be built.
func (c Config) Validate() error {
	switch {
	case c.VocabSize < 1:
		return fmt.Errorf("%w: vocab size %d", ErrInvalidConfig, c.VocabSize)
	case c.EmbeddingDim < 1:
		return fmt.Errorf("%w: embedding dim %d", ErrInvalidConfig, c.EmbeddingDim)
	case c.HiddenDim < 1:
		return fmt.Errorf("%w: hidden dim %d", ErrInvalidConfig, c.HiddenDim)
	case c.NLayers < 1:
		return fmt.Errorf("%w: %d layers", ErrInvalidConfig, c.NLayers)
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("%w: dropout %g not in [0, 1)", ErrInvalidConfig, c.Dropout)
	case c.PadIdx < 0 || c.PadIdx >= c.VocabSize:
		return fmt.Errorf("%w: pad index %d outside vocabulary", ErrInvalidConfig, c.PadIdx)
	}
	return nil
}

func (c Config) architecture() checkpoint.Architecture {
	return checkpoint.Architecture(c)
}

// ConfigFromArchitecture converts checkpoint metadata back into a Config.
func ConfigFromArchitecture(a checkpoint.Architecture) Config {
	return Config(a)
}

// ExecContext names where and how a forward pass runs. Training enables
// dropout, which draws from Rand; evaluation ignores Rand entirely.
type ExecContext struct {
	Device   layer.Device
	Training bool
	Rand     *rand.Rand
}

// EvalContext returns an inference context on dev.
func EvalContext(dev layer.Device) ExecContext {
	return ExecContext{Device: dev}
}

// TrainContext returns a training context on dev with rng as dropout source.
func TrainContext(dev layer.Device, rng *rand.Rand) ExecContext {
	return ExecContext{Device: dev, Training: true, Rand: rng}
}

// Model is an embedding layer, a stacked (optionally bidirectional) LSTM
// encoder and a linear projection to a single logit.
type Model struct {
	Embedding *layer.Embedding
	Encoder   *layer.Encoder
	FC        *layer.Linear

	cfg     Config
	device  layer.Device
	dropout layer.Dropout
}

// New builds a randomly initialised model bound to dev.
func New(cfg Config, dev layer.Device, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil || !dev.IsAvailable() {
		return nil, fmt.Errorf("model device unavailable")
	}

	m := &Model{
		Embedding: layer.NewEmbedding(cfg.VocabSize, cfg.EmbeddingDim, cfg.PadIdx, rng),
		Encoder:   layer.NewEncoder(cfg.EmbeddingDim, cfg.HiddenDim, cfg.NLayers, cfg.Bidirectional, cfg.Dropout, rng),
		cfg:       cfg,
		device:    dev,
		dropout:   layer.NewDropout(cfg.Dropout),
	}
	m.FC = layer.NewLinear("fc", m.Encoder.OutSize(), 1, rng)
	return m, nil
}

// Config returns the architecture the model was built with.
func (m *Model) Config() Config {
	return m.cfg
}

// Device returns the device the model is bound to.
func (m *Model) Device() layer.Device {
	return m.device
}

// Layers returns the embedding, the encoder and the projection, in data-flow order.
func (m *Model) Layers() []layer.Layer {
	return []layer.Layer{m.Embedding, m.Encoder, m.FC}
}

// Parameters returns every trainable tensor, layer by layer.
func (m *Model) Parameters() []*layer.Parameter {
	var params []*layer.Parameter
	for _, l := range m.Layers() {
		params = append(params, l.Parameters()...)
	}
	return params
}

// CountParameters returns the number of trainable scalars.
func (m *Model) CountParameters() int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.Len()
	}
	return n
}

// ZeroGrad clears every accumulated gradient.
func (m *Model) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}

// forwardTrace is the record of one training forward pass.
type forwardTrace struct {
	tokens     [][]int     // tokens[t] holds position t of every active item
	embMasks   [][]float64 // dropout masks of the embedded steps
	enc        *layer.EncoderTrace
	hidden     *mat.Dense
	hiddenMask []float64
}

// Forward returns one logit per batch item, in batch order. Only the first
// Lengths[i] positions of item i are read, so padding never reaches the encoder.
func (m *Model) Forward(ctx ExecContext, b data.Batch) ([]float64, error) {
	logits, _, err := m.forward(ctx, b)
	return logits, err
}

// forward runs the whole batch at once: every time step of every layer is a
// single matrix product over the items still running at that step.
func (m *Model) forward(ctx ExecContext, b data.Batch) ([]float64, *forwardTrace, error) {
	if ctx.Device == nil || ctx.Device.Type() != m.device.Type() {
		return nil, nil, ErrDeviceMismatch
	}
	var rng *rand.Rand
	if ctx.Training {
		if ctx.Rand == nil {
			return nil, nil, ErrNoRandSource
		}
		rng = ctx.Rand
	}
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}

	embedded, err := layer.NewPacked(b.Lengths, m.cfg.EmbeddingDim)
	if err != nil {
		return nil, nil, err
	}
	tr := &forwardTrace{
		tokens:   make([][]int, len(embedded.Steps)),
		embMasks: make([][]float64, len(embedded.Steps)),
	}
	for t := range embedded.Steps {
		tr.tokens[t] = b.Tokens[t][:embedded.Active(t)]
		rows, err := m.Embedding.Lookup(tr.tokens[t])
		if err != nil {
			return nil, nil, fmt.Errorf("position %d: %w", t, err)
		}
		embedded.Steps[t], tr.embMasks[t] = m.dropout.ForwardDense(rows, rng)
	}

	final, encTrace, err := m.Encoder.Forward(embedded, rng)
	if err != nil {
		return nil, nil, err
	}
	tr.enc = encTrace
	tr.hidden, tr.hiddenMask = m.dropout.ForwardDense(final, rng)

	return mat.Col(nil, 0, m.FC.Forward(tr.hidden)), tr, nil
}

// backward accumulates parameter gradients given the loss gradient w.r.t.
// every logit of the traced pass.
func (m *Model) backward(tr *forwardTrace, dLogits []float64) {
	dl := mat.NewDense(len(dLogits), 1, append([]float64(nil), dLogits...))
	dHidden := m.FC.Backward(tr.hidden, dl)
	dFinal := m.dropout.BackwardDense(dHidden, tr.hiddenMask)

	dEmb := m.Encoder.Backward(tr.enc, dFinal)
	for t, g := range dEmb.Steps {
		m.Embedding.Backward(tr.tokens[t], m.dropout.BackwardDense(g, tr.embMasks[t]))
	}
}

// State returns a copy of every parameter keyed by name.
func (m *Model) State() map[string][]float64 {
	state := make(map[string][]float64)
	for _, p := range m.Parameters() {
		v := make([]float64, p.Len())
		copy(v, p.Value)
		state[p.Name] = v
	}
	return state
}

// LoadState overwrites parameters from state. Every model parameter must be
// present with the right size and no extra names are accepted.
func (m *Model) LoadState(state map[string][]float64) error {
	params := m.Parameters()
	if len(state) != len(params) {
		return fmt.Errorf("%w: %d tensors, model has %d", checkpoint.ErrUnknownParameter, len(state), len(params))
	}
	for _, p := range params {
		v, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("%w: %s missing", checkpoint.ErrUnknownParameter, p.Name)
		}
		if len(v) != p.Len() {
			return fmt.Errorf("%w: %s has %d values, want %d", checkpoint.ErrUnknownParameter, p.Name, len(v), p.Len())
		}
	}
	for _, p := range params {
		copy(p.Value, state[p.Name])
	}
	return nil
}

// Snapshot captures the model into a checkpoint.
func (m *Model) Snapshot() *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{
		Architecture: m.cfg.architecture(),
		Params:       m.State(),
	}
}

// FromCheckpoint rebuilds a model from c on dev.
func FromCheckpoint(c *checkpoint.Checkpoint, dev layer.Device) (*Model, error) {
	// Values are overwritten right away; the seed only feeds the throwaway init.
	m, err := New(ConfigFromArchitecture(c.Architecture), dev, rand.New(rand.NewPCG(0, 0)))
	if err != nil {
		return nil, err
	}
	if err := m.LoadState(c.Params); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadModel reads the checkpoint in filename and rebuilds its model on dev.
func LoadModel(filename string, dev layer.Device) (*Model, *checkpoint.Checkpoint, error) {
	c, err := checkpoint.Load(filename)
	if err != nil {
		return nil, nil, err
	}
	m, err := FromCheckpoint(c, dev)
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint %s: %w", filename, err)
	}
	return m, c, nil
}
