package engine

import (
	"context"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	aawasm "github.com/wippyai/aa-wasm"
	"github.com/wippyai/aa-wasm/errors"
)

var _ aawasm.Engine = (*Engine)(nil)

// Engine runs a chain of units in one wazero runtime. Node 0 receives the
// host inputs, each later node receives the outputs of the node before it,
// and the last node feeds the host outputs.
type Engine struct {
	ctx     context.Context
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	nodes   []*node
	block   int
	ready   bool
	closed  bool
}

// NodeInfo describes one unit in the chain
type NodeInfo struct {
	Name      string
	Inputs    int
	Outputs   int
	MaxFrames int // 0 until Init
	Notes     bool
}

// Factory adapts New to aawasm.EngineFactory
func Factory(cfg *Config) aawasm.EngineFactory {
	return func(ctx context.Context, binaries [][]byte) (aawasm.Engine, error) {
		e, err := New(ctx, binaries, cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// New compiles and links binaries, in order, into a node chain.
// A nil cfg uses DefaultConfig.
func New(ctx context.Context, binaries [][]byte, cfg *Config) (*Engine, error) {
	if len(binaries) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no unit binaries")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rc, owned, err := cfg.runtimeConfig()
	if err != nil {
		return nil, errors.Load("open compilation cache", err)
	}

	e := &Engine{
		ctx:     context.WithoutCancel(ctx),
		runtime: wazero.NewRuntimeWithConfig(ctx, rc),
		cache:   owned,
	}

	fail := func(err error) (*Engine, error) {
		_ = e.Close(ctx)
		return nil, err
	}

	if err := instantiateHostEnv(ctx, e.runtime); err != nil {
		return fail(errors.Load("instantiate host env", err))
	}
	if cfg.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
			return fail(errors.Load("instantiate wasi", err))
		}
	}

	for i, bin := range binaries {
		name := "node" + strconv.Itoa(i)

		compiled, err := e.runtime.CompileModule(ctx, bin)
		if err != nil {
			return fail(errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Path(name).
				Detail("compile unit").
				Cause(err).
				Build())
		}

		n, err := bindNode(ctx, e.runtime, compiled, name)
		if err != nil {
			return fail(err)
		}
		e.nodes = append(e.nodes, n)

		Logger().Debug("node linked",
			zap.String("node", name),
			zap.Int("inputs", n.inputs),
			zap.Int("outputs", n.outputs),
			zap.Bool("notes", n.notes))
	}

	for i := 1; i < len(e.nodes); i++ {
		prev, cur := e.nodes[i-1], e.nodes[i]
		if cur.inputs != prev.outputs {
			return fail(errors.New(errors.PhaseLink, errors.KindChannelMismatch).
				Path(prev.name, cur.name).
				Detail("%s has %d outputs but %s has %d inputs", prev.name, prev.outputs, cur.name, cur.inputs).
				Build())
		}
	}

	return e, nil
}

// Nodes describes the chain
func (e *Engine) Nodes() []NodeInfo {
	infos := make([]NodeInfo, len(e.nodes))
	for i, n := range e.nodes {
		infos[i] = NodeInfo{
			Name:      n.name,
			Inputs:    n.inputs,
			Outputs:   n.outputs,
			MaxFrames: n.maxFrames,
			Notes:     n.notes,
		}
	}
	return infos
}

// Init initializes every node with the sample rate and resolves their
// channel buffers. Calling it again re-initializes the chain.
func (e *Engine) Init(sampleRate float64) error {
	if e.closed {
		return errors.Closed(errors.PhaseInit, "engine")
	}
	e.ready = false

	block := 0
	for _, n := range e.nodes {
		if err := n.init(e.ctx, sampleRate); err != nil {
			return err
		}
		if block == 0 || n.maxFrames < block {
			block = n.maxFrames
		}
	}
	e.block = block
	e.ready = true

	Logger().Debug("engine initialized",
		zap.Float64("sample_rate", sampleRate),
		zap.Int("block", block))
	return nil
}

// InputCount returns the input channel count of the first node
func (e *Engine) InputCount() (int, error) {
	if e.closed {
		return 0, errors.Closed(errors.PhaseRuntime, "engine")
	}
	return e.nodes[0].inputs, nil
}

// OutputCount returns the output channel count of the last node
func (e *Engine) OutputCount() (int, error) {
	if e.closed {
		return 0, errors.Closed(errors.PhaseRuntime, "engine")
	}
	return e.nodes[len(e.nodes)-1].outputs, nil
}

// SetParam sets parameter index on the given node
func (e *Engine) SetParam(node, index uint32, value float32) error {
	if e.closed {
		return errors.Closed(errors.PhaseRuntime, "engine")
	}
	if int(node) >= len(e.nodes) {
		return errors.OutOfBounds(errors.PhaseRuntime, []string{"node"}, int(node), len(e.nodes))
	}
	return e.nodes[node].setParam(e.ctx, index, value)
}

// NoteOn delivers a note-on to every node exporting note handlers
func (e *Engine) NoteOn(pitch int32, velocity float32) error {
	return e.note(slotNoteOn, pitch, velocity)
}

// NoteOff delivers a note-off to every node exporting note handlers
func (e *Engine) NoteOff(pitch int32, velocity float32) error {
	return e.note(slotNoteOff, pitch, velocity)
}

// note keeps delivering after a failing node and reports the first failure
func (e *Engine) note(s slot, pitch int32, velocity float32) error {
	if e.closed {
		return errors.Closed(errors.PhaseRuntime, "engine")
	}
	var first error
	for _, n := range e.nodes {
		if !n.notes {
			continue
		}
		if err := n.note(e.ctx, s, pitch, velocity); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (e *Engine) ComputeZeroOne(frames int, out []float32) error {
	outs := [1][]float32{out}
	return e.process(frames, nil, outs[:])
}

func (e *Engine) ComputeOneOne(frames int, in, out []float32) error {
	ins := [1][]float32{in}
	outs := [1][]float32{out}
	return e.process(frames, ins[:], outs[:])
}

func (e *Engine) ComputeOneTwo(frames int, in, out0, out1 []float32) error {
	ins := [1][]float32{in}
	outs := [2][]float32{out0, out1}
	return e.process(frames, ins[:], outs[:])
}

func (e *Engine) ComputeTwoTwo(frames int, in0, in1, out0, out1 []float32) error {
	ins := [2][]float32{in0, in1}
	outs := [2][]float32{out0, out1}
	return e.process(frames, ins[:], outs[:])
}

func (e *Engine) ComputeZeroTwo(frames int, out0, out1 []float32) error {
	outs := [2][]float32{out0, out1}
	return e.process(frames, nil, outs[:])
}

// process runs frames through the chain in sub-blocks no longer than the
// smallest node block. Host inputs beyond the first node's inputs are
// ignored and missing ones read as silence. Every host output must be
// backed by an output of the last node.
func (e *Engine) process(frames int, ins, outs [][]float32) error {
	if e.closed {
		return errors.Closed(errors.PhaseCompute, "engine")
	}
	if !e.ready {
		return errors.NotInitialized(errors.PhaseCompute, "engine")
	}
	if frames < 0 {
		return errors.InvalidInput(errors.PhaseCompute, "negative frame count")
	}

	first, last := e.nodes[0], e.nodes[len(e.nodes)-1]
	if len(outs) > last.outputs {
		return errors.New(errors.PhaseCompute, errors.KindChannelMismatch).
			Detail("%d host outputs but unit has %d", len(outs), last.outputs).
			Build()
	}
	for c, b := range ins {
		if len(b) < frames {
			return errors.OutOfBounds(errors.PhaseCompute, []string{"input", strconv.Itoa(c)}, frames, len(b))
		}
	}
	for c, b := range outs {
		if len(b) < frames {
			return errors.OutOfBounds(errors.PhaseCompute, []string{"output", strconv.Itoa(c)}, frames, len(b))
		}
	}

	for off := 0; off < frames; off += e.block {
		n := min(e.block, frames-off)

		for c := 0; c < first.inputs; c++ {
			var err error
			if c < len(ins) {
				err = first.writeInput(c, ins[c][off:off+n])
			} else {
				err = first.clearInput(c, n)
			}
			if err != nil {
				return err
			}
		}

		for i, nd := range e.nodes {
			if i > 0 {
				if err := e.nodes[i-1].forward(nd, n); err != nil {
					return err
				}
			}
			if err := nd.compute(e.ctx, n); err != nil {
				return err
			}
		}

		for c := range outs {
			if err := last.readOutput(c, outs[c][off:off+n]); err != nil {
				return err
			}
		}
	}

	return nil
}

// Close releases every node and the runtime. Calling Close again is a no-op.
func (e *Engine) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.ready = false

	var err error
	for _, n := range e.nodes {
		err = multierr.Append(err, n.close(ctx))
	}
	err = multierr.Append(err, e.runtime.Close(ctx))
	if e.cache != nil {
		err = multierr.Append(err, e.cache.Close(ctx))
	}
	return err
}
