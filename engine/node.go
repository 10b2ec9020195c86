package engine

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/aa-wasm/errors"
)

// node is one instantiated unit in the chain.
type node struct {
	mod   api.Module
	mem   api.Memory
	fns   [slotCount]api.Function
	name  string
	stack [2]uint64

	inBufs  []uint32
	outBufs []uint32

	inputs    int
	outputs   int
	maxFrames int
	notes     bool
}

func (n *node) path(elem ...string) []string {
	return append([]string{n.name}, elem...)
}

// bindNode instantiates a validated unit and resolves its ABI exports.
func bindNode(ctx context.Context, r wazero.Runtime, compiled wazero.CompiledModule, name string) (*node, error) {
	n := &node{name: name}

	present, err := validateExports(compiled, n.path())
	if err != nil {
		return nil, err
	}

	cfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions("_initialize")
	mod, err := r.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, errors.Instantiation(n.path(), err)
	}
	n.mod = mod
	n.mem = mod.ExportedMemory(MemoryExport)

	for s := slot(0); s < slotCount; s++ {
		if present[s] {
			n.fns[s] = mod.ExportedFunction(s.exportName())
		}
	}
	n.notes = present[slotNoteOn] && present[slotNoteOff]

	if n.inputs, err = n.count(ctx, slotNumInputs); err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	if n.outputs, err = n.count(ctx, slotNumOutputs); err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	n.inBufs = make([]uint32, n.inputs)
	n.outBufs = make([]uint32, n.outputs)

	return n, nil
}

func (n *node) call(ctx context.Context, phase errors.Phase, s slot) error {
	if err := n.fns[s].CallWithStack(ctx, n.stack[:]); err != nil {
		return errors.Trap(phase, n.name+"."+s.exportName(), err)
	}
	return nil
}

// query calls a getter taking at most one i32 and returning an i32
func (n *node) query(ctx context.Context, phase errors.Phase, s slot, arg int32) (int32, error) {
	n.stack[0] = api.EncodeI32(arg)
	if err := n.call(ctx, phase, s); err != nil {
		return 0, err
	}
	return api.DecodeI32(n.stack[0]), nil
}

func (n *node) count(ctx context.Context, s slot) (int, error) {
	v, err := n.query(ctx, errors.PhaseLink, s, 0)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New(errors.PhaseLink, errors.KindInvalidData).
			Path(n.path(s.exportName())...).
			Value(v).
			Detail("negative channel count %d", v).
			Build()
	}
	return int(v), nil
}

func (n *node) init(ctx context.Context, sampleRate float64) error {
	n.stack[0] = api.EncodeF64(sampleRate)
	if err := n.call(ctx, errors.PhaseInit, slotInit); err != nil {
		return err
	}
	return n.resolveBuffers(ctx)
}

// resolveBuffers reads the block size and channel buffer offsets, which a
// unit may allocate during init.
func (n *node) resolveBuffers(ctx context.Context) error {
	frames, err := n.query(ctx, errors.PhaseInit, slotMaxFrames, 0)
	if err != nil {
		return err
	}
	if frames <= 0 {
		return errors.New(errors.PhaseInit, errors.KindInvalidData).
			Path(n.path(slotMaxFrames.exportName())...).
			Value(frames).
			Detail("max frames must be positive, got %d", frames).
			Build()
	}
	n.maxFrames = int(frames)

	size := uint64(n.mem.Size())
	span := uint64(frames) * 4

	resolve := func(s slot, bufs []uint32) error {
		for c := range bufs {
			ptr, err := n.query(ctx, errors.PhaseInit, s, int32(c))
			if err != nil {
				return err
			}
			if uint64(uint32(ptr))+span > size {
				return errors.OutOfBounds(errors.PhaseInit, n.path(s.exportName(), strconv.Itoa(c)), int(uint32(ptr)), int(size))
			}
			bufs[c] = uint32(ptr)
		}
		return nil
	}

	if err := resolve(slotGetInput, n.inBufs); err != nil {
		return err
	}
	return resolve(slotGetOutput, n.outBufs)
}

func (n *node) setParam(ctx context.Context, index uint32, value float32) error {
	n.stack[0] = api.EncodeU32(index)
	n.stack[1] = api.EncodeF32(value)
	return n.call(ctx, errors.PhaseRuntime, slotSetParam)
}

func (n *node) note(ctx context.Context, s slot, pitch int32, velocity float32) error {
	n.stack[0] = api.EncodeI32(pitch)
	n.stack[1] = api.EncodeF32(velocity)
	return n.call(ctx, errors.PhaseRuntime, s)
}

func (n *node) compute(ctx context.Context, frames int) error {
	n.stack[0] = api.EncodeI32(int32(frames))
	return n.call(ctx, errors.PhaseCompute, slotCompute)
}

// view returns the first frames samples of the buffer at ptr as raw bytes.
// Views are taken per block because guest memory may grow and move.
func (n *node) view(ptr uint32, frames int) ([]byte, error) {
	b, ok := n.mem.Read(ptr, uint32(frames)*4)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseCompute, n.path(MemoryExport), int(ptr), int(n.mem.Size()))
	}
	return b, nil
}

func (n *node) writeInput(c int, src []float32) error {
	b, err := n.view(n.inBufs[c], len(src))
	if err != nil {
		return err
	}
	for i, v := range src {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return nil
}

func (n *node) clearInput(c, frames int) error {
	b, err := n.view(n.inBufs[c], frames)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}

func (n *node) readOutput(c int, dst []float32) error {
	b, err := n.view(n.outBufs[c], len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}

// forward copies this node's outputs into next's inputs
func (n *node) forward(next *node, frames int) error {
	for c := range n.outBufs {
		src, err := n.view(n.outBufs[c], frames)
		if err != nil {
			return err
		}
		dst, err := next.view(next.inBufs[c], frames)
		if err != nil {
			return err
		}
		copy(dst, src)
	}
	return nil
}

func (n *node) close(ctx context.Context) error {
	return n.mod.Close(ctx)
}
