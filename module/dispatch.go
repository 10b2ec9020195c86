package module

import (
	"github.com/wippyai/aa-wasm/command"
)

// The compute methods run on the audio goroutine, one call at a time. Each
// applies every command enqueued before the call, then computes exactly n
// frames. Buffers must hold at least n samples; shorter buffers panic.
// Engine failures are absorbed and counted in Stats.

// ComputeZeroOne renders one output channel.
func (m *Module) ComputeZeroOne(n int, out []float32) {
	out = out[:n]
	m.drain()
	m.computed(m.engine.ComputeZeroOne(n, out))
}

// ComputeOneOne processes one input channel into one output channel.
func (m *Module) ComputeOneOne(n int, in, out []float32) {
	in, out = in[:n], out[:n]
	m.drain()
	m.computed(m.engine.ComputeOneOne(n, in, out))
}

// ComputeOneTwo processes one input channel into two non-interleaved outputs.
func (m *Module) ComputeOneTwo(n int, in, out0, out1 []float32) {
	in, out0, out1 = in[:n], out0[:n], out1[:n]
	m.drain()
	m.computed(m.engine.ComputeOneTwo(n, in, out0, out1))
}

// ComputeTwoTwo processes two non-interleaved inputs into two outputs.
func (m *Module) ComputeTwoTwo(n int, in0, in1, out0, out1 []float32) {
	in0, in1, out0, out1 = in0[:n], in1[:n], out0[:n], out1[:n]
	m.drain()
	m.computed(m.engine.ComputeTwoTwo(n, in0, in1, out0, out1))
}

// ComputeZeroTwo renders two non-interleaved output channels.
func (m *Module) ComputeZeroTwo(n int, out0, out1 []float32) {
	out0, out1 = out0[:n], out1[:n]
	m.drain()
	m.computed(m.engine.ComputeZeroTwo(n, out0, out1))
}

func (m *Module) drain() {
	m.queue.Drain(m.apply)
}

func (m *Module) computed(err error) {
	m.blocks.Add(1)
	if err != nil {
		m.computeFailures.Add(1)
	}
}

// applyCommand is the single consumption point of commands.
func (m *Module) applyCommand(cmd command.Command) {
	var err error
	switch cmd.Kind {
	case command.KindParam:
		err = m.engine.SetParam(cmd.Node, cmd.Index, cmd.Value)
	case command.KindNoteOn:
		err = m.engine.NoteOn(cmd.Pitch, cmd.Velocity())
	case command.KindNoteOff:
		err = m.engine.NoteOff(cmd.Pitch, cmd.Velocity())
	default:
		m.applyFailures.Add(1)
		return
	}
	m.applied.Add(1)
	if err != nil {
		m.applyFailures.Add(1)
	}
}
