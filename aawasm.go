package aawasm

import "context"

// Fetcher retrieves an asset by location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Engine is a compute unit built from an ordered list of wasm binaries.
//
// Init, the count queries and Close are control operations and must be
// serialized with compute by the caller. The mutators and Compute* methods
// are called from the audio goroutine only.
type Engine interface {
	Init(sampleRate float64) error
	InputCount() (int, error)
	OutputCount() (int, error)

	SetParam(node, index uint32, value float32) error
	NoteOn(pitch int32, velocity float32) error
	NoteOff(pitch int32, velocity float32) error

	ComputeZeroOne(frames int, out []float32) error
	ComputeOneOne(frames int, in, out []float32) error
	ComputeOneTwo(frames int, in, out0, out1 []float32) error
	ComputeTwoTwo(frames int, in0, in1, out0, out1 []float32) error
	ComputeZeroTwo(frames int, out0, out1 []float32) error

	Close(ctx context.Context) error
}

// EngineFactory builds an Engine from unit binaries in declaration order.
type EngineFactory func(ctx context.Context, binaries [][]byte) (Engine, error)
