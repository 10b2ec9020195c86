package main

import (
	"fmt"

	"github.com/wippyai/aa-wasm/internal/audiofile"
	"github.com/wippyai/aa-wasm/internal/score"
	"github.com/wippyai/aa-wasm/module"
)

// shape is the compute entry a renderer drives, by host channel count
type shape struct {
	inputs  int
	outputs int
}

// pickShape chooses the compute entry for a unit with the given channel
// counts. At most two channels are used each way; a stereo-in mono-out
// unit is driven with its first input only.
func pickShape(unitIn, unitOut int) (shape, error) {
	if unitOut < 1 {
		return shape{}, fmt.Errorf("module has no outputs")
	}
	s := shape{inputs: min(unitIn, 2), outputs: min(unitOut, 2)}
	if s.inputs == 2 && s.outputs == 1 {
		s.inputs = 1
	}
	return s, nil
}

func (s shape) String() string {
	return fmt.Sprintf("%d in / %d out", s.inputs, s.outputs)
}

// renderer drives a module block by block from the audio goroutine, feeding
// it input audio and score events at the frame they fall on.
type renderer struct {
	m     *module.Module
	shape shape
	input *audiofile.Buffer
	score *score.Score
	frame int64
	block int
	ins   [2][]float32
	outs  [2][]float32
}

func newRenderer(m *module.Module, input *audiofile.Buffer, sc *score.Score, block int) (*renderer, error) {
	s, err := pickShape(m.InputCount(), m.OutputCount())
	if err != nil {
		return nil, err
	}
	if sc == nil {
		sc = score.New(nil)
	}
	r := &renderer{m: m, shape: s, input: input, score: sc, block: block}
	for c := range s.inputs {
		r.ins[c] = make([]float32, block)
	}
	return r, nil
}

// process renders len(outs[0]) frames into outs. Blocks are split where
// score events fall so notes start on their frame.
func (r *renderer) process(outs [][]float32) {
	n := len(outs[0])
	for done := 0; done < n; {
		r.score.Due(r.frame, r.m.Enqueue)

		chunk := min(n-done, r.block)
		if next, ok := r.score.Next(); ok && next-r.frame < int64(chunk) {
			chunk = int(next - r.frame)
		}

		for c := range r.shape.inputs {
			r.fillInput(c, chunk)
		}
		for c := range r.shape.outputs {
			r.outs[c] = outs[c][done : done+chunk]
		}
		r.compute(chunk)

		done += chunk
		r.frame += int64(chunk)
	}
}

// fillInput copies the next chunk of input channel c, padding with silence
// past the end of the input.
func (r *renderer) fillInput(c, chunk int) {
	dst := r.ins[c][:chunk]
	var src []float32
	if r.input != nil {
		src = r.input.Channel(c)
	}
	copied := 0
	if r.frame < int64(len(src)) {
		copied = copy(dst, src[r.frame:])
	}
	clear(dst[copied:])
}

func (r *renderer) compute(n int) {
	in0, in1 := r.ins[0], r.ins[1]
	out0, out1 := r.outs[0], r.outs[1]
	switch r.shape {
	case shape{0, 1}:
		r.m.ComputeZeroOne(n, out0)
	case shape{0, 2}:
		r.m.ComputeZeroTwo(n, out0, out1)
	case shape{1, 1}:
		r.m.ComputeOneOne(n, in0, out0)
	case shape{1, 2}:
		r.m.ComputeOneTwo(n, in0, out0, out1)
	case shape{2, 2}:
		r.m.ComputeTwoTwo(n, in0, in1, out0, out1)
	}
}
