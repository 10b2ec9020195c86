package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	aaerrors "github.com/wippyai/aa-wasm/errors"
	"github.com/wippyai/aa-wasm/internal/wasmtest"
)

func newEngine(t *testing.T, binaries ...[]byte) *Engine {
	t.Helper()
	e, err := New(context.Background(), binaries, &Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func newReady(t *testing.T, binaries ...[]byte) *Engine {
	t.Helper()
	e := newEngine(t, binaries...)
	if err := e.Init(48000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e
}

func kindOf(t *testing.T, err error) aaerrors.Kind {
	t.Helper()
	var e *aaerrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *aaerrors.Error, got %T: %v", err, err)
	}
	return e.Kind
}

func ramp(n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(i + 1)
	}
	return buf
}

func TestGainPassesInputThrough(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	in := ramp(8)
	out := make([]float32, 8)
	if err := e.ComputeOneOne(8, in, out); err != nil {
		t.Fatalf("ComputeOneOne: %v", err)
	}
	for i := range out {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestSetParam(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	if err := e.SetParam(0, 0, 2); err != nil {
		t.Fatalf("SetParam gain: %v", err)
	}
	if err := e.SetParam(0, 1, 0.5); err != nil {
		t.Fatalf("SetParam offset: %v", err)
	}

	in := ramp(4)
	out := make([]float32, 4)
	if err := e.ComputeOneOne(4, in, out); err != nil {
		t.Fatalf("ComputeOneOne: %v", err)
	}
	for i := range out {
		want := in[i]*2 + 0.5
		if out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestSetParamNodeOutOfRange(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	err := e.SetParam(1, 0, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if k := kindOf(t, err); k != aaerrors.KindOutOfBounds {
		t.Errorf("kind = %s, want %s", k, aaerrors.KindOutOfBounds)
	}
}

func TestInitDeliversSampleRate(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	sr, ok := e.nodes[0].mem.ReadFloat64Le(wasmtest.SampleRate)
	if !ok {
		t.Fatal("sample rate not readable")
	}
	if sr != 48000 {
		t.Errorf("sample rate = %v, want 48000", sr)
	}
}

func TestChannelCounts(t *testing.T) {
	tests := []struct {
		name    string
		unit    wasmtest.Unit
		inputs  int
		outputs int
	}{
		{"mono effect", wasmtest.Unit{Inputs: 1, Outputs: 1}, 1, 1},
		{"stereo effect", wasmtest.Unit{Inputs: 2, Outputs: 2}, 2, 2},
		{"mono synth", wasmtest.Unit{Outputs: 1}, 0, 1},
		{"upmix", wasmtest.Unit{Inputs: 1, Outputs: 2}, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.unit.Bytes())
			in, err := e.InputCount()
			if err != nil || in != tt.inputs {
				t.Errorf("InputCount = %d, %v; want %d", in, err, tt.inputs)
			}
			out, err := e.OutputCount()
			if err != nil || out != tt.outputs {
				t.Errorf("OutputCount = %d, %v; want %d", out, err, tt.outputs)
			}
		})
	}
}

func TestComputeSplitsLongBlocks(t *testing.T) {
	unit := wasmtest.Unit{Inputs: 1, Outputs: 1, MaxFrames: 16}
	e := newReady(t, unit.Bytes())

	in := ramp(40)
	out := make([]float32, 40)
	if err := e.ComputeOneOne(40, in, out); err != nil {
		t.Fatalf("ComputeOneOne: %v", err)
	}
	for i := range out {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}

	mem := e.nodes[0].mem
	runs, _ := mem.ReadUint32Le(wasmtest.ComputeRuns)
	last, _ := mem.ReadUint32Le(wasmtest.LastFrames)
	if runs != 3 {
		t.Errorf("compute runs = %d, want 3", runs)
	}
	if last != 8 {
		t.Errorf("last block = %d, want 8", last)
	}
}

func TestComputeExactFrameCount(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	in := ramp(8)
	out := make([]float32, 8)
	for i := range out {
		out[i] = -1
	}
	if err := e.ComputeOneOne(5, in, out); err != nil {
		t.Fatalf("ComputeOneOne: %v", err)
	}
	for i := 5; i < 8; i++ {
		if out[i] != -1 {
			t.Errorf("out[%d] = %v, frame beyond n was written", i, out[i])
		}
	}
	last, _ := e.nodes[0].mem.ReadUint32Le(wasmtest.LastFrames)
	if last != 5 {
		t.Errorf("frames = %d, want 5", last)
	}
}

func TestChain(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1), wasmtest.Gain(1))

	if err := e.SetParam(0, 0, 2); err != nil {
		t.Fatal(err)
	}
	if err := e.SetParam(1, 0, 3); err != nil {
		t.Fatal(err)
	}

	in := ramp(6)
	out := make([]float32, 6)
	if err := e.ComputeOneOne(6, in, out); err != nil {
		t.Fatalf("ComputeOneOne: %v", err)
	}
	for i := range out {
		if want := in[i] * 6; out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
	if len(e.Nodes()) != 2 {
		t.Errorf("nodes = %d, want 2", len(e.Nodes()))
	}
}

func TestChainUsesSmallestBlock(t *testing.T) {
	a := wasmtest.Unit{Inputs: 1, Outputs: 1, MaxFrames: 32}
	b := wasmtest.Unit{Inputs: 1, Outputs: 1, MaxFrames: 8}
	e := newReady(t, a.Bytes(), b.Bytes())

	in := ramp(20)
	out := make([]float32, 20)
	if err := e.ComputeOneOne(20, in, out); err != nil {
		t.Fatalf("ComputeOneOne: %v", err)
	}
	for i := range out {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	runs, _ := e.nodes[0].mem.ReadUint32Le(wasmtest.ComputeRuns)
	if runs != 3 {
		t.Errorf("first node runs = %d, want 3", runs)
	}
}

func TestChainChannelMismatch(t *testing.T) {
	upmix := wasmtest.Unit{Inputs: 1, Outputs: 2}.Bytes()
	_, err := New(context.Background(), [][]byte{upmix, wasmtest.Gain(1)}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if k := kindOf(t, err); k != aaerrors.KindChannelMismatch {
		t.Errorf("kind = %s, want %s", k, aaerrors.KindChannelMismatch)
	}
}

func TestStereoShapes(t *testing.T) {
	t.Run("two-two", func(t *testing.T) {
		e := newReady(t, wasmtest.Gain(2))
		in0, in1 := ramp(4), make([]float32, 4)
		for i := range in1 {
			in1[i] = -in0[i]
		}
		out0, out1 := make([]float32, 4), make([]float32, 4)
		if err := e.ComputeTwoTwo(4, in0, in1, out0, out1); err != nil {
			t.Fatalf("ComputeTwoTwo: %v", err)
		}
		for i := range out0 {
			if out0[i] != in0[i] || out1[i] != in1[i] {
				t.Errorf("frame %d = (%v, %v), want (%v, %v)", i, out0[i], out1[i], in0[i], in1[i])
			}
		}
	})

	t.Run("one-two", func(t *testing.T) {
		e := newReady(t, wasmtest.Unit{Inputs: 1, Outputs: 2}.Bytes())
		in := ramp(4)
		out0, out1 := make([]float32, 4), make([]float32, 4)
		if err := e.ComputeOneTwo(4, in, out0, out1); err != nil {
			t.Fatalf("ComputeOneTwo: %v", err)
		}
		for i := range in {
			if out0[i] != in[i] || out1[i] != in[i] {
				t.Errorf("frame %d = (%v, %v), want %v twice", i, out0[i], out1[i], in[i])
			}
		}
	})

	t.Run("zero-two", func(t *testing.T) {
		e := newReady(t, wasmtest.Synth(2))
		if err := e.SetParam(0, 1, 0.25); err != nil {
			t.Fatal(err)
		}
		out0, out1 := make([]float32, 4), make([]float32, 4)
		if err := e.ComputeZeroTwo(4, out0, out1); err != nil {
			t.Fatalf("ComputeZeroTwo: %v", err)
		}
		for i := range out0 {
			if out0[i] != 0.25 || out1[i] != 0.25 {
				t.Errorf("frame %d = (%v, %v), want 0.25", i, out0[i], out1[i])
			}
		}
	})
}

func TestMissingInputsReadAsSilence(t *testing.T) {
	e := newReady(t, wasmtest.Unit{Inputs: 1, Outputs: 1}.Bytes())

	// prime the input buffer with non-zero samples
	out := make([]float32, 4)
	if err := e.ComputeOneOne(4, ramp(4), out); err != nil {
		t.Fatal(err)
	}
	if err := e.ComputeZeroOne(4, out); err != nil {
		t.Fatalf("ComputeZeroOne: %v", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestComputeMoreOutputsThanUnit(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	out0, out1 := make([]float32, 4), make([]float32, 4)
	err := e.ComputeOneTwo(4, ramp(4), out0, out1)
	if err == nil {
		t.Fatal("expected error")
	}
	if k := kindOf(t, err); k != aaerrors.KindChannelMismatch {
		t.Errorf("kind = %s, want %s", k, aaerrors.KindChannelMismatch)
	}
}

func TestComputeShortBuffer(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	err := e.ComputeOneOne(8, ramp(4), make([]float32, 8))
	if err == nil {
		t.Fatal("expected error")
	}
	if k := kindOf(t, err); k != aaerrors.KindOutOfBounds {
		t.Errorf("kind = %s, want %s", k, aaerrors.KindOutOfBounds)
	}
}

func TestComputeBeforeInit(t *testing.T) {
	e := newEngine(t, wasmtest.Gain(1))

	err := e.ComputeOneOne(4, ramp(4), make([]float32, 4))
	if err == nil {
		t.Fatal("expected error")
	}
	if k := kindOf(t, err); k != aaerrors.KindNotInitialized {
		t.Errorf("kind = %s, want %s", k, aaerrors.KindNotInitialized)
	}
}

func TestNotes(t *testing.T) {
	e := newReady(t, wasmtest.Synth(1))
	out := make([]float32, 4)

	if err := e.NoteOn(60, 0.5); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}
	if err := e.ComputeZeroOne(4, out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 30 {
		t.Errorf("after note-on out[0] = %v, want 30", out[0])
	}

	if err := e.NoteOff(60, 0); err != nil {
		t.Fatalf("NoteOff: %v", err)
	}
	if err := e.ComputeZeroOne(4, out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 0 {
		t.Errorf("after note-off out[0] = %v, want 0", out[0])
	}
}

func TestNotesSkipNodesWithoutHandlers(t *testing.T) {
	e := newReady(t, wasmtest.Gain(1))

	if e.Nodes()[0].Notes {
		t.Fatal("gain unit reports note handlers")
	}
	if err := e.NoteOn(60, 1); err != nil {
		t.Errorf("NoteOn: %v", err)
	}
}

func TestHostEnvSine(t *testing.T) {
	e := newReady(t, wasmtest.Unit{Outputs: 1, Sine: true}.Bytes())

	if err := e.SetParam(0, 1, 0.5); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 2)
	if err := e.ComputeZeroOne(2, out); err != nil {
		t.Fatalf("ComputeZeroOne: %v", err)
	}
	want := float32(math.Sin(0.5))
	if out[0] != want {
		t.Errorf("out[0] = %v, want %v", out[0], want)
	}
}

func TestTrapIsReported(t *testing.T) {
	e := newReady(t, wasmtest.Unit{Outputs: 1, TrapCompute: true}.Bytes())

	err := e.ComputeZeroOne(4, make([]float32, 4))
	if err == nil {
		t.Fatal("expected error")
	}
	if k := kindOf(t, err); k != aaerrors.KindTrap {
		t.Errorf("kind = %s, want %s", k, aaerrors.KindTrap)
	}
}

func TestLinkErrors(t *testing.T) {
	tests := []struct {
		name string
		bin  []byte
		kind aaerrors.Kind
	}{
		{"missing compute", wasmtest.Unit{Outputs: 1, Omit: "compute"}.Bytes(), aaerrors.KindMissingExport},
		{"missing init", wasmtest.Unit{Outputs: 1, Omit: "init"}.Bytes(), aaerrors.KindMissingExport},
		{"missing memory", wasmtest.Unit{Outputs: 1, NoMemory: true}.Bytes(), aaerrors.KindMissingExport},
		{"bad init signature", wasmtest.Unit{Outputs: 1, BadSignature: "init"}.Bytes(), aaerrors.KindSignatureMismatch},
		{"bad note signature", wasmtest.Unit{Outputs: 1, Notes: true, BadSignature: "handle_note_on"}.Bytes(), aaerrors.KindSignatureMismatch},
		{"unknown import", wasmtest.Unit{Outputs: 1, Import: "not_libm"}.Bytes(), aaerrors.KindInstantiation},
		{"not wasm", []byte("definitely not wasm"), aaerrors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), [][]byte{tt.bin}, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if k := kindOf(t, err); k != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", k, tt.kind, err)
			}
		})
	}
}

func TestOptionalNoteHandlers(t *testing.T) {
	e := newEngine(t, wasmtest.Unit{Outputs: 1, Notes: true, Omit: "handle_note_off"}.Bytes())
	if e.Nodes()[0].Notes {
		t.Error("unit with only note-on should not receive notes")
	}
}

func TestLibmImportsResolve(t *testing.T) {
	for _, name := range []string{"cosf", "_cosf", "tanhf", "_sqrtf", "floorf"} {
		t.Run(name, func(t *testing.T) {
			newEngine(t, wasmtest.Unit{Outputs: 1, Import: name}.Bytes())
		})
	}
}

func TestNoBinaries(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestClose(t *testing.T) {
	e, err := New(context.Background(), [][]byte{wasmtest.Gain(1)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Init(44100); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, err := e.InputCount(); kindOf(t, err) != aaerrors.KindClosed {
		t.Errorf("InputCount after close: %v", err)
	}
	if err := e.ComputeOneOne(4, ramp(4), make([]float32, 4)); kindOf(t, err) != aaerrors.KindClosed {
		t.Errorf("compute after close: %v", err)
	}
}

func TestFactory(t *testing.T) {
	factory := Factory(nil)

	eng, err := factory(context.Background(), [][]byte{wasmtest.Gain(1)})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	defer eng.Close(context.Background())

	eng, err = factory(context.Background(), [][]byte{[]byte("junk")})
	if err == nil {
		t.Fatal("expected error")
	}
	if eng != nil {
		t.Error("failed factory returned a non-nil engine")
	}
}
