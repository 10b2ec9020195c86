package capi

import (
	"context"
	"errors"
	"testing"
	"unsafe"

	"github.com/wippyai/aa-wasm/engine"
	aaerrors "github.com/wippyai/aa-wasm/errors"
	"github.com/wippyai/aa-wasm/internal/wasmtest"
	"github.com/wippyai/aa-wasm/module"
)

const base = "https://units.test/aa"

const listing = `{"default":"gain","modules":[{"name":"gain","json_url":"gain.json"},{"name":"synth","json_url":"synth.json"}]}`

func bundle(units ...string) string {
	urls := ""
	for i, u := range units {
		if i > 0 {
			urls += ", "
		}
		urls += `"` + u + `"`
	}
	return `{
  "wasm_url": [` + urls + `],
  "gui": {"url": "", "name": "Test", "params": [], "width": 0, "height": 0},
  "gui_description": "gui.json",
  "info": {
    "name": "Test", "vendor": "test", "presets": 0, "parameters": 2,
    "inputs": 1, "outputs": 1, "midi_inputs": 0, "midi_outputs": 0, "id": 1,
    "version": 1, "category": "Effect", "initial_delay": 0, "preset_chunks": false,
    "f64_precision": false, "silent_when_stopped": false
  }
}`
}

type mapFetcher map[string][]byte

func (f mapFetcher) Fetch(_ context.Context, loc string) ([]byte, error) {
	data, ok := f[loc]
	if !ok {
		return nil, aaerrors.Unreachable(loc, errors.New("not found"))
	}
	return data, nil
}

func configure(t *testing.T) {
	t.Helper()
	assets := mapFetcher{
		base + "/gain.json":    []byte(bundle("gain.wasm")),
		base + "/synth.json":   []byte(bundle("synth.wasm")),
		base + "/split.json":   []byte(bundle("split.wasm")),
		base + "/stereo.json":  []byte(bundle("stereo.wasm")),
		base + "/broken.json":  []byte(`{"wasm_url": 5}`),
		base + "/gain.wasm":    wasmtest.Gain(1),
		base + "/synth.wasm":   wasmtest.Synth(2),
		base + "/split.wasm":   wasmtest.Unit{Inputs: 1, Outputs: 2}.Bytes(),
		base + "/stereo.wasm":  wasmtest.Gain(2),
		base + "/gui.json":     []byte(`{"knobs":2}`),
		base + "/modules.json": []byte(listing),
	}
	Configure(
		module.WithFetcher(assets),
		module.WithEngineFactory(engine.Factory(&engine.Config{})),
	)
	t.Cleanup(func() { Configure() })
}

func floatPtr(s []float32) unsafe.Pointer {
	return unsafe.Pointer(&s[0])
}

func TestModuleNew_Failures(t *testing.T) {
	configure(t)

	tests := []struct {
		name string
		id   string
	}{
		{"missing manifest", "absent.json"},
		{"malformed manifest", "broken.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h := ModuleNew(base, tt.id); h != 0 {
				ModuleDelete(h)
				t.Fatalf("ModuleNew(%q) = %d, want null", tt.id, h)
			}
		})
	}
}

func TestLifecycle_Gain(t *testing.T) {
	configure(t)

	h := ModuleNew(base, "gain.json")
	if h == 0 {
		t.Fatal("ModuleNew returned null")
	}
	defer ModuleDelete(h)

	if InputCount(h) != 1 || OutputCount(h) != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", InputCount(h), OutputCount(h))
	}
	desc, ok := GUIDescription(h)
	if !ok || desc != `{"knobs":2}` {
		t.Errorf("GUIDescription = %q, %v", desc, ok)
	}

	Init(h, 44100)
	SetParam(h, 0, 0, 0.5)

	in := []float32{2, 4, 6, 8}
	out := make([]float32, 4)
	ComputeOneOne(h, len(in), floatPtr(in), floatPtr(out))
	for i := range in {
		if want := in[i] * 0.5; out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
	if s := h.Module().Stats(); s.ApplyFailures != 0 || s.ComputeFailures != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLifecycle_SynthNotes(t *testing.T) {
	configure(t)

	h := ModuleNew(base, "synth.json")
	if h == 0 {
		t.Fatal("ModuleNew returned null")
	}
	defer ModuleDelete(h)

	Init(h, 48000)
	NoteOn(h, 60, 0.5)

	out0 := make([]float32, 8)
	out1 := make([]float32, 8)
	ComputeZeroTwo(h, 8, floatPtr(out0), floatPtr(out1))
	if out0[7] != 30 || out1[7] != 30 {
		t.Errorf("after note on = %v/%v, want 30/30", out0[7], out1[7])
	}

	NoteOff(h, 60, 0)
	ComputeZeroTwo(h, 8, floatPtr(out0), floatPtr(out1))
	if out0[0] != 0 || out1[0] != 0 {
		t.Errorf("after note off = %v/%v, want 0/0", out0[0], out1[0])
	}
}

func TestLifecycle_StereoShapes(t *testing.T) {
	configure(t)

	in0 := []float32{1, 2, 3, 4}
	in1 := []float32{-1, -2, -3, -4}

	tests := []struct {
		name    string
		id      string
		compute func(h Handle, out0, out1 []float32)
		want0   []float32
		want1   []float32
	}{
		{
			name: "one in two out",
			id:   "split.json",
			compute: func(h Handle, out0, out1 []float32) {
				ComputeOneTwo(h, len(in0), floatPtr(in0), floatPtr(out0), floatPtr(out1))
			},
			want0: []float32{2, 4, 6, 8},
			want1: []float32{2, 4, 6, 8},
		},
		{
			name: "two in two out",
			id:   "stereo.json",
			compute: func(h Handle, out0, out1 []float32) {
				ComputeTwoTwo(h, len(in0), floatPtr(in0), floatPtr(in1), floatPtr(out0), floatPtr(out1))
			},
			want0: []float32{2, 4, 6, 8},
			want1: []float32{-2, -4, -6, -8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := ModuleNew(base, tt.id)
			if h == 0 {
				t.Fatal("ModuleNew returned null")
			}
			defer ModuleDelete(h)

			Init(h, 48000)
			SetParam(h, 0, 0, 2)

			out0 := make([]float32, len(in0))
			out1 := make([]float32, len(in0))
			tt.compute(h, out0, out1)
			for i := range out0 {
				if out0[i] != tt.want0[i] || out1[i] != tt.want1[i] {
					t.Errorf("frame %d = %v/%v, want %v/%v", i, out0[i], out1[i], tt.want0[i], tt.want1[i])
				}
			}
			if s := h.Module().Stats(); s.ApplyFailures != 0 || s.ComputeFailures != 0 {
				t.Errorf("stats = %+v", s)
			}
		})
	}
}

func TestComputeZeroFrames(t *testing.T) {
	configure(t)

	h := ModuleNew(base, "gain.json")
	if h == 0 {
		t.Fatal("ModuleNew returned null")
	}
	defer ModuleDelete(h)

	Init(h, 48000)
	ComputeOneOne(h, 0, nil, nil)
	if got := h.Module().Stats().Blocks; got != 1 {
		t.Errorf("blocks = %d, want 1", got)
	}
}

func TestNullHandlePanics(t *testing.T) {
	buf := make([]float32, 1)
	p := floatPtr(buf)

	tests := []struct {
		name string
		call func()
	}{
		{"GUIDescription", func() { GUIDescription(0) }},
		{"Init", func() { Init(0, 48000) }},
		{"SetParam", func() { SetParam(0, 0, 0, 1) }},
		{"NoteOn", func() { NoteOn(0, 60, 1) }},
		{"NoteOff", func() { NoteOff(0, 60, 1) }},
		{"InputCount", func() { InputCount(0) }},
		{"OutputCount", func() { OutputCount(0) }},
		{"ComputeZeroOne", func() { ComputeZeroOne(0, 1, p) }},
		{"ComputeOneOne", func() { ComputeOneOne(0, 1, p, p) }},
		{"ComputeOneTwo", func() { ComputeOneTwo(0, 1, p, p, p) }},
		{"ComputeTwoTwo", func() { ComputeTwoTwo(0, 1, p, p, p, p) }},
		{"ComputeZeroTwo", func() { ComputeZeroTwo(0, 1, p, p) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != NullHandleMessage {
					t.Errorf("recovered %v, want %q", r, NullHandleMessage)
				}
			}()
			tt.call()
		})
	}
}

func TestModuleDelete_Null(t *testing.T) {
	ModuleDelete(0)
}

func TestFloats(t *testing.T) {
	buf := []float32{1, 2, 3}

	if got := Floats(nil, 0); len(got) != 0 {
		t.Errorf("Floats(nil, 0) len = %d", len(got))
	}
	view := Floats(floatPtr(buf), 2)
	if len(view) != 2 || view[1] != 2 {
		t.Errorf("view = %v", view)
	}
	view[0] = 9
	if buf[0] != 9 {
		t.Error("view does not alias the buffer")
	}

	for _, tt := range []struct {
		name string
		p    unsafe.Pointer
		n    int
	}{
		{"null with frames", nil, 4},
		{"negative count", floatPtr(buf), -1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			Floats(tt.p, tt.n)
		})
	}
}

func TestGetModules(t *testing.T) {
	configure(t)

	text, ok := GetModules(base)
	if !ok || text != listing {
		t.Errorf("GetModules = %q, %v", text, ok)
	}
	if _, ok := GetModules("https://elsewhere.test"); ok {
		t.Error("GetModules on unreachable base succeeded")
	}

	l, err := Listing(base)
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if l.Default != "gain" || len(l.Modules) != 2 {
		t.Errorf("listing = %+v", l)
	}
}

func TestLoggerFromEnv(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"", false},
		{"off", false},
		{"nonsense", false},
		{"debug", true},
		{" INFO ", true},
		{"warn", true},
		{"error", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			l, ok := loggerFromEnv(tt.value)
			if ok != tt.ok {
				t.Fatalf("loggerFromEnv(%q) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if ok && l == nil {
				t.Error("nil logger")
			}
		})
	}
}
