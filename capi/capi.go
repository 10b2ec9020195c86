package capi

import (
	"context"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/aa-wasm/manifest"
	"github.com/wippyai/aa-wasm/module"
)

var (
	optsMu sync.RWMutex
	opts   []module.Option
)

// Configure sets the options applied to every module built through the
// boundary. It replaces any previous configuration.
func Configure(o ...module.Option) {
	optsMu.Lock()
	opts = append([]module.Option(nil), o...)
	optsMu.Unlock()
}

func options() []module.Option {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts
}

// ModuleNew builds the module described by url/id. Failures yield the null
// handle; the cause is logged.
func ModuleNew(url, id string) Handle {
	setupLogging()
	m, err := module.New(context.Background(), url, id, options()...)
	if err != nil {
		module.Logger().Error("module construction failed",
			zap.String("base", url), zap.String("module", id), zap.Error(err))
		return 0
	}
	return register(m)
}

// ModuleDelete releases the module behind h. Null is a no-op.
func ModuleDelete(h Handle) {
	if h == 0 {
		return
	}
	m := h.release()
	if err := m.Close(context.Background()); err != nil {
		module.Logger().Warn("module close", zap.String("module", m.ID()), zap.Error(err))
	}
}

// GetModules returns the listing text at url.
func GetModules(url string) (string, bool) {
	setupLogging()
	text, err := module.ListModules(context.Background(), url, options()...)
	if err != nil {
		module.Logger().Warn("module listing failed", zap.String("base", url), zap.Error(err))
		return "", false
	}
	return text, true
}

// Listing fetches and parses the listing at url.
func Listing(url string) (*manifest.Listing, error) {
	setupLogging()
	return module.Modules(context.Background(), url, options()...)
}

// GUIDescription returns the module's GUI description text, if any.
func GUIDescription(h Handle) (string, bool) {
	return h.Module().GUIDescription()
}

// Init prepares the engine. Errors are logged and otherwise ignored.
func Init(h Handle, sampleRate float64) {
	m := h.Module()
	if err := m.Init(sampleRate); err != nil {
		module.Logger().Warn("module init", zap.String("module", m.ID()), zap.Error(err))
	}
}

// SetParam schedules a parameter change for the next compute call.
func SetParam(h Handle, node, index uint32, value float32) {
	h.Module().SetParam(node, index, value)
}

// NoteOn schedules a note-on for the next compute call.
func NoteOn(h Handle, pitch int32, velocity float32) {
	h.Module().NoteOn(pitch, velocity)
}

// NoteOff schedules a note-off for the next compute call.
func NoteOff(h Handle, pitch int32, velocity float32) {
	h.Module().NoteOff(pitch, velocity)
}

// InputCount returns the unit's input channel count, 0 on engine error.
func InputCount(h Handle) int {
	return h.Module().InputCount()
}

// OutputCount returns the unit's output channel count, 0 on engine error.
func OutputCount(h Handle) int {
	return h.Module().OutputCount()
}

// The compute entries take raw sample pointers. Each pointer must address at
// least frames samples.

// ComputeZeroOne renders one output channel.
func ComputeZeroOne(h Handle, frames int, out unsafe.Pointer) {
	m := h.Module()
	m.ComputeZeroOne(frames, Floats(out, frames))
}

// ComputeOneOne processes one input channel into one output channel.
func ComputeOneOne(h Handle, frames int, in, out unsafe.Pointer) {
	m := h.Module()
	m.ComputeOneOne(frames, Floats(in, frames), Floats(out, frames))
}

// ComputeOneTwo processes one input into two non-interleaved outputs.
func ComputeOneTwo(h Handle, frames int, in, out0, out1 unsafe.Pointer) {
	m := h.Module()
	m.ComputeOneTwo(frames, Floats(in, frames), Floats(out0, frames), Floats(out1, frames))
}

// ComputeTwoTwo processes two non-interleaved inputs into two outputs.
func ComputeTwoTwo(h Handle, frames int, in0, in1, out0, out1 unsafe.Pointer) {
	m := h.Module()
	m.ComputeTwoTwo(frames,
		Floats(in0, frames), Floats(in1, frames),
		Floats(out0, frames), Floats(out1, frames))
}

// ComputeZeroTwo renders two non-interleaved output channels.
func ComputeZeroTwo(h Handle, frames int, out0, out1 unsafe.Pointer) {
	m := h.Module()
	m.ComputeZeroTwo(frames, Floats(out0, frames), Floats(out1, frames))
}
