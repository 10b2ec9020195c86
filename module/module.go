package module

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	aawasm "github.com/wippyai/aa-wasm"
	"github.com/wippyai/aa-wasm/command"
	"github.com/wippyai/aa-wasm/errors"
	"github.com/wippyai/aa-wasm/fetch"
	"github.com/wippyai/aa-wasm/manifest"
)

// Module is one hosted audio unit: an engine driven by the audio goroutine
// and a command queue fed by control goroutines.
type Module struct {
	engine aawasm.Engine
	queue  *command.Queue
	logger *zap.Logger
	apply  func(command.Command)

	id      string
	info    manifest.Info
	guiDesc string
	hasGUI  bool
	closed  bool

	applied         atomic.Uint64
	applyFailures   atomic.Uint64
	blocks          atomic.Uint64
	computeFailures atomic.Uint64
}

// Stats counts what the audio goroutine did. Failures on the audio path are
// never returned; they are only visible here.
type Stats struct {
	Applied         uint64 // commands applied to the engine
	ApplyFailures   uint64 // commands the engine rejected
	Blocks          uint64 // compute calls
	ComputeFailures uint64 // compute calls the engine failed
	Dropped         uint64 // commands refused by a full queue
	Pending         int    // commands waiting for the next block
}

// New builds a module from the bundle manifest at base/id. Construction
// either yields a usable module or fails as a whole with a PhaseConstruct
// error; nothing fetched or built is retained on failure.
func New(ctx context.Context, base, id string, opts ...Option) (*Module, error) {
	o := newOptions(opts)
	log := o.logger.With(zap.String("module", id))

	bundle, err := loadBundle(ctx, o.fetcher, manifest.Resolve(base, id))
	if err != nil {
		log.Warn("manifest unavailable", zap.Error(err))
		return nil, errors.Construct(id, err)
	}

	binaries := make([][]byte, 0, len(bundle.WasmURLs))
	for _, ref := range bundle.WasmURLs {
		loc := manifest.Resolve(base, ref)
		bin, err := o.fetcher.Fetch(ctx, loc)
		if err != nil {
			log.Warn("unit binary unavailable", zap.String("url", loc), zap.Error(err))
			return nil, errors.Construct(id, err)
		}
		binaries = append(binaries, bin)
	}

	eng, err := o.factory(ctx, binaries)
	if err != nil {
		log.Warn("engine construction failed", zap.Error(err))
		return nil, errors.Construct(id, err)
	}
	if eng == nil {
		return nil, errors.Construct(id, errors.Load("engine factory returned no engine", nil))
	}

	var queueOpts []command.Option
	if o.queueLimit > 0 {
		queueOpts = append(queueOpts, command.WithLimit(o.queueLimit))
	}

	m := &Module{
		engine: eng,
		queue:  command.NewQueue(queueOpts...),
		logger: log,
		id:     id,
		info:   bundle.Info,
	}
	m.apply = m.applyCommand

	if bundle.HasGUIDescription() {
		loc := manifest.Resolve(base, *bundle.GUIDescription)
		text, err := fetch.Text(ctx, o.fetcher, loc)
		if err != nil {
			log.Warn("gui description unavailable", zap.String("url", loc), zap.Error(err))
		} else {
			m.guiDesc = text
			m.hasGUI = true
		}
	}

	log.Debug("module constructed",
		zap.Int("binaries", len(binaries)),
		zap.Bool("gui_description", m.hasGUI))

	return m, nil
}

func loadBundle(ctx context.Context, f aawasm.Fetcher, loc string) (*manifest.Bundle, error) {
	text, err := fetch.Text(ctx, f, loc)
	if err != nil {
		return nil, err
	}
	return manifest.ParseString(text)
}

// ID returns the module identifier the module was built from.
func (m *Module) ID() string {
	return m.id
}

// Info returns the info block of the bundle manifest.
func (m *Module) Info() manifest.Info {
	return m.info
}

// GUIDescription returns the GUI description text, if one was fetched.
func (m *Module) GUIDescription() (string, bool) {
	return m.guiDesc, m.hasGUI
}

// Init prepares the engine for sampleRate. Call once before the first
// compute; it must not run concurrently with any other operation.
func (m *Module) Init(sampleRate float64) error {
	if err := m.engine.Init(sampleRate); err != nil {
		m.logger.Warn("init failed", zap.Float64("sample_rate", sampleRate), zap.Error(err))
		return err
	}
	return nil
}

// InputCount returns the engine's input channel count, or 0 if the engine
// cannot report it. Not safe concurrently with compute.
func (m *Module) InputCount() int {
	n, err := m.engine.InputCount()
	if err != nil {
		m.logger.Debug("input count unavailable", zap.Error(err))
		return 0
	}
	return n
}

// OutputCount returns the engine's output channel count, or 0 if the engine
// cannot report it. Not safe concurrently with compute.
func (m *Module) OutputCount() int {
	n, err := m.engine.OutputCount()
	if err != nil {
		m.logger.Debug("output count unavailable", zap.Error(err))
		return 0
	}
	return n
}

// Enqueue schedules cmd for the next compute call. Safe from any goroutine.
func (m *Module) Enqueue(cmd command.Command) {
	m.queue.Enqueue(cmd)
}

// SetParam schedules a parameter change on node.
func (m *Module) SetParam(node, index uint32, value float32) {
	m.queue.Enqueue(command.Param(node, index, value))
}

// NoteOn schedules a note-on.
func (m *Module) NoteOn(pitch int32, velocity float32) {
	m.queue.Enqueue(command.NoteOn(pitch, velocity))
}

// NoteOff schedules a note-off.
func (m *Module) NoteOff(pitch int32, velocity float32) {
	m.queue.Enqueue(command.NoteOff(pitch, velocity))
}

// Stats returns a snapshot of the audio path counters.
func (m *Module) Stats() Stats {
	return Stats{
		Applied:         m.applied.Load(),
		ApplyFailures:   m.applyFailures.Load(),
		Blocks:          m.blocks.Load(),
		ComputeFailures: m.computeFailures.Load(),
		Dropped:         m.queue.Dropped(),
		Pending:         m.queue.Len(),
	}
}

// Close drops pending commands and releases the engine. Calling Close again
// is a no-op. It must not run concurrently with compute.
func (m *Module) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true

	dropped := m.queue.Len()
	m.queue.Close()
	err := m.engine.Close(ctx)

	m.logger.Debug("module closed",
		zap.Int("dropped_commands", dropped),
		zap.Error(err))
	return err
}
