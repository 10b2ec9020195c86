package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ebitengine/oto/v3"

	"github.com/wippyai/aa-wasm/internal/audiofile"
	"github.com/wippyai/aa-wasm/internal/meter"
	"github.com/wippyai/aa-wasm/internal/score"
	"github.com/wippyai/aa-wasm/module"
)

// pianoKeys maps the home row onto a C major scale from middle C
var pianoKeys = map[string]int32{
	"a": 60, "s": 62, "d": 64, "f": 65, "g": 67, "h": 69, "j": 71, "k": 72,
}

// stream is the io.Reader oto pulls interleaved stereo float32 from. Read
// runs on oto's goroutine and is the only caller of compute.
type stream struct {
	r     *renderer
	bufs  [][]float32
	outs  [][]float32
	mono  bool
	meter meter.Meter
	peak  atomic.Uint32
}

func newStream(r *renderer, block int) *stream {
	s := &stream{r: r, mono: r.shape.outputs == 1}
	s.bufs = make([][]float32, r.shape.outputs)
	s.outs = make([][]float32, r.shape.outputs)
	for c := range s.bufs {
		s.bufs[c] = make([]float32, block)
	}
	return s
}

func (s *stream) Read(p []byte) (int, error) {
	const frameBytes = 8
	frames := min(len(p)/frameBytes, len(s.bufs[0]))
	if frames == 0 {
		return 0, nil
	}
	outs := s.outs
	for c := range outs {
		outs[c] = s.bufs[c][:frames]
	}
	s.r.process(outs)

	left, right := outs[0], outs[0]
	if !s.mono {
		right = outs[1]
	}
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(left[i]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(right[i]))
	}

	l := s.meter.Add(left)
	s.peak.Store(math.Float32bits(l.Peak))
	return frames * frameBytes, nil
}

// Peak returns the peak level of the most recent block
func (s *stream) Peak() float32 {
	return math.Float32frombits(s.peak.Load())
}

func (a *app) play(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	var (
		midi  = fs.String("midi", "", "Standard MIDI file to play")
		in    = fs.String("in", "", "Input audio to feed the module")
		node  = fs.Uint("node", 0, "Node whose parameters the keys adjust")
		rate  = fs.Float64("rate", a.cfg.SampleRate, "Sample rate")
		block = fs.Int("block", a.cfg.BlockSize, "Frames per compute call")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	name, err := oneModuleArg(fs)
	if err != nil {
		return err
	}
	if !isTerminal(os.Stdin) {
		return fmt.Errorf("play needs an interactive terminal")
	}

	var input *audiofile.Buffer
	if *in != "" {
		if input, err = audiofile.Decode(*in); err != nil {
			return fmt.Errorf("input: %w", err)
		}
	}
	var sc *score.Score
	if *midi != "" {
		if sc, err = score.Load(*midi, *rate); err != nil {
			return err
		}
	}

	m, err := a.open(ctx, name, *rate)
	if err != nil {
		return err
	}
	defer m.Close(ctx)

	r, err := newRenderer(m, input, sc, *block)
	if err != nil {
		return err
	}
	st := newStream(r, *block)

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(*rate),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(float64(*block) / *rate * float64(time.Second)),
	})
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(st)
	player.Play()
	defer player.Close()

	model := newPlayModel(m, st, uint32(*node))
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

type playKeys struct {
	up, down, inc, dec, notes, release, quit key.Binding
}

func (k playKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.dec, k.inc, k.notes, k.release, k.quit}
}

func (k playKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultPlayKeys = playKeys{
	up:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "prev param")),
	down:    key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next param")),
	dec:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "decrease")),
	inc:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "increase")),
	notes:   key.NewBinding(key.WithKeys("a", "s", "d", "f", "g", "h", "j", "k"), key.WithHelp("a-k", "play note")),
	release: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "release")),
	quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

const paramStep = 0.05

type tickMsg time.Time

type playModel struct {
	m        *module.Module
	st       *stream
	keys     playKeys
	help     help.Model
	node     uint32
	values   []float32
	touched  []bool
	selected int
	held     int32
	holding  bool
}

func newPlayModel(m *module.Module, st *stream, node uint32) *playModel {
	n := max(int(m.Info().Parameters), 1)
	pm := &playModel{
		m:       m,
		st:      st,
		keys:    defaultPlayKeys,
		help:    help.New(),
		node:    node,
		values:  make([]float32, n),
		touched: make([]bool, n),
	}
	for i := range pm.values {
		pm.values[i] = 0.5
	}
	return pm
}

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (pm *playModel) Init() tea.Cmd {
	return tick()
}

func (pm *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return pm, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, pm.keys.quit):
			pm.release()
			return pm, tea.Quit
		case key.Matches(msg, pm.keys.up):
			if pm.selected > 0 {
				pm.selected--
			}
		case key.Matches(msg, pm.keys.down):
			if pm.selected < len(pm.values)-1 {
				pm.selected++
			}
		case key.Matches(msg, pm.keys.inc):
			pm.adjust(paramStep)
		case key.Matches(msg, pm.keys.dec):
			pm.adjust(-paramStep)
		case key.Matches(msg, pm.keys.notes):
			pm.press(pianoKeys[msg.String()])
		case key.Matches(msg, pm.keys.release):
			pm.release()
		}
	}
	return pm, nil
}

func (pm *playModel) adjust(delta float32) {
	v := min(max(pm.values[pm.selected]+delta, 0), 1)
	pm.values[pm.selected] = v
	pm.touched[pm.selected] = true
	pm.m.SetParam(pm.node, uint32(pm.selected), v)
}

// press starts pitch, ending any note still held. Terminals report no key
// releases, so one note sounds at a time.
func (pm *playModel) press(pitch int32) {
	pm.release()
	pm.m.NoteOn(pitch, 1)
	pm.held, pm.holding = pitch, true
}

func (pm *playModel) release() {
	if pm.holding {
		pm.m.NoteOff(pm.held, 0)
		pm.holding = false
	}
}

func (pm *playModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(pm.m.Info().Name))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("node %d, %s", pm.node, pm.st.r.shape)))
	b.WriteString("\n\n")

	for i, v := range pm.values {
		val := "  -  "
		if pm.touched[i] {
			val = fmt.Sprintf("%.2f", v)
		}
		line := fmt.Sprintf("param %-3d %s", i, valueStyle.Render(val))
		if i == pm.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(meterStyle.Render(levelBar(pm.st.Peak(), 40)))
	if pm.holding {
		b.WriteString(fmt.Sprintf("  note %d", pm.held))
	}
	b.WriteString("\n")

	if s := pm.m.Stats(); s.ApplyFailures > 0 || s.ComputeFailures > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d rejected commands, %d failed blocks",
			s.ApplyFailures, s.ComputeFailures)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(pm.help.View(pm.keys))
	return b.String()
}

// levelBar draws peak as a bar of width cells over -60..0 dBFS
func levelBar(peak float32, width int) string {
	db := meter.DB(peak)
	filled := 0
	if !math.IsInf(db, -1) {
		filled = int((db + 60) / 60 * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("·", width-filled)
}
