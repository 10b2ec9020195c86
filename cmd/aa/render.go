package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/aa-wasm/internal/audiofile"
	"github.com/wippyai/aa-wasm/internal/meter"
	"github.com/wippyai/aa-wasm/internal/score"
	"github.com/wippyai/aa-wasm/module"
)

// tailSeconds is rendered past the last score event so releases ring out
const tailSeconds = 1.0

// paramFlag collects repeated -param node:index=value settings
type paramFlag []paramSetting

type paramSetting struct {
	node, index uint32
	value       float32
}

func (p *paramFlag) String() string {
	parts := make([]string, len(*p))
	for i, s := range *p {
		parts[i] = fmt.Sprintf("%d:%d=%g", s.node, s.index, s.value)
	}
	return strings.Join(parts, ",")
}

func (p *paramFlag) Set(v string) error {
	s, err := parseParam(v)
	if err != nil {
		return err
	}
	*p = append(*p, s)
	return nil
}

// parseParam reads "node:index=value" or "index=value" (node 0)
func parseParam(v string) (paramSetting, error) {
	key, val, ok := strings.Cut(v, "=")
	if !ok {
		return paramSetting{}, fmt.Errorf("param %q: want node:index=value", v)
	}
	var s paramSetting
	nodeStr, indexStr, hasNode := strings.Cut(key, ":")
	if !hasNode {
		nodeStr, indexStr = "0", key
	}
	node, err := strconv.ParseUint(nodeStr, 10, 32)
	if err != nil {
		return paramSetting{}, fmt.Errorf("param %q: node: %w", v, err)
	}
	index, err := strconv.ParseUint(indexStr, 10, 32)
	if err != nil {
		return paramSetting{}, fmt.Errorf("param %q: index: %w", v, err)
	}
	value, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return paramSetting{}, fmt.Errorf("param %q: value: %w", v, err)
	}
	s.node, s.index, s.value = uint32(node), uint32(index), float32(value)
	return s, nil
}

func (p paramFlag) apply(m *module.Module) {
	for _, s := range p {
		m.SetParam(s.node, s.index, s.value)
	}
}

func (a *app) render(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var (
		out     = fs.String("o", "out.wav", "Output WAV file")
		in      = fs.String("in", "", "Input audio (WAV, MP3 or Ogg Vorbis)")
		midi    = fs.String("midi", "", "Standard MIDI file driving note on/off")
		seconds = fs.Float64("seconds", 0, "Length to render (default: input or score length)")
		rate    = fs.Float64("rate", a.cfg.SampleRate, "Sample rate")
		block   = fs.Int("block", a.cfg.BlockSize, "Frames per compute call")
	)
	var params paramFlag
	fs.Var(&params, "param", "Set a parameter before rendering, node:index=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name, err := oneModuleArg(fs)
	if err != nil {
		return err
	}
	if *block <= 0 {
		return fmt.Errorf("block must be positive")
	}

	var input *audiofile.Buffer
	if *in != "" {
		if input, err = audiofile.Decode(*in); err != nil {
			return fmt.Errorf("input: %w", err)
		}
		if float64(input.SampleRate) != *rate {
			a.logger.Warn("input sample rate differs, no resampling is done",
				zap.Int("input", input.SampleRate), zap.Float64("render", *rate))
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
	params.apply(m)

	frames := renderLength(*seconds, *rate, input, sc)
	buf, level := renderBuffer(r, int(*rate), frames, *block)
	if err := audiofile.WriteWAVFile(*out, buf); err != nil {
		return err
	}

	stats := m.Stats()
	fmt.Printf("%s: %d frames, %s, peak %.1f dBFS, rms %.1f dBFS\n",
		*out, frames, r.shape, meter.DB(level.Peak), meter.DB(level.RMS))
	if stats.ApplyFailures > 0 || stats.ComputeFailures > 0 {
		fmt.Printf("%s\n", a.paint(errorStyle, fmt.Sprintf(
			"%d rejected commands, %d failed blocks", stats.ApplyFailures, stats.ComputeFailures)))
	}
	return nil
}

// renderLength picks the number of frames to render
func renderLength(seconds, rate float64, input *audiofile.Buffer, sc *score.Score) int {
	if seconds > 0 {
		return int(seconds * rate)
	}
	frames := 0
	if input != nil {
		frames = input.Frames()
	}
	if sc != nil && sc.Len() > 0 {
		frames = max(frames, int(sc.End())+int(tailSeconds*rate))
	}
	if frames == 0 {
		frames = int(2 * rate)
	}
	return frames
}

// renderBuffer renders frames into a new buffer and reports the loudest
// block level.
func renderBuffer(r *renderer, rate, frames, block int) (*audiofile.Buffer, meter.Level) {
	buf := audiofile.NewBuffer(rate, r.shape.outputs, frames)
	var mt meter.Meter
	outs := make([][]float32, r.shape.outputs)
	for off := 0; off < frames; off += block {
		n := min(block, frames-off)
		for c := range outs {
			outs[c] = buf.Channels[c][off : off+n]
		}
		r.process(outs)
		for _, o := range outs {
			mt.Add(o)
		}
	}
	return buf, mt.Max()
}
