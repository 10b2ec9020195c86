// Package audiofile reads input audio for offline rendering and writes the
// rendered result as WAV.
package audiofile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnsupported is returned for file types no decoder handles
var ErrUnsupported = errors.New("unsupported audio format")

// Buffer is decoded audio, one slice per channel.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a silent buffer
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	b := &Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c := range b.Channels {
		b.Channels[c] = make([]float32, frames)
	}
	return b
}

// Frames returns the length of the shortest channel
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	n := len(b.Channels[0])
	for _, ch := range b.Channels[1:] {
		n = min(n, len(ch))
	}
	return n
}

// Channel returns channel c, wrapping mono sources onto every channel.
// It returns nil when the buffer has no channels.
func (b *Buffer) Channel(c int) []float32 {
	if len(b.Channels) == 0 {
		return nil
	}
	return b.Channels[c%len(b.Channels)]
}

// Decode reads the audio file at path, choosing the decoder by extension.
func Decode(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return DecodeWAV(f)
	case ".mp3":
		return DecodeMP3(f)
	case ".ogg", ".oga":
		return DecodeVorbis(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// DecodeWAV reads PCM WAV data
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	depth := int(dec.SampleBitDepth())
	if depth == 0 {
		return nil, errors.New("unknown WAV bit depth")
	}
	if pcm.Format == nil || pcm.Format.NumChannels < 1 {
		return nil, errors.New("WAV file has no channels")
	}
	scale := float32(int64(1) << (depth - 1))
	return deinterleave(pcm.Format.SampleRate, pcm.Format.NumChannels, len(pcm.Data), func(i int) float32 {
		return float32(pcm.Data[i]) / scale
	}), nil
}

// DecodeMP3 reads MPEG-1/2 layer III data. The decoder always yields
// 16-bit stereo.
func DecodeMP3(r io.Reader) (*Buffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	samples := len(raw) / 2
	return deinterleave(dec.SampleRate(), 2, samples, func(i int) float32 {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		return float32(v) / 32768
	}), nil
}

// DecodeVorbis reads Ogg Vorbis data
func DecodeVorbis(r io.Reader) (*Buffer, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode vorbis: %w", err)
	}
	if format.Channels < 1 {
		return nil, errors.New("vorbis stream has no channels")
	}
	return deinterleave(format.SampleRate, format.Channels, len(data), func(i int) float32 {
		return data[i]
	}), nil
}

func deinterleave(rate, channels, samples int, at func(int) float32) *Buffer {
	frames := samples / channels
	b := NewBuffer(rate, channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			b.Channels[c][i] = at(i*channels + c)
		}
	}
	return b
}

// WriteWAV encodes b as 16-bit PCM. Samples are clipped to [-1, 1].
func WriteWAV(w io.WriteSeeker, b *Buffer) error {
	channels := len(b.Channels)
	if channels == 0 {
		return errors.New("no channels to write")
	}
	frames := b.Frames()

	enc := wav.NewEncoder(w, b.SampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: b.SampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			buf.Data[i*channels+c] = int(clip(b.Channels[c][i]) * 32767)
		}
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// WriteWAVFile creates path and writes b to it
func WriteWAVFile(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func clip(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
