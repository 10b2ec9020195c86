package audiofile

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWAVFile(t *testing.T) {
	src := NewBuffer(22050, 2, 64)
	for i := range 64 {
		src.Channels[0][i] = float32(math.Sin(float64(i) / 8))
		src.Channels[1][i] = -0.5
	}
	src.Channels[0][3] = 2 // clipped

	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteWAVFile(path, src); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}

	got, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.SampleRate != 22050 || len(got.Channels) != 2 || got.Frames() != 64 {
		t.Fatalf("decoded %d Hz, %d channels, %d frames", got.SampleRate, len(got.Channels), got.Frames())
	}
	const tol = 1.0 / 16384
	for i := range 64 {
		want := clip(src.Channels[0][i])
		if d := math.Abs(float64(got.Channels[0][i] - want)); d > tol {
			t.Errorf("left[%d] = %v, want %v", i, got.Channels[0][i], want)
		}
		if d := math.Abs(float64(got.Channels[1][i] + 0.5)); d > tol {
			t.Errorf("right[%d] = %v, want -0.5", i, got.Channels[1][i])
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	t.Run("unsupported", func(t *testing.T) {
		_, err := Decode(write("in.flac", []byte("fLaC")))
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("err = %v, want ErrUnsupported", err)
		}
	})
	t.Run("missing", func(t *testing.T) {
		if _, err := Decode(filepath.Join(dir, "absent.wav")); err == nil {
			t.Error("expected error")
		}
	})
	for _, name := range []string{"junk.wav", "junk.mp3", "junk.ogg"} {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(write(name, bytes.Repeat([]byte{0x5a}, 64))); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuffer(t *testing.T) {
	b := &Buffer{Channels: [][]float32{{1, 2, 3}, {4, 5}}}
	if b.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", b.Frames())
	}

	mono := &Buffer{Channels: [][]float32{{7}}}
	if mono.Channel(1)[0] != 7 {
		t.Error("mono channel does not wrap")
	}
	if (&Buffer{}).Channel(0) != nil {
		t.Error("empty buffer channel is not nil")
	}
	if (&Buffer{}).Frames() != 0 {
		t.Error("empty buffer has frames")
	}
}

func TestWriteWAV_NoChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := WriteWAVFile(path, &Buffer{SampleRate: 48000}); err == nil {
		t.Error("expected error")
	}
}
