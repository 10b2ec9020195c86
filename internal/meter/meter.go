// Package meter measures signal levels of rendered blocks.
package meter

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Level is the peak and RMS of a block, both linear.
type Level struct {
	Peak float32
	RMS  float32
}

// DB converts a linear amplitude to decibels full scale. Silence maps to
// -Inf.
func DB(v float32) float64 {
	return 20 * math.Log10(float64(v))
}

// Measure computes the level of x. The scratch slice is reused when it has
// room.
func Measure(x, scratch []float32) (Level, []float32) {
	if len(x) == 0 {
		return Level{}, scratch
	}
	if cap(scratch) < len(x) {
		scratch = make([]float32, len(x))
	}
	scratch = scratch[:len(x)]
	vek32.Abs_Into(scratch, x)
	peak := vek32.Max(scratch)
	rms := float32(math.Sqrt(float64(vek32.Dot(x, x)) / float64(len(x))))
	return Level{Peak: peak, RMS: rms}, scratch
}

// Meter accumulates the loudest level seen across blocks.
type Meter struct {
	level   Level
	scratch []float32
}

func (m *Meter) Add(x []float32) Level {
	var l Level
	l, m.scratch = Measure(x, m.scratch)
	m.level.Peak = max(m.level.Peak, l.Peak)
	m.level.RMS = max(m.level.RMS, l.RMS)
	return l
}

// Max returns the loudest peak and RMS since the last Reset
func (m *Meter) Max() Level {
	return m.level
}

func (m *Meter) Reset() {
	m.level = Level{}
}
