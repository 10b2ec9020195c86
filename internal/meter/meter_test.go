package meter

import (
	"math"
	"testing"
)

func TestMeasure(t *testing.T) {
	tests := []struct {
		name string
		x    []float32
		want Level
	}{
		{"empty", nil, Level{}},
		{"silence", []float32{0, 0, 0, 0}, Level{}},
		{"square", []float32{0.5, -0.5, 0.5, -0.5}, Level{Peak: 0.5, RMS: 0.5}},
		{"negative peak", []float32{0.1, -0.8, 0, 0}, Level{Peak: 0.8, RMS: float32(math.Sqrt((0.01 + 0.64) / 4))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Measure(tt.x, nil)
			if math.Abs(float64(got.Peak-tt.want.Peak)) > 1e-6 || math.Abs(float64(got.RMS-tt.want.RMS)) > 1e-6 {
				t.Errorf("Measure() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMeasure_ReusesScratch(t *testing.T) {
	scratch := make([]float32, 0, 8)
	_, out := Measure([]float32{1, 2}, scratch)
	if &out[:1][0] != &scratch[:1][0] {
		t.Error("scratch was not reused")
	}
}

func TestMeter(t *testing.T) {
	var m Meter
	m.Add([]float32{0.25, -0.25})
	m.Add([]float32{0.9, 0})
	m.Add([]float32{0.1, 0.1})

	got := m.Max()
	if got.Peak != 0.9 {
		t.Errorf("peak = %v, want 0.9", got.Peak)
	}
	if got.RMS < 0.63 || got.RMS > 0.64 {
		t.Errorf("rms = %v, want about 0.636", got.RMS)
	}

	m.Reset()
	if m.Max() != (Level{}) {
		t.Errorf("after Reset = %+v", m.Max())
	}
}

func TestDB(t *testing.T) {
	if got := DB(1); got != 0 {
		t.Errorf("DB(1) = %v", got)
	}
	if got := DB(0.5); math.Abs(got+6.0206) > 1e-3 {
		t.Errorf("DB(0.5) = %v", got)
	}
	if !math.IsInf(DB(0), -1) {
		t.Error("DB(0) is not -Inf")
	}
}
