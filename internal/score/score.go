// Package score turns a Standard MIDI File into note commands stamped with
// the frame at which they fall.
package score

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/wippyai/aa-wasm/command"
)

// Event is a command due at Frame
type Event struct {
	Frame   int64
	Command command.Command
}

// Score is a time-ordered event list with a play cursor.
type Score struct {
	events []Event
	next   int
}

// Load reads the MIDI file at path
func Load(path string, sampleRate float64) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, sampleRate)
}

// Read decodes a MIDI file from r. Tempo changes are honoured; notes on all
// channels and tracks are merged. A note on with zero velocity is a note off.
func Read(r io.Reader, sampleRate float64) (*Score, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", sampleRate)
	}

	var events []Event
	tr := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		var ch, key, vel uint8
		msg := midi.Message(te.Message)
		frame := int64(math.Round(float64(te.AbsMicroSeconds) * sampleRate / 1e6))
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			events = append(events, Event{Frame: frame, Command: command.NoteOn(int32(key), velocity(vel))})
		case msg.GetNoteEnd(&ch, &key):
			events = append(events, Event{Frame: frame, Command: command.NoteOff(int32(key), 0)})
		}
	})
	if err := tr.Error(); err != nil {
		return nil, fmt.Errorf("read midi: %w", err)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Frame < events[j].Frame })
	return &Score{events: events}, nil
}

// New builds a score from events, ordering them by frame. Events on the
// same frame keep their given order.
func New(events []Event) *Score {
	s := &Score{events: append([]Event(nil), events...)}
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].Frame < s.events[j].Frame })
	return s
}

func velocity(v uint8) float32 {
	return float32(v) / 127
}

// Events returns every event in order
func (s *Score) Events() []Event {
	return s.events
}

// Len is the number of events
func (s *Score) Len() int {
	return len(s.events)
}

// End returns the frame of the last event, or 0 for an empty score
func (s *Score) End() int64 {
	if len(s.events) == 0 {
		return 0
	}
	return s.events[len(s.events)-1].Frame
}

// Due calls fn for each event at or before frame that has not been
// delivered yet.
func (s *Score) Due(frame int64, fn func(command.Command)) {
	for s.next < len(s.events) && s.events[s.next].Frame <= frame {
		fn(s.events[s.next].Command)
		s.next++
	}
}

// Next reports the frame of the next undelivered event
func (s *Score) Next() (int64, bool) {
	if s.next >= len(s.events) {
		return 0, false
	}
	return s.events[s.next].Frame, true
}

// Rewind restarts delivery from the first event
func (s *Score) Rewind() {
	s.next = 0
}
