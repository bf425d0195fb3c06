package gmsynth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// Score is a list of timed MIDI messages, for rendering offline. It is
	// stored as YAML:
	//
	//	tail: 2
	//	events:
	//	  - {time: 0, msg: 90 3c 64}
	//	  - {time: 0.5, msg: 80 3c 40}
	Score struct {
		Events []ScoreEvent
		Tail   float64 // seconds rendered after the last event
	}

	ScoreEvent struct {
		Time float64 // seconds
		Msg  MIDIBytes
	}

	// MIDIBytes is a raw MIDI message, written as hexadecimal bytes
	// separated by spaces.
	MIDIBytes []byte
)

var ErrInvalidScore = errors.New("invalid score")

func ParseScore(data []byte) (*Score, error) {
	var s Score
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScore, err)
	}
	for i, e := range s.Events {
		if e.Time < 0 {
			return nil, fmt.Errorf("%w: event %d at negative time %v", ErrInvalidScore, i, e.Time)
		}
		if len(e.Msg) == 0 || e.Msg[0] < 0x80 {
			return nil, fmt.Errorf("%w: event %d does not start with a status byte", ErrInvalidScore, i)
		}
	}
	if s.Tail < 0 {
		return nil, fmt.Errorf("%w: negative tail %v", ErrInvalidScore, s.Tail)
	}
	slices.SortStableFunc(s.Events, func(a, b ScoreEvent) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return &s, nil
}

func LoadScore(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read score: %w", err)
	}
	return ParseScore(data)
}

// Length returns the length of the score in seconds, tail included.
func (s *Score) Length() float64 {
	if len(s.Events) == 0 {
		return s.Tail
	}
	return s.Events[len(s.Events)-1].Time + s.Tail
}

func (m MIDIBytes) MarshalText() ([]byte, error) {
	fields := make([]string, len(m))
	for i, b := range m {
		fields[i] = hex.EncodeToString([]byte{b})
	}
	return []byte(strings.Join(fields, " ")), nil
}

func (m *MIDIBytes) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(strings.Join(strings.Fields(string(text)), ""))
	if err != nil {
		return fmt.Errorf("malformed MIDI bytes %q: %w", text, err)
	}
	*m = b
	return nil
}
