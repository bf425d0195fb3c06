// Package gomidi connects MIDI input ports to the synthesizer using
// gitlab.com/gomidi/midi. Port access needs the rtmidi driver, which is only
// built with cgo.
package gomidi

import (
	"errors"
	"strings"
)

// Receiver takes raw MIDI messages; engine.Receiver implements it.
type Receiver interface {
	Send(msg []byte, timestamp int64) error
}

var (
	ErrNoDriver = errors.New("no MIDI driver available")
	ErrNoInput  = errors.New("no matching MIDI input")
)

// pick returns the index of the first port whose name starts with prefix,
// or the first port at all if takeFirst is set.
func pick(names []string, prefix string, takeFirst bool) (int, bool) {
	if prefix == "" && !takeFirst {
		return 0, false
	}
	for i, name := range names {
		if takeFirst || strings.HasPrefix(name, prefix) {
			return i, true
		}
	}
	return 0, false
}
