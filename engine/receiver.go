package engine

import (
	"slices"

	"gitlab.com/gomidi/midi/v2"
)

// Receiver feeds MIDI messages into a Synthesizer.
type Receiver struct {
	s *Synthesizer
}

// Send queues a raw MIDI message: a channel voice or mode message, a
// complete SysEx message from 0xF0 to 0xF7, or active sensing (0xFE). With
// a timestamp of -1 the message is processed at once; otherwise it is
// played, sample accurately, when the stream reaches timestamp
// microseconds (see Synthesizer.MicrosecondPosition). Returns ErrNotOpen if
// the synthesizer is closed.
func (r *Receiver) Send(msg []byte, timestamp int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	if len(msg) == 0 {
		return nil
	}
	s.activity()
	if timestamp < 0 {
		s.processMessage(msg, 0)
		return nil
	}
	s.schedule(timestamp, slices.Clone(msg))
	return nil
}

func (r *Receiver) SendMessage(msg midi.Message, timestamp int64) error {
	return r.Send([]byte(msg), timestamp)
}

// processMessage dispatches one message to its channel, delaying notes by
// delay frames into the current period.
func (s *Synthesizer) processMessage(raw []byte, delay int) {
	s.activity()
	switch raw[0] {
	case 0xFE:
		if s.config.ActiveSensing {
			s.mixer.activeSensing = true
		}
		return
	case 0xF0:
		s.processSysEx(raw)
		return
	}
	msg := midi.Message(raw)
	var ch, key, vel, cc, val, prog, pressure uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if c := s.channel(int(ch)); c != nil {
			c.noteOn(int(key), int(vel), delay)
		}
	case msg.GetNoteOff(&ch, &key, &vel):
		if c := s.channel(int(ch)); c != nil {
			c.noteOff(int(key), int(vel))
		}
	case msg.GetNoteEnd(&ch, &key):
		// note on with zero velocity
		if c := s.channel(int(ch)); c != nil {
			c.noteOn(int(key), 0, delay)
		}
	case msg.GetPolyAfterTouch(&ch, &key, &pressure):
		if c := s.channel(int(ch)); c != nil {
			c.setPolyPressure(int(key), int(pressure))
		}
	case msg.GetControlChange(&ch, &cc, &val):
		if c := s.channel(int(ch)); c != nil {
			c.controlChange(int(cc), int(val))
		}
	case msg.GetProgramChange(&ch, &prog):
		if c := s.channel(int(ch)); c != nil {
			c.programChange(c.bank, int(prog))
		}
	case msg.GetAfterTouch(&ch, &pressure):
		if c := s.channel(int(ch)); c != nil {
			c.setChannelPressure(int(pressure))
		}
	case msg.GetPitchBend(&ch, &rel, &abs):
		if c := s.channel(int(ch)); c != nil {
			c.setPitchBend(int(abs))
		}
	}
}

// channel returns channel i, or nil if there is no such channel.
func (s *Synthesizer) channel(i int) *Channel {
	if i < 0 || i >= len(s.channels) {
		return nil
	}
	return s.channels[i]
}
