package engine

import "github.com/vsariola/gmsynth"

type (
	// slot is one element of the voice pool. Slots are created when the
	// synthesizer is opened and only their fields are rewritten afterwards.
	slot struct {
		voice gmsynth.Voice

		active           bool
		on               bool // key held; false once released
		sustain          bool // released while the sustain pedal was down
		sostenuto        bool
		releaseTriggered bool

		voiceID        int64
		channel        int
		bank, program  int
		note, velocity int
		exclusiveClass int
		mixer          *channelMixer
		tuning         *gmsynth.Tuning

		// stealer is the request waiting for this slot to fall silent; nil
		// when the slot is not being stolen.
		stealer *voiceRequest
	}

	// voiceRequest is a performer match waiting to be activated on a slot.
	// The patch and tuning are those of the channel when the note was
	// played; a stealer keeps them across later program changes.
	voiceRequest struct {
		channel          int
		instrument       *gmsynth.Instrument
		bank, program    int
		tuning           *gmsynth.Tuning
		performer        *gmsynth.Performer
		connections      []gmsynth.ConnectionBlock
		voiceID          int64
		note, velocity   int
		delay            int
		mixer            *channelMixer
		releaseTriggered bool
	}
)

// findFreeVoice returns the first free slot at or after hint. If there
// is none, a slot to steal is chosen with the configured policy; the victim
// is still active and the caller must queue its request as a stealer.
// Returns -1 if no slot can be used.
func (s *Synthesizer) findFreeVoice(hint, channel int) int {
	if hint < 0 {
		return -1
	}
	for i := hint; i < len(s.slots); i++ {
		if v := &s.slots[i]; !v.active && v.stealer == nil {
			return i
		}
	}
	if s.allocation == AllocationDLSStatic {
		return s.oldestVoice(s.stealChannel(channel))
	}
	return s.oldestVoice(-1)
}

// stealChannel picks the channel DLS static allocation steals from: the
// highest numbered channel with a voice not already being stolen, where the
// percussion channel is only chosen if nothing else plays.
func (s *Synthesizer) stealChannel(channel int) int {
	ret := channel
	for i := range s.slots {
		v := &s.slots[i]
		if v.stealer != nil {
			continue
		}
		if ret == gmsynth.PercussionChannel {
			ret = v.channel
		} else if v.channel != gmsynth.PercussionChannel && v.channel > ret {
			ret = v.channel
		}
	}
	return ret
}

// oldestVoice returns the slot with the lowest voice id that is not already
// being stolen, preferring released slots over held ones. With channel -1
// every channel is considered.
func (s *Synthesizer) oldestVoice(channel int) int {
	for _, released := range [...]bool{true, false} {
		ret := -1
		for i := range s.slots {
			v := &s.slots[i]
			if v.stealer != nil || (channel >= 0 && v.channel != channel) || (released && v.on) {
				continue
			}
			if ret == -1 || v.voiceID < s.slots[ret].voiceID {
				ret = i
			}
		}
		if ret != -1 {
			return ret
		}
	}
	return -1
}

// steal queues req on the active slot i and fades out every voice playing
// the same note event as the victim.
func (s *Synthesizer) steal(i int, req *voiceRequest) {
	victim := s.slots[i].voiceID
	s.slots[i].stealer = req
	for j := range s.slots {
		if v := &s.slots[j]; v.active && v.voiceID == victim {
			v.voice.SoundOff()
		}
	}
}

// deactivate marks slot i silent. A queued stealer stays and is activated
// in the next control pass.
func (s *Synthesizer) deactivate(i int) {
	v := &s.slots[i]
	v.active = false
	v.on = false
	v.sustain = false
	v.sostenuto = false
	v.mixer = nil
}

// releaseSlot sends a note off to the voice in slot i, unless the sustain
// or sostenuto pedal holds it.
func (s *Synthesizer) releaseSlot(i int, velocity int) {
	v := &s.slots[i]
	if !v.on {
		return
	}
	v.on = false
	if s.channels[v.channel].sustain {
		v.sustain = true
		return
	}
	if v.sostenuto {
		return
	}
	v.voice.NoteOff(velocity)
}

// stepVoices runs the control pass of all active voices. Slots that fall
// silent are handed to their stealer, which is stepped right away so it
// sounds in this same period.
func (s *Synthesizer) stepVoices() {
	tuning := s.masterTuning()
	for i := range s.slots {
		v := &s.slots[i]
		if v.active && !v.voice.StepControl(tuning) {
			s.deactivate(i)
		}
		if v.active || v.stealer == nil {
			continue
		}
		req := v.stealer
		v.stealer = nil
		req.delay = 0
		s.channels[req.channel].initVoice(i, req)
		if v.active && !v.voice.StepControl(tuning) {
			s.deactivate(i)
		}
	}
}
