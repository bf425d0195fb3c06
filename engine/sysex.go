package engine

import (
	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/fx"
)

// processSysEx handles the universal non-real-time and real-time SysEx
// messages addressed to the synthesizer. data is the complete message from
// 0xF0 to 0xF7. Anything unknown or malformed is ignored.
func (s *Synthesizer) processSysEx(data []byte) {
	if len(data) < 6 || data[0] != 0xF0 {
		return
	}
	if id := int(data[2]); id != 0x7F && id != s.config.DeviceID {
		return
	}
	switch data[1] {
	case 0x7E:
		s.nonRealTimeSysEx(data)
	case 0x7F:
		s.realTimeSysEx(data)
	}
}

func (s *Synthesizer) nonRealTimeSysEx(data []byte) {
	sub2 := data[4]
	switch data[3] {
	case 0x08: // MIDI tuning standard
		switch sub2 {
		case 0x01: // bulk tuning dump
			s.loadTuning(s.tuning(0, int(data[5])), data)
		case 0x04, 0x05, 0x06, 0x07: // key based and scale/octave dumps, single note change (bank)
			if len(data) > 7 {
				s.loadTuning(s.tuning(int(data[5]), int(data[6])), data)
			}
		case 0x08, 0x09: // scale/octave tuning
			s.scaleOctaveTuning(data, false)
		}
	case 0x09: // General MIDI
		switch sub2 {
		case 0x01:
			s.gmMode = 1
			s.reset()
		case 0x02:
			s.gmMode = 0
			s.reset()
		case 0x03:
			s.gmMode = 2
			s.reset()
		}
	case 0x0A: // DLS
		switch sub2 {
		case 0x01:
			if s.gmMode == 0 {
				s.gmMode = 1
			}
			s.allocation = AllocationDLSStatic
			s.reset()
		case 0x02:
			s.gmMode = 0
			s.allocation = AllocationDefault
			s.reset()
		case 0x03:
			s.allocation = AllocationDefault
		case 0x04:
			s.allocation = AllocationDLSStatic
		}
	}
}

func (s *Synthesizer) realTimeSysEx(data []byte) {
	sub2 := data[4]
	switch data[3] {
	case 0x04: // device control
		switch sub2 {
		case 0x01, 0x02, 0x03, 0x04:
			if len(data) < 8 {
				return
			}
			val := int(data[5]&0x7F) + int(data[6]&0x7F)*128
			m := s.mixer
			switch sub2 {
			case 0x01:
				m.volume = val
			case 0x02:
				m.balance = val
			case 0x03:
				m.fineTuning = val
			case 0x04:
				m.coarseTuning = val
			}
		case 0x05:
			s.globalParameterControl(data)
		}
	case 0x08: // MIDI tuning standard
		switch sub2 {
		case 0x02: // single note tuning change
			s.loadTuning(s.tuning(0, int(data[5])), data)
		case 0x07: // single note tuning change, bank
			if len(data) > 7 {
				s.loadTuning(s.tuning(int(data[5]), int(data[6])), data)
			}
		case 0x08, 0x09:
			s.scaleOctaveTuning(data, true)
		}
	case 0x09: // control destination settings
		if len(data) < 7 {
			return
		}
		c := s.channel(int(data[5]))
		if c == nil {
			return
		}
		switch sub2 {
		case 0x01:
			d, r := pairs(data[6 : len(data)-1])
			c.mapControlDestinations(gmsynth.Source{Kind: gmsynth.SourceChannelPressure}, d, r)
		case 0x02:
			d, r := pairs(data[6 : len(data)-1])
			c.mapControlDestinations(gmsynth.Source{Kind: gmsynth.SourcePolyPressure}, d, r)
		case 0x03:
			if len(data) < 8 {
				return
			}
			d, r := pairs(data[7 : len(data)-1])
			c.mapControlDestinations(gmsynth.Controller(int(data[6])), d, r)
		}
	case 0x0A: // key based instrument control
		if sub2 != 0x01 || len(data) < 8 {
			return
		}
		c := s.channel(int(data[5]))
		if c == nil {
			return
		}
		key := int(data[6])
		for j := 7; j+1 < len(data)-1; j += 2 {
			c.controlPerNote(key, int(data[j]), int(data[j+1]))
		}
	}
}

// globalParameterControl parses a GM2 global parameter control message:
// slot path length, parameter width and value width at bytes 5 to 7, the
// slot path as MSB/LSB pairs and then the parameter/value pairs.
func (s *Synthesizer) globalParameterControl(data []byte) {
	if len(data) < 9 {
		return
	}
	pathLen, paramWidth, valueWidth := int(data[5]), int(data[6]), int(data[7])
	ix := 8 + pathLen*2
	if paramWidth+valueWidth == 0 || ix >= len(data) {
		return
	}
	slotPath := make([]int, pathLen)
	for i := range slotPath {
		slotPath[i] = int(data[8+i*2])*128 + int(data[9+i*2])
	}
	count := (len(data) - 1 - ix) / (paramWidth + valueWidth)
	params, values := make([]int64, count), make([]int64, count)
	for i := 0; i < count; i++ {
		for j := 0; j < paramWidth; j++ {
			params[i] = params[i]*128 + int64(data[ix])
			ix++
		}
		for j := 0; j < valueWidth; j++ {
			values[i] = values[i]*128 + int64(data[ix])
			ix++
		}
	}
	s.globalParameterControlChange(slotPath, params, values)
}

// pairs splits (destination, range) byte pairs.
func pairs(b []byte) (destinations, ranges []int) {
	for i := 0; i+1 < len(b); i += 2 {
		destinations = append(destinations, int(b[i]))
		ranges = append(ranges, int(b[i+1]))
	}
	return
}

// tuning returns the shared tuning of a bank and program, creating an equal
// tempered one on first use.
func (s *Synthesizer) tuning(bank, program int) *gmsynth.Tuning {
	key := [2]int{bank, program}
	t, ok := s.tunings[key]
	if !ok {
		t = gmsynth.NewTuning(bank, program)
		s.tunings[key] = t
	}
	return t
}

// loadTuning applies a tuning message to t and retunes the voices playing
// with it.
func (s *Synthesizer) loadTuning(t *gmsynth.Tuning, data []byte) {
	if err := t.Load(data); err != nil {
		s.logf("engine: tuning %d.%d: %v", t.Bank, t.Program, err)
		return
	}
	for i := range s.slots {
		if v := &s.slots[i]; v.active && v.tuning == t {
			v.voice.UpdateTuning(t)
		}
	}
}

// scaleOctaveTuning gives the channels in the mask of the message a new
// tuning. The real-time form also retunes their sounding voices.
func (s *Synthesizer) scaleOctaveTuning(data []byte, realtime bool) {
	mask, ok := gmsynth.TuningChannelMask(data)
	if !ok {
		return
	}
	t := gmsynth.NewTuning(0, 0)
	if err := t.Load(data); err != nil {
		s.logf("engine: scale/octave tuning: %v", err)
		return
	}
	for i, c := range s.channels {
		if mask&(1<<i) != 0 {
			c.tuning = t
		}
	}
	if !realtime {
		return
	}
	for i := range s.slots {
		if v := &s.slots[i]; v.active && mask&(1<<v.channel) != 0 {
			v.tuning = t
			v.voice.UpdateTuning(t)
		}
	}
}

// reset is the master reset done on GM and DLS mode changes.
func (s *Synthesizer) reset() {
	for i, c := range s.channels {
		c.allSoundOff()
		c.resetAllControllers(true)
		switch {
		case s.gmMode == 2 && i == gmsynth.PercussionChannel:
			c.programChange(gmsynth.BankMSBPercussion<<7, 0)
		case s.gmMode == 2:
			c.programChange(gmsynth.BankMSBMelodic<<7, 0)
		default:
			c.programChange(0, 0)
		}
	}
	m := s.mixer
	m.volume, m.balance = 16383, 8192
	m.fineTuning, m.coarseTuning = 8192, 8192
	s.globalParameterControlChange([]int{fx.SlotReverb}, []int64{0}, []int64{4})
	s.globalParameterControlChange([]int{fx.SlotChorus}, []int64{0}, []int64{2})
}
