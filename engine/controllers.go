package engine

import (
	"math"

	"github.com/vsariola/gmsynth"
)

// nullParam is the RPN/NRPN selection meaning no parameter.
const nullParam = 127<<7 + 127

// Pseudo controllers of the key based instrument control, addressing the
// fine and coarse tuning of a single note.
const (
	keyFineTuning   = 120
	keyCoarseTuning = 121
)

// doNotReset lists the controllers kept by a partial reset of all
// controllers.
var doNotReset = func() (ret [128]bool) {
	for _, cc := range []int{0, 32, 7, 8, 10, 11, 6, 38, 96, 97, 98, 99, 100, 101} {
		ret[cc] = true
	}
	for cc := 91; cc <= 95; cc++ {
		ret[cc] = true
	}
	for cc := 70; cc <= 79; cc++ {
		ret[cc] = true
	}
	for cc := 120; cc <= 127; cc++ {
		ret[cc] = true
	}
	return
}()

func (c *Channel) controlChange(cc, value int) {
	cc, value = clamp7(cc), clamp7(value)
	if c.mixer != nil {
		c.mixer.mixer.ControlChange(cc, value)
	}
	s := c.s
	switch cc {
	case 0:
		c.bank = value << 7
		return
	case 32:
		c.bank = c.bank&(127<<7) | value
		return
	case 122:
		// local control has no meaning without a keyboard
		return
	case 5:
		// GM2 portamento time curve, converted from cents per millisecond
		// to keys per control period
		x := -math.Asin(float64(value)/128*2-1)/math.Pi + 0.5
		x = math.Pow(100000, x) / 100
		c.portamentoTime = x / 100 * 1000 / s.config.ControlRate
	case 6, 38, 96, 97:
		c.dataEntry(cc, value)
	case 64:
		c.setSustain(value >= 64)
	case 65:
		c.portamento = value >= 64
		c.lastNotes[0] = -1
		c.lastNotesCount = 0
	case 66:
		c.setSostenuto(value >= 64)
	case 84:
		c.portamentoControlNote = value
		if value == 0 {
			c.portamentoControlNote = -1
		}
	case 98:
		c.nrpnSelect = c.nrpnSelect&(127<<7) | value
		c.rpnSelect = nullParam
	case 99:
		c.nrpnSelect = c.nrpnSelect&127 | value<<7
		c.rpnSelect = nullParam
	case 100:
		c.rpnSelect = c.rpnSelect&(127<<7) | value
		c.nrpnSelect = nullParam
	case 101:
		c.rpnSelect = c.rpnSelect&127 | value<<7
		c.nrpnSelect = nullParam
	case 120:
		c.allSoundOff()
	case 121:
		c.resetAllControllers(value == 127)
	case 123, 124, 125:
		// omni on/off are not supported beyond their implied all notes off
		c.allNotesOff()
	case 126:
		if value == 1 {
			c.allNotesOff()
			c.mono = true
		}
	case 127:
		c.allNotesOff()
		c.mono = false
	}
	c.controller[cc] = value
	if cc < 32 {
		c.controller[cc+32] = 0
	}
	for i := range s.slots {
		if v := &s.slots[i]; v.active && v.channel == c.index {
			v.voice.ControlChange(cc, c.keyController(v.note, cc))
		}
	}
}

// dataEntry applies data entry MSB (6), LSB (38), increment (96) or
// decrement (97) to the selected RPN or NRPN.
func (c *Channel) dataEntry(cc, value int) {
	val := 0
	if c.nrpnSelect != nullParam {
		val = c.nrpn[c.nrpnSelect]
	}
	if c.rpnSelect != nullParam {
		val = c.rpn[c.rpnSelect]
	}
	switch cc {
	case 6:
		val = val&127 | value<<7
	case 38:
		val = val&(127<<7) | value
	case 96, 97:
		step := 1
		if c.rpnSelect == 2 || c.rpnSelect == 3 || c.rpnSelect == 4 {
			// coarse tuning and tuning selection count in MSB steps
			step = 128
		}
		if cc == 97 {
			step = -step
		}
		val += step
	}
	val = clamp14(val)
	if c.nrpnSelect != nullParam {
		c.nrpnChange(c.nrpnSelect, val)
	}
	if c.rpnSelect != nullParam {
		c.rpnChange(c.rpnSelect, val)
	}
}

func (c *Channel) rpnChange(param, value int) {
	switch param {
	case 3:
		c.tuningProgram = value >> 7 & 127
		c.tuning = c.s.tuning(c.tuningBank, c.tuningProgram)
	case 4:
		c.tuningBank = value >> 7 & 127
	}
	c.rpn[param] = value
	for i := range c.s.slots {
		if v := &c.s.slots[i]; v.active && v.channel == c.index {
			v.voice.RPNChange(param, c.keyRPN(v.note, param))
		}
	}
}

func (c *Channel) nrpnChange(param, value int) {
	c.nrpn[param] = value
	for i := range c.s.slots {
		if v := &c.s.slots[i]; v.active && v.channel == c.index {
			v.voice.NRPNChange(param, value)
		}
	}
}

func (c *Channel) setSustain(on bool) {
	if c.sustain == on {
		return
	}
	c.sustain = on
	s := c.s
	for i := range s.slots {
		v := &s.slots[i]
		if !v.active || v.channel != c.index {
			continue
		}
		if on {
			if v.on {
				v.sustain = true
			}
			continue
		}
		if v.sustain {
			v.sustain = false
			if !v.on {
				v.on = true
				s.releaseSlot(i, 0)
			}
		}
	}
}

func (c *Channel) setSostenuto(on bool) {
	s := c.s
	for i := range s.slots {
		v := &s.slots[i]
		if !v.active || v.channel != c.index {
			continue
		}
		if on {
			if v.on {
				v.sostenuto = true
			}
			continue
		}
		if v.sostenuto {
			v.sostenuto = false
			if !v.on {
				v.on = true
				s.releaseSlot(i, 0)
			}
		}
	}
}

// allNotesOff releases every held voice of the channel. Pedals still
// apply.
func (c *Channel) allNotesOff() {
	s := c.s
	for i := range s.slots {
		if v := &s.slots[i]; v.on && v.channel == c.index && !v.releaseTriggered {
			s.releaseSlot(i, 0)
		}
	}
	c.clearNoteOnCache()
}

// allSoundOff silences the channel at once: its voices are freed and
// pending steals it requested are dropped.
func (c *Channel) allSoundOff() {
	s := c.s
	for i := range s.slots {
		v := &s.slots[i]
		if v.active && v.channel == c.index {
			v.voice.SoundOff()
			s.deactivate(i)
		}
		if r := v.stealer; r != nil && r.channel == c.index {
			v.stealer = nil
		}
	}
	c.clearNoteOnCache()
}

func (c *Channel) clearNoteOnCache() {
	for n := range c.s.noteOnCache {
		c.s.noteOnCache[n] &^= 1 << c.index
	}
}

func (c *Channel) resetAllControllers(full bool) {
	for note := range c.polyPressure {
		c.setPolyPressure(note, 0)
	}
	c.setChannelPressure(0)
	c.setPitchBend(8192)
	for cc := range c.controller {
		if !doNotReset[cc] {
			c.controlChange(cc, 0)
		}
	}
	if !full {
		return
	}
	c.keyControls = [128]map[int]int{}
	c.controlChange(7, 100)
	c.controlChange(8, 64)
	c.controlChange(10, 64)
	c.controlChange(11, 127)
	c.controlChange(91, 40)
	for cc := 71; cc <= 78; cc++ {
		c.controlChange(cc, 64)
	}
	for cc := 98; cc <= 101; cc++ {
		c.controlChange(cc, 127)
	}
	clear(c.rpn)
	clear(c.nrpn)
	c.rpnChange(0, 2<<7)  // pitch bend sensitivity, 2 semitones
	c.rpnChange(1, 64<<7) // fine tuning, centered
	c.rpnChange(2, 64<<7) // coarse tuning, centered
	c.tuningBank, c.tuningProgram = 0, 0
	c.tuning = gmsynth.NewTuning(0, 0)
}

func (c *Channel) setPitchBend(bend int) {
	bend = clamp14(bend)
	if c.mixer != nil {
		c.mixer.mixer.PitchBend(bend)
	}
	c.pitchBend = bend
	for i := range c.s.slots {
		if v := &c.s.slots[i]; v.active && v.channel == c.index {
			v.voice.SetPitchBend(bend)
		}
	}
}

func (c *Channel) setChannelPressure(pressure int) {
	pressure = clamp7(pressure)
	if c.mixer != nil {
		c.mixer.mixer.ChannelPressure(pressure)
	}
	c.channelPressure = pressure
	for i := range c.s.slots {
		if v := &c.s.slots[i]; v.active && v.channel == c.index {
			v.voice.SetChannelPressure(pressure)
		}
	}
}

func (c *Channel) setPolyPressure(note, pressure int) {
	note, pressure = clamp7(note), clamp7(pressure)
	if c.mixer != nil {
		c.mixer.mixer.PolyPressure(note, pressure)
	}
	c.polyPressure[note] = pressure
	for i := range c.s.slots {
		if v := &c.s.slots[i]; v.active && v.channel == c.index && v.note == note {
			v.voice.SetPolyPressure(pressure)
		}
	}
}

func (c *Channel) controlPerNote(note, cc, value int) {
	note, cc = clamp7(note), clamp7(cc)
	if value < 0 {
		delete(c.keyControls[note], cc)
	} else {
		if c.keyControls[note] == nil {
			c.keyControls[note] = map[int]int{}
		}
		c.keyControls[note][cc] = clamp7(value)
	}
	for i := range c.s.slots {
		v := &c.s.slots[i]
		if !v.active || v.channel != c.index || v.note != note {
			continue
		}
		switch {
		case cc == keyFineTuning:
			v.voice.RPNChange(1, c.keyRPN(note, 1))
		case cc == keyCoarseTuning:
			v.voice.RPNChange(2, c.keyRPN(note, 2))
		case cc < 120:
			v.voice.ControlChange(cc, c.keyController(note, cc))
		}
	}
}

// keyController returns the value of a controller as seen by a note.
func (c *Channel) keyController(note, cc int) int {
	if v, ok := c.keyControls[note][cc]; ok {
		return v
	}
	return c.controller[cc]
}

// keyRPN returns the value of a registered parameter as seen by a note.
func (c *Channel) keyRPN(note, param int) int {
	cc := -1
	switch param {
	case 1:
		cc = keyFineTuning
	case 2:
		cc = keyCoarseTuning
	}
	if v, ok := c.keyControls[note][cc]; ok {
		return v << 7
	}
	return c.rpn[param]
}

// mapControlDestinations replaces the control destination settings of a
// source. Only controllers 1-31 and 64-95 can be mapped. The instrument is
// resolved again on the next note.
func (c *Channel) mapControlDestinations(src gmsynth.Source, destinations, ranges []int) {
	conns := gmsynth.DestinationConnections(src, destinations, ranges)
	switch src.Kind {
	case gmsynth.SourceChannelPressure:
		c.cdsChannelPressure = conns
	case gmsynth.SourcePolyPressure:
		c.cdsPolyPressure = conns
	case gmsynth.SourceController:
		if cc := src.Index; !(cc >= 0x01 && cc <= 0x1F || cc >= 0x40 && cc <= 0x5F) {
			return
		}
		if len(conns) == 0 {
			delete(c.cdsController, src.Index)
		} else {
			c.cdsController[src.Index] = conns
		}
	default:
		return
	}
	c.instrument = nil
}

func clamp7(v int) int {
	return min(max(v, 0), 127)
}

func clamp14(v int) int {
	return min(max(v, 0), 16383)
}
