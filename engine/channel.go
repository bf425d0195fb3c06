package engine

import (
	"maps"
	"slices"

	"github.com/vsariola/gmsynth"
)

// Channel is the controller state machine of one MIDI channel: it turns
// note, controller and program events into voice activations. The exported
// methods lock the synthesizer and may be called from any goroutine.
type Channel struct {
	s     *Synthesizer
	index int

	program, bank int
	instrument    *gmsynth.Instrument // customized; nil until resolved for the next note
	resolved      [2]int              // bank and program instrument was resolved for
	director      gmsynth.Director
	mixer         *channelMixer
	missing       string // patch key last reported missing

	controller      [128]int
	pitchBend       int
	channelPressure int
	polyPressure    [128]int
	lastVelocity    [128]int

	rpnSelect, nrpnSelect int
	rpn, nrpn             map[int]int

	sustain              bool
	mono                 bool
	mute, solo, soloMute bool

	portamento            bool
	portamentoTime        float64 // keys per control period
	portamentoControlNote int     // -1 for none
	lastNotes             [128]int
	lastNotesCount        int

	tuning                    *gmsynth.Tuning
	tuningBank, tuningProgram int

	// keyControls holds the key-based controller overrides of each note
	keyControls [128]map[int]int

	// control destination settings
	cdsController      map[int][]gmsynth.ConnectionBlock
	cdsChannelPressure []gmsynth.ConnectionBlock
	cdsPolyPressure    []gmsynth.ConnectionBlock
}

func newChannel(s *Synthesizer, index int) *Channel {
	c := &Channel{
		s:                     s,
		index:                 index,
		rpn:                   map[int]int{},
		nrpn:                  map[int]int{},
		rpnSelect:             nullParam,
		nrpnSelect:            nullParam,
		portamentoControlNote: -1,
		tuning:                gmsynth.NewTuning(0, 0),
		cdsController:         map[int][]gmsynth.ConnectionBlock{},
	}
	c.lastNotes[0] = -1
	c.resetAllControllers(true)
	return c
}

func (c *Channel) Index() int {
	return c.index
}

func (c *Channel) NoteOn(note, velocity int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.noteOn(note, velocity, 0)
}

func (c *Channel) NoteOff(note, velocity int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.noteOff(note, velocity)
}

// ProgramChange selects the program and 14-bit bank played by the next
// note. The instrument is resolved lazily.
func (c *Channel) ProgramChange(bank, program int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.programChange(bank, program)
}

func (c *Channel) Program() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.program
}

func (c *Channel) Bank() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.bank
}

// Instrument returns the instrument the channel plays, resolving it if
// needed. Nil if no loaded instrument matches.
func (c *Channel) Instrument() *gmsynth.Instrument {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if !c.resolve() {
		return nil
	}
	return c.instrument
}

func (c *Channel) SetPitchBend(bend int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.setPitchBend(bend)
}

func (c *Channel) PitchBend() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.pitchBend
}

func (c *Channel) SetChannelPressure(pressure int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.setChannelPressure(pressure)
}

func (c *Channel) ChannelPressure() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.channelPressure
}

func (c *Channel) SetPolyPressure(note, pressure int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.setPolyPressure(note, pressure)
}

func (c *Channel) PolyPressure(note int) int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.polyPressure[clamp7(note)]
}

func (c *Channel) ControlChange(controller, value int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.controlChange(controller, value)
}

// Controller returns the current value of a controller. Bank select is
// not kept in the controller array; see Bank.
func (c *Channel) Controller(controller int) int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.controller[clamp7(controller)]
}

func (c *Channel) AllNotesOff() {
	c.ControlChange(123, 0)
}

func (c *Channel) AllSoundOff() {
	c.ControlChange(120, 0)
}

// ResetAllControllers resets the controllers to their defaults. Without
// full, bank select, volume, pan, expression, the effect sends, the sound
// controllers and the RPN/NRPN selection are kept; with full, those are
// reset too, along with the key-based controls, the stored RPN and NRPN
// values and the tuning.
func (c *Channel) ResetAllControllers(full bool) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.activity()
	c.resetAllControllers(full)
}

// SetMono switches between mono (true) and poly mode. Either way all notes
// are turned off first.
func (c *Channel) SetMono(mono bool) {
	if mono {
		c.ControlChange(126, 1)
	} else {
		c.ControlChange(127, 0)
	}
}

func (c *Channel) Mono() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.mono
}

// SetOmni turns all notes off. Omni mode itself is not supported, the
// channel only ever listens to its own events.
func (c *Channel) SetOmni(omni bool) {
	if omni {
		c.ControlChange(125, 0)
	} else {
		c.ControlChange(124, 0)
	}
}

func (c *Channel) Omni() bool {
	return false
}

// LocalControl is not supported; it always reports local control off.
func (c *Channel) LocalControl(on bool) bool {
	c.ControlChange(122, boolValue(on))
	return false
}

// RPN returns the value of registered parameter param, 0 if it was never
// set.
func (c *Channel) RPN(param int) int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.rpn[param]
}

func (c *Channel) NRPN(param int) int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.nrpn[param]
}

func (c *Channel) SetMute(mute bool) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.mute = mute
	for i := range c.s.slots {
		if v := &c.s.slots[i]; v.active && v.channel == c.index {
			v.voice.SetMute(mute)
		}
	}
}

func (c *Channel) Mute() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.mute
}

// SetSolo solos the channel. While any channel is soloed, every channel
// that is not is solo muted.
func (c *Channel) SetSolo(solo bool) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.solo = solo
	inUse := false
	for _, o := range c.s.channels {
		if o.solo {
			inUse = true
			break
		}
	}
	for _, o := range c.s.channels {
		o.setSoloMute(inUse && !o.solo)
	}
}

func (c *Channel) Solo() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.solo
}

func (c *Channel) SoloMute() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.soloMute
}

// ControlPerNote overrides a controller for one note only, as the GM2 key
// based instrument control does. Controllers 120 and 121 stand for the
// fine and coarse tuning of the note. A value of -1 removes the override.
func (c *Channel) ControlPerNote(note, controller, value int) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.controlPerNote(note, controller, value)
}

// ResetControlsPerNote removes all key based controller overrides.
func (c *Channel) ResetControlsPerNote() {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for note := range c.keyControls {
		for cc := range c.keyControls[note] {
			c.controlPerNote(note, cc, -1)
		}
	}
}

func (c *Channel) setSoloMute(mute bool) {
	if c.soloMute == mute {
		return
	}
	c.soloMute = mute
	for i := range c.s.slots {
		if v := &c.s.slots[i]; v.active && v.channel == c.index {
			v.voice.SetSoloMute(mute)
		}
	}
}

func (c *Channel) noteOn(note, velocity, delay int) {
	note, velocity = clamp7(note), clamp7(velocity)
	c.noteOnInternal(note, velocity, delay)
	if c.mixer != nil {
		c.mixer.mixer.NoteOn(note, velocity)
	}
}

func (c *Channel) noteOff(note, velocity int) {
	note, velocity = clamp7(note), clamp7(velocity)
	c.noteOffInternal(note, velocity)
	if c.mixer != nil {
		c.mixer.mixer.NoteOff(note, velocity)
	}
}

func (c *Channel) noteOnInternal(note, velocity, delay int) {
	if velocity == 0 {
		c.noteOffInternal(note, 64)
		return
	}
	s := c.s
	s.noteOnCache[note] |= 1 << c.index
	if c.sustain {
		// retrigger: the sustained voices of the note are released first
		c.sustain = false
		for i := range s.slots {
			v := &s.slots[i]
			if v.active && v.channel == c.index && v.note == note && (v.sustain || v.on) {
				v.sustain = false
				v.on = true
				s.releaseSlot(i, 0)
			}
		}
		c.sustain = true
	}
	if c.mono {
		if c.portamento && c.moveVoices(-1, note) {
			c.lastNotes[0] = note
			return
		}
		if from := c.portamentoControlNote; from != -1 {
			c.portamentoControlNote = -1
			if c.moveVoices(from, note) {
				return
			}
		}
		c.allNotesOff()
		s.noteOnCache[note] |= 1 << c.index
	}
	if !c.resolve() {
		return
	}
	c.lastVelocity[note] = velocity
	c.play(c.director.NoteOn(c.tuning.Key(note), velocity), note, velocity, delay, false)
}

func (c *Channel) noteOffInternal(note, velocity int) {
	s := c.s
	s.noteOnCache[note] &^= 1 << c.index
	if !c.mono && c.portamento && c.lastNotesCount < len(c.lastNotes)-1 {
		c.lastNotes[c.lastNotesCount] = note
		c.lastNotesCount++
	}
	for i := range s.slots {
		v := &s.slots[i]
		if v.on && v.channel == c.index && v.note == note && !v.releaseTriggered {
			s.releaseSlot(i, velocity)
		}
		if r := v.stealer; r != nil && r.channel == c.index && r.note == note {
			v.stealer = nil
		}
	}
	if !c.resolve() {
		return
	}
	c.play(c.director.NoteOff(c.tuning.Key(note), velocity), note, c.lastVelocity[note], 0, true)
}

// moveVoices glides the held voices of the channel to note. With from -1
// every held voice moves, otherwise only those playing from. Reports
// whether any voice was moved.
func (c *Channel) moveVoices(from, note int) bool {
	found := false
	for i := range c.s.slots {
		v := &c.s.slots[i]
		if v.active && v.on && v.channel == c.index && !v.releaseTriggered && (from == -1 || v.note == from) {
			v.note = note
			v.voice.SetNote(note, true)
			found = true
		}
	}
	return found
}

func (c *Channel) programChange(bank, program int) {
	bank, program = clamp14(bank), clamp7(program)
	c.bank, c.program = bank, program
	if c.resolved != [2]int{bank, program} {
		c.instrument = nil
	}
}

// resolve looks up the instrument for the current program and bank unless
// it is cached, and reports whether there is one to play. A new
// instrument gets a fresh director and channel mixer.
func (c *Channel) resolve() bool {
	if c.instrument != nil {
		return true
	}
	s := c.s
	c.resolved = [2]int{c.bank, c.program}
	ins := s.instruments.Find(c.program, c.bank, c.index)
	if ins == nil {
		if key := gmsynth.PatchKey(c.program, c.bank, c.index == gmsynth.PercussionChannel); key != c.missing {
			c.missing = key
			s.logf("engine: channel %d: no instrument for %s", c.index, key)
		}
		return false
	}
	c.missing = ""
	if c.mixer != nil {
		s.stopMixer(c.mixer)
		c.mixer = nil
	}
	if ins.NewChannelMixer != nil {
		if m := ins.NewChannelMixer(c.index, s.format); m != nil {
			c.mixer = s.registerMixer(m)
		}
	}
	c.instrument = c.customize(ins)
	c.director = c.instrument.Director()
	return true
}

// customize applies the control destination settings of the channel,
// replacing the connection blocks the remapped sources drive by default.
func (c *Channel) customize(ins *gmsynth.Instrument) *gmsynth.Instrument {
	var sources []gmsynth.Source
	var extra []gmsynth.ConnectionBlock
	if len(c.cdsChannelPressure) > 0 {
		sources = append(sources, gmsynth.Source{Kind: gmsynth.SourceChannelPressure})
		extra = append(extra, c.cdsChannelPressure...)
	}
	if len(c.cdsPolyPressure) > 0 {
		sources = append(sources, gmsynth.Source{Kind: gmsynth.SourcePolyPressure})
		extra = append(extra, c.cdsPolyPressure...)
	}
	for _, cc := range slices.Sorted(maps.Keys(c.cdsController)) {
		sources = append(sources, gmsynth.Controller(cc))
		extra = append(extra, c.cdsController[cc]...)
	}
	if len(sources) == 0 {
		return ins
	}
	return ins.Customize(func(b gmsynth.ConnectionBlock) bool {
		for _, src := range sources {
			if b.Uses(src) {
				return true
			}
		}
		return false
	}, extra)
}

// play allocates a voice for each performer match. All voices of one note
// event share a voice id, so they are stolen together.
func (c *Channel) play(matches []gmsynth.Match, note, velocity, delay int, release bool) {
	s := c.s
	id := s.nextVoiceID()
	hint := 0
	for k, m := range matches {
		if m.Performer < 0 || m.Performer >= len(c.instrument.Performers) {
			continue
		}
		p := &c.instrument.Performers[m.Performer]
		if k == 0 && p.ExclusiveClass != 0 {
			c.exclusiveCutoff(p, note)
		}
		if hint = s.findFreeVoice(hint, c.index); hint < 0 {
			return
		}
		c.initVoice(hint, &voiceRequest{
			channel:          c.index,
			instrument:       c.instrument,
			bank:             c.bank,
			program:          c.program,
			tuning:           c.tuning,
			performer:        p,
			connections:      m.Connections,
			voiceID:          id,
			note:             note,
			velocity:         velocity,
			delay:            delay,
			mixer:            c.mixer,
			releaseTriggered: release,
		})
	}
}

// exclusiveCutoff shuts down the voices of the channel in the exclusive
// class of p.
func (c *Channel) exclusiveCutoff(p *gmsynth.Performer, note int) {
	for i := range c.s.slots {
		v := &c.s.slots[i]
		if v.active && v.channel == c.index && v.exclusiveClass == p.ExclusiveClass && !(p.SelfNonExclusive && v.note == note) {
			v.on = false
			v.voice.Shutdown()
		}
	}
}

// initVoice activates req on slot i, or queues it as the stealer of the
// slot if it is still sounding.
func (c *Channel) initVoice(i int, req *voiceRequest) {
	s := c.s
	v := &s.slots[i]
	if v.active {
		s.steal(i, req)
		return
	}
	a := &gmsynth.Activation{
		Instrument:       req.instrument,
		Performer:        req.performer,
		Connections:      req.connections,
		VoiceID:          req.voiceID,
		Channel:          c.index,
		Note:             req.note,
		Velocity:         req.velocity,
		Delay:            req.delay,
		ReleaseTriggered: req.releaseTriggered,
		Tuning:           req.tuning,
		GlideFrom:        -1,
		PortamentoTime:   c.portamentoTime,
	}
	if req.mixer != nil {
		a.Mixer = req.mixer.mixer
	}
	if !req.releaseTriggered {
		a.GlideFrom = c.glideFrom(req.note)
	}
	c.snapshot(&a.State, req.note)
	*v = slot{
		voice:            v.voice,
		active:           true,
		on:               !req.releaseTriggered,
		releaseTriggered: req.releaseTriggered,
		voiceID:          req.voiceID,
		channel:          c.index,
		bank:             req.bank,
		program:          req.program,
		note:             req.note,
		velocity:         req.velocity,
		exclusiveClass:   req.performer.ExclusiveClass,
		mixer:            req.mixer,
		tuning:           req.tuning,
	}
	v.voice.Activate(a)
}

// glideFrom returns the note a new voice should glide from, or -1. A
// portamento control note is used once; otherwise mono channels glide from
// the previous note and poly channels from the most recently released one.
func (c *Channel) glideFrom(note int) int {
	from := -1
	switch {
	case c.portamentoControlNote != -1:
		from = c.portamentoControlNote
		c.controlChange(84, 0)
	case c.portamento && c.mono:
		from = c.lastNotes[0]
		c.lastNotes[0] = note
	case c.portamento && c.lastNotesCount > 0:
		c.lastNotesCount--
		from = c.lastNotes[c.lastNotesCount]
	}
	return from
}

// snapshot fills st with the channel state as seen by note, with the key
// based overrides of the note applied.
func (c *Channel) snapshot(st *gmsynth.ChannelState, note int) {
	st.Controllers = c.controller
	st.PitchBend = c.pitchBend
	st.ChannelPressure = c.channelPressure
	st.PolyPressure = c.polyPressure[note]
	for p := range st.RPN {
		st.RPN[p] = c.rpn[p]
	}
	st.Mute, st.SoloMute = c.mute, c.soloMute
	for cc, value := range c.keyControls[note] {
		switch {
		case cc == keyFineTuning:
			st.RPN[1] = value << 7
		case cc == keyCoarseTuning:
			st.RPN[2] = value << 7
		case cc < 120:
			st.Controllers[cc] = value
		}
	}
}

func boolValue(b bool) int {
	if b {
		return 127
	}
	return 0
}
