// Package engine is the gmsynth synthesizer: MIDI channel controllers, a
// fixed voice pool with voice stealing, and the control-rate main mixer
// that turns timestamped MIDI events into PCM audio.
//
// A Synthesizer is created with New and started with Open. The audio is
// pulled from it, either by an AudioSink through Read, or directly with
// Render. MIDI events are sent through the Receiver or by calling the
// Channel methods. All state is guarded by a single lock, held for the
// whole of each control period and each channel operation.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"slices"
	"sync"

	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/oscvoice"
)

type (
	Synthesizer struct {
		mu sync.Mutex

		config       Config
		format       gmsynth.AudioFormat
		periodFrames int
		newVoice     gmsynth.VoiceFactory
		logger       *log.Logger
		receiver     *Receiver

		instruments gmsynth.InstrumentMap

		// valid while open
		open        bool
		sink        gmsynth.AudioSink
		channels    []*Channel
		slots       []slot
		mixer       *mixer
		tunings     map[[2]int]*gmsynth.Tuning
		allocation  VoiceAllocation
		gmMode      int
		noteOnCache [128]uint32
		voiceIDs    int64
	}

	// VoiceStatus is a snapshot of one slot of the voice pool.
	VoiceStatus struct {
		Active         bool
		On             bool
		Channel        int
		Bank           int
		Program        int
		Note           int
		Velocity       int
		VoiceID        int64
		ExclusiveClass int
		Sustain        bool
		Sostenuto      bool
		StealPending   bool
	}
)

var (
	ErrAlreadyOpen       = errors.New("synthesizer already open")
	ErrNotOpen           = errors.New("synthesizer not open")
	ErrUnavailable       = errors.New("audio output unavailable")
	ErrUnsupportedFormat = gmsynth.ErrUnsupportedFormat
)

// New creates a synthesizer. Voices are created with newVoice, or with
// oscvoice.New if it is nil.
func New(config Config, newVoice gmsynth.VoiceFactory) (*Synthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("engine.New failed: %w", err)
	}
	if newVoice == nil {
		newVoice = oscvoice.New
	}
	s := &Synthesizer{
		config:       config,
		format:       config.Format(),
		periodFrames: config.PeriodFrames(),
		newVoice:     newVoice,
		logger:       config.Logger,
		instruments:  gmsynth.InstrumentMap{},
	}
	s.receiver = &Receiver{s: s}
	return s, nil
}

// Open allocates the voices, channels and mixer, and starts the sink
// pulling audio. With a nil sink the synthesizer is rendered with Render
// or Read by the caller. The default soundbank is loaded if no instrument
// is.
func (s *Synthesizer) Open(sink gmsynth.AudioSink) error {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	if len(s.instruments) == 0 {
		s.loadSoundbank(gmsynth.DefaultSoundbank())
	}
	s.allocation = s.config.VoiceAllocation
	s.gmMode = 0
	s.noteOnCache = [128]uint32{}
	s.tunings = map[[2]int]*gmsynth.Tuning{}
	s.slots = make([]slot, s.config.MaxPolyphony)
	for i := range s.slots {
		s.slots[i].voice = s.newVoice(s.format, s.periodFrames)
	}
	s.mixer = newMixer(s)
	s.channels = make([]*Channel, s.config.Channels)
	for i := range s.channels {
		s.channels[i] = newChannel(s, i)
	}
	s.open = true
	s.logf("engine: open, %v Hz, %d channel(s), %d voices, %d frames per control period", s.format.SampleRate, s.format.Channels, len(s.slots), s.periodFrames)
	s.mu.Unlock()
	if sink == nil {
		return nil
	}
	if err := sink.Play(s); err != nil {
		s.teardown()
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	return nil
}

// Close stops the sink and then releases the voices, channels and mixer.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrNotOpen
	}
	sink := s.sink
	s.sink = nil
	s.mu.Unlock()
	// the sink must not be pulling anymore when the mixer goes away
	var err error
	if sink != nil {
		err = sink.Close()
	}
	s.teardown()
	if err != nil {
		return fmt.Errorf("could not close audio sink: %w", err)
	}
	return nil
}

func (s *Synthesizer) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.mixer.mixers {
		e.mixer.Stop()
	}
	s.open = false
	s.channels, s.slots, s.mixer, s.tunings = nil, nil, nil, nil
	s.logf("engine: closed")
}

// Read reads the audio stream in the output format. It is what an
// AudioSink pulls from. After Close, Read returns io.EOF.
func (s *Synthesizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		k, err := s.readPeriod(p[n:])
		n += k
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
	}
	return n, nil
}

// readPeriod copies at most one control period of encoded audio to p.
func (s *Synthesizer) readPeriod(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, io.EOF
	}
	m := s.mixer
	if m.readPos == len(m.readBuf) {
		if s.nextPeriod() {
			m.readBuf = m.zero
		} else {
			m.encoded = s.format.Encode(m.encoded[:0], m.out)
			m.readBuf = m.encoded
		}
		m.readPos = 0
	}
	k := copy(p, m.readBuf[m.readPos:])
	m.readPos += k
	return k, nil
}

// Render fills buffer with interleaved float samples, one per output
// channel per frame.
func (s *Synthesizer) Render(buffer []float32) error {
	for len(buffer) > 0 {
		k, err := s.renderSome(buffer)
		if err != nil {
			return err
		}
		buffer = buffer[k:]
	}
	return nil
}

func (s *Synthesizer) renderSome(buffer []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrNotOpen
	}
	m := s.mixer
	if m.renderPos == len(m.out) {
		if s.nextPeriod() {
			clear(m.out)
		}
		m.renderPos = 0
	}
	k := copy(buffer, m.out[m.renderPos:])
	m.renderPos += k
	return k, nil
}

func (s *Synthesizer) Receiver() *Receiver {
	return s.receiver
}

// Channels returns the MIDI channels, or nil if the synthesizer is not
// open.
func (s *Synthesizer) Channels() []*Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.channels)
}

func (s *Synthesizer) Format() gmsynth.AudioFormat {
	return s.format
}

// Latency returns the latency the audio sink should aim for, in
// microseconds.
func (s *Synthesizer) Latency() int64 {
	return s.config.Latency
}

// MicrosecondPosition returns the position of the audio stream, including
// time spent silent. Receiver timestamps are on this clock.
func (s *Synthesizer) MicrosecondPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0
	}
	return s.position()
}

// LoadSoundbank loads all instruments of sb, replacing loaded instruments
// with the same patch.
func (s *Synthesizer) LoadSoundbank(sb *gmsynth.Soundbank) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadSoundbank(sb)
}

func (s *Synthesizer) loadSoundbank(sb *gmsynth.Soundbank) {
	for i := range sb.Instruments {
		s.instruments.Add(&sb.Instruments[i])
	}
	s.invalidateInstruments()
	s.logf("engine: loaded %d instruments of soundbank %q", len(sb.Instruments), sb.Name)
}

func (s *Synthesizer) LoadInstrument(ins *gmsynth.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments.Add(ins)
	s.invalidateInstruments()
}

// UnloadInstrument removes the instrument loaded for the patch of ins.
// Reports false if there was none.
func (s *Synthesizer) UnloadInstrument(ins *gmsynth.Instrument) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ins.Key()
	if _, ok := s.instruments[key]; !ok {
		return false
	}
	delete(s.instruments, key)
	s.invalidateInstruments()
	return true
}

// LoadedInstruments returns the loaded instruments ordered by patch key.
func (s *Synthesizer) LoadedInstruments() []*gmsynth.Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]*gmsynth.Instrument, 0, len(s.instruments))
	for _, k := range slices.Sorted(maps.Keys(s.instruments)) {
		ret = append(ret, s.instruments[k])
	}
	return ret
}

// invalidateInstruments makes every channel resolve its instrument again.
func (s *Synthesizer) invalidateInstruments() {
	for _, c := range s.channels {
		c.instrument = nil
	}
}

func (s *Synthesizer) VoiceStatus() []VoiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]VoiceStatus, len(s.slots))
	for i := range s.slots {
		v := &s.slots[i]
		ret[i] = VoiceStatus{
			Active:         v.active,
			On:             v.on,
			Channel:        v.channel,
			Bank:           v.bank,
			Program:        v.program,
			Note:           v.note,
			Velocity:       v.velocity,
			VoiceID:        v.voiceID,
			ExclusiveClass: v.exclusiveClass,
			Sustain:        v.sustain,
			Sostenuto:      v.sostenuto,
			StealPending:   v.stealer != nil,
		}
	}
	return ret
}

// NoteOnCache returns, for each note, a bit mask of the channels where the
// note is held.
func (s *Synthesizer) NoteOnCache() [128]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noteOnCache
}

// GeneralMidiMode returns 0 when General MIDI is off, 1 for GM1 and 2 for
// GM2, as last set by SysEx.
func (s *Synthesizer) GeneralMidiMode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gmMode
}

func (s *Synthesizer) VoiceAllocation() VoiceAllocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocation
}

// Tuning returns a copy of the shared tuning of a bank and program, as
// loaded by MIDI Tuning Standard messages. Nil if the synthesizer is not
// open.
func (s *Synthesizer) Tuning(bank, program int) *gmsynth.Tuning {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	t := *s.tuning(bank, program)
	return &t
}

// Reset turns all sound off, resets every channel and the master controls
// and effects to their power-on state.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return
	}
	s.activity()
	s.reset()
}

func (s *Synthesizer) nextVoiceID() int64 {
	s.voiceIDs++
	return s.voiceIDs
}

func (s *Synthesizer) logf(format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	}
}
