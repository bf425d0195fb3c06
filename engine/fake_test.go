package engine_test

import (
	"errors"
	"io"
	"testing"

	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/engine"
)

const periodFrames = 300 // 44100 Hz at the default 147 control periods per second

// fakeVoice records what the engine asks of it. Held voices render a
// constant level into left and right; a released voice falls silent at the
// next control pass.
type fakeVoice struct {
	a           *gmsynth.Activation
	activations int
	active      bool
	ending      bool
	noteOff     int // velocity of the last note off, -1 if none
	soundOff    bool
	shutdown    bool
	notes       []int
	soloMute    bool
	tunings     int
	controls    map[int]int
	rpn         map[int]int
	delay       int
}

func (v *fakeVoice) Activate(a *gmsynth.Activation) {
	*v = fakeVoice{
		a:           a,
		activations: v.activations + 1,
		active:      true,
		noteOff:     -1,
		soloMute:    a.State.SoloMute,
		controls:    map[int]int{},
		rpn:         map[int]int{},
		delay:       a.Delay,
	}
}

func (v *fakeVoice) StepControl(masterTuning float64) bool {
	if v.ending {
		v.active = false
	}
	return v.active
}

func (v *fakeVoice) RenderAudio(b *gmsynth.Buses) {
	for _, bus := range [...]*gmsynth.Bus{b.Live[gmsynth.BusLeft], b.Live[gmsynth.BusRight]} {
		x := bus.Data()
		for i := v.delay; i < len(x); i++ {
			x[i] += 0.5
		}
	}
	v.delay = 0
}

func (v *fakeVoice) NoteOff(velocity int) {
	v.noteOff = velocity
	v.ending = true
}

func (v *fakeVoice) SoundOff() {
	v.soundOff = true
	v.ending = true
}

func (v *fakeVoice) Shutdown() {
	v.shutdown = true
	v.ending = true
}

func (v *fakeVoice) SetNote(note int, glide bool) { v.notes = append(v.notes, note) }
func (v *fakeVoice) SetMute(mute bool) {}
func (v *fakeVoice) SetSoloMute(mute bool) { v.soloMute = mute }
func (v *fakeVoice) SetPitchBend(bend int) {}
func (v *fakeVoice) SetChannelPressure(int) {}
func (v *fakeVoice) SetPolyPressure(int) {}
func (v *fakeVoice) ControlChange(cc, value int) { v.controls[cc] = value }
func (v *fakeVoice) RPNChange(param, value int) { v.rpn[param] = value }
func (v *fakeVoice) NRPNChange(param, value int) {}
func (v *fakeVoice) UpdateTuning(*gmsynth.Tuning) { v.tunings++ }

// recorder is a VoiceFactory keeping the voices it made, in slot order.
type recorder struct {
	voices []*fakeVoice
}

func (r *recorder) new(format gmsynth.AudioFormat, periodFrames int) gmsynth.Voice {
	v := &fakeVoice{noteOff: -1, controls: map[int]int{}, rpn: map[int]int{}}
	r.voices = append(r.voices, v)
	return v
}

type fakeMixer struct {
	notes     []int
	processed int
	stopped   bool
}

func (m *fakeMixer) NoteOn(note, velocity int) { m.notes = append(m.notes, note) }
func (m *fakeMixer) NoteOff(note, velocity int) {}
func (m *fakeMixer) ControlChange(controller, value int) {}
func (m *fakeMixer) PitchBend(bend int) {}
func (m *fakeMixer) ChannelPressure(pressure int) {}
func (m *fakeMixer) PolyPressure(note, pressure int) {}
func (m *fakeMixer) Stop() { m.stopped = true }

// Process mutes everything that went through the insert.
func (m *fakeMixer) Process(buffers [3]*gmsynth.Bus) bool {
	m.processed++
	for _, b := range buffers {
		if !b.Silent() {
			clear(b.Data())
		}
	}
	return true
}

type fakeSink struct {
	err    error
	stream io.Reader
	closed bool
}

func (s *fakeSink) Play(stream io.Reader) error {
	if s.err != nil {
		return s.err
	}
	s.stream = stream
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

var errNoDevice = errors.New("no device")

func testSoundbank() *gmsynth.Soundbank {
	return &gmsynth.Soundbank{Name: "Test", Instruments: []gmsynth.Instrument{
		{Name: "Piano", Program: 0, Performers: []gmsynth.Performer{{}}},
		{Name: "Layered", Program: 1, Performers: []gmsynth.Performer{{}, {}}},
		{Name: "Bank 0", Program: 3, Performers: []gmsynth.Performer{{}}},
		{Name: "Bank 650", Program: 3, Bank: 650, Performers: []gmsynth.Performer{{}}},
		{Name: "Release", Program: 4, Performers: []gmsynth.Performer{{}, {ReleaseTriggered: true}}},
		{Name: "Kit", Percussion: true, Performers: []gmsynth.Performer{
			{Keys: &gmsynth.Range{Lo: 42, Hi: 42}, ExclusiveClass: 1},
			{Keys: &gmsynth.Range{Lo: 46, Hi: 46}, ExclusiveClass: 1},
			{Keys: &gmsynth.Range{Lo: 36, Hi: 36}},
		}},
	}}
}

func testConfig(polyphony int) engine.Config {
	c := engine.DefaultConfig()
	c.MaxPolyphony = polyphony
	c.Reverb, c.Chorus, c.AGC = false, false, false
	return c
}

// newSynth opens a synthesizer rendered by the test, playing the test
// soundbank with fake voices.
func newSynth(t *testing.T, config engine.Config) (*engine.Synthesizer, *recorder) {
	t.Helper()
	r := &recorder{}
	s, err := engine.New(config, r.new)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	s.LoadSoundbank(testSoundbank())
	if err := s.Open(nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, r
}

// render runs the synthesizer for a number of control periods and returns
// the interleaved stereo output.
func render(t *testing.T, s *engine.Synthesizer, periods int) []float32 {
	t.Helper()
	buf := make([]float32, periods*periodFrames*2)
	if err := s.Render(buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf
}

func send(t *testing.T, s *engine.Synthesizer, msg ...byte) {
	t.Helper()
	if err := s.Receiver().Send(msg, -1); err != nil {
		t.Fatalf("Send(% X) failed: %v", msg, err)
	}
}
