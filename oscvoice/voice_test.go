package oscvoice_test

import (
	"testing"

	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/oscvoice"
)

const periodFrames = 300

func activation(p *gmsynth.Performer) *gmsynth.Activation {
	a := &gmsynth.Activation{
		Performer: p,
		Note:      69,
		Velocity:  127,
		GlideFrom: -1,
		Tuning:    gmsynth.NewTuning(0, 0),
	}
	a.State.Controllers[7] = 127
	a.State.Controllers[11] = 127
	a.State.Controllers[10] = 64
	a.State.Controllers[74] = 64
	a.State.PitchBend = 8192
	a.State.RPN = [6]int{2 << 7, 64 << 7, 64 << 7, 0, 0, 64}
	return a
}

func render(v gmsynth.Voice) (*gmsynth.Buses, bool) {
	b := gmsynth.NewBuses(periodFrames)
	active := v.StepControl(0)
	if active {
		v.RenderAudio(b)
	}
	return b, active
}

func TestVoiceSoundsUntilReleased(t *testing.T) {
	p := &gmsynth.Performer{
		Oscillators: []gmsynth.Oscillator{{Waveform: "sine"}},
		Envelope:    gmsynth.Envelope{Attack: 0.01, Sustain: 1, Release: 0.05},
	}
	v := oscvoice.New(gmsynth.DefaultAudioFormat, periodFrames)
	v.Activate(activation(p))
	var b *gmsynth.Buses
	for i := 0; i < 10; i++ {
		var ok bool
		if b, ok = render(v); !ok {
			t.Fatalf("voice went inactive at period %d while held", i)
		}
	}
	if b.Live[gmsynth.BusLeft].Silent() || b.Live[gmsynth.BusRight].Silent() {
		t.Fatal("held voice rendered nothing")
	}
	v.NoteOff(64)
	for i := 0; i < 100; i++ {
		if _, ok := render(v); !ok {
			return
		}
	}
	t.Fatal("released voice never went inactive")
}

func TestVoiceDelay(t *testing.T) {
	p := &gmsynth.Performer{
		Oscillators: []gmsynth.Oscillator{{Waveform: "square"}},
		Envelope:    gmsynth.Envelope{Sustain: 1},
	}
	v := oscvoice.New(gmsynth.DefaultAudioFormat, periodFrames)
	a := activation(p)
	a.Delay = 100
	v.Activate(a)
	b, _ := render(v)
	left := b.Live[gmsynth.BusLeft].Peek()
	for i := 0; i < 100; i++ {
		if left[i] != 0 {
			t.Fatalf("sample %d before the delay is %v", i, left[i])
		}
	}
	nonzero := false
	for _, s := range left[100:] {
		if s != 0 {
			nonzero = true
		}
	}
	if !nonzero {
		t.Error("nothing rendered after the delay")
	}
}

func TestVoiceSoundOffIsFast(t *testing.T) {
	p := &gmsynth.Performer{
		Oscillators: []gmsynth.Oscillator{{Waveform: "saw"}},
		Envelope:    gmsynth.Envelope{Sustain: 1, Release: 10},
	}
	v := oscvoice.New(gmsynth.DefaultAudioFormat, periodFrames)
	v.Activate(activation(p))
	render(v)
	v.SoundOff()
	for i := 0; i < 3; i++ {
		if _, ok := render(v); !ok {
			return
		}
	}
	t.Fatal("voice still active three periods after SoundOff")
}

func TestVoiceMuted(t *testing.T) {
	p := &gmsynth.Performer{
		Oscillators: []gmsynth.Oscillator{{Waveform: "triangle"}},
		Envelope:    gmsynth.Envelope{Sustain: 1},
	}
	v := oscvoice.New(gmsynth.DefaultAudioFormat, periodFrames)
	a := activation(p)
	a.State.SoloMute = true
	v.Activate(a)
	for i := 0; i < 3; i++ {
		b, ok := render(v)
		if !ok {
			t.Fatal("muted voice should stay active")
		}
		if !b.Live[gmsynth.BusLeft].Silent() {
			t.Fatal("muted voice rendered audio")
		}
	}
}
