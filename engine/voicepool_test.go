package engine_test

import (
	"testing"

	"github.com/vsariola/gmsynth/engine"
)

func TestVoiceStealing(t *testing.T) {
	s, r := newSynth(t, testConfig(2))
	ch := s.Channels()[0]
	ch.NoteOn(60, 100)
	ch.NoteOn(62, 100)
	ch.NoteOn(64, 100)
	st := s.VoiceStatus()
	if !st[0].StealPending || st[1].StealPending {
		t.Fatalf("the oldest voice should be stolen: %+v", st)
	}
	if !r.voices[0].soundOff {
		t.Fatal("stolen voice should be faded out")
	}
	render(t, s, 1)
	st = s.VoiceStatus()
	if !st[0].Active || !st[0].On || st[0].Note != 64 || st[0].StealPending {
		t.Errorf("stealer should play in the freed slot within the same period: %+v", st[0])
	}
	if r.voices[0].activations != 2 || r.voices[0].a.Delay != 0 {
		t.Errorf("slot 0 activated %d times with delay %d", r.voices[0].activations, r.voices[0].a.Delay)
	}
	if st[1].Note != 62 || !st[1].On {
		t.Errorf("the other voice should be untouched: %+v", st[1])
	}
}

func TestStealerKeepsPatch(t *testing.T) {
	s, r := newSynth(t, testConfig(1))
	ch := s.Channels()[0]
	ch.NoteOn(60, 100)
	ch.NoteOn(62, 100)
	ch.ProgramChange(0, 3)
	render(t, s, 1)
	v := r.voices[0]
	if v.activations != 2 || v.a.Note != 62 {
		t.Fatalf("stealer not activated: %d activations, note %d", v.activations, v.a.Note)
	}
	if v.a.Instrument == nil || v.a.Instrument.Name != "Piano" {
		t.Errorf("stealer should play the patch of its note on, got %v", v.a.Instrument)
	}
	if st := s.VoiceStatus()[0]; st.Bank != 0 || st.Program != 0 {
		t.Errorf("voice reports bank %d program %d, want the piano patch", st.Bank, st.Program)
	}
}

func TestStealPrefersReleasedVoices(t *testing.T) {
	s, _ := newSynth(t, testConfig(2))
	ch := s.Channels()[0]
	ch.ControlChange(64, 127)
	ch.NoteOn(60, 100)
	ch.NoteOn(62, 100)
	ch.NoteOff(62, 64)
	ch.NoteOn(64, 100)
	st := s.VoiceStatus()
	if st[0].StealPending || !st[1].StealPending {
		t.Errorf("the released voice should be stolen before the older held one: %+v", st)
	}
}

func TestStealFadesWholeNoteEvent(t *testing.T) {
	s, r := newSynth(t, testConfig(2))
	ch := s.Channels()[0]
	ch.ProgramChange(0, 1)
	ch.NoteOn(60, 100)
	ch.ProgramChange(0, 0)
	ch.NoteOn(62, 100)
	if !r.voices[0].soundOff || !r.voices[1].soundOff {
		t.Error("both layers of the stolen note should be faded out")
	}
}

func TestNoteOffCancelsPendingSteal(t *testing.T) {
	s, r := newSynth(t, testConfig(2))
	ch := s.Channels()[0]
	ch.NoteOn(60, 100)
	ch.NoteOn(62, 100)
	ch.NoteOn(64, 100)
	ch.NoteOff(64, 64)
	if s.VoiceStatus()[0].StealPending {
		t.Fatal("note off should drop the pending steal of its note")
	}
	render(t, s, 1)
	if s.VoiceStatus()[0].Active || r.voices[0].activations != 1 {
		t.Error("the cancelled note should never start")
	}
}

func TestAllSoundOffDropsPendingSteal(t *testing.T) {
	s, r := newSynth(t, testConfig(2))
	ch := s.Channels()
	ch[0].NoteOn(60, 100)
	ch[0].NoteOn(62, 100)
	ch[1].NoteOn(64, 100)
	ch[1].AllSoundOff()
	render(t, s, 1)
	if r.voices[0].activations != 1 {
		t.Error("a steal requested by a silenced channel should not be realized")
	}
}

func TestDLSStaticAllocation(t *testing.T) {
	c := testConfig(2)
	c.VoiceAllocation = engine.AllocationDLSStatic
	s, _ := newSynth(t, c)
	ch := s.Channels()
	ch[0].NoteOn(60, 100)
	ch[3].NoteOn(60, 100)
	ch[0].NoteOn(62, 100)
	st := s.VoiceStatus()
	if st[0].StealPending || !st[1].StealPending {
		t.Errorf("the highest channel should be stolen from, even though its voice is newer: %+v", st)
	}
}

func TestDLSStaticSparesPercussion(t *testing.T) {
	c := testConfig(2)
	c.VoiceAllocation = engine.AllocationDLSStatic
	s, _ := newSynth(t, c)
	ch := s.Channels()
	ch[9].NoteOn(36, 100)
	ch[2].NoteOn(60, 100)
	ch[0].NoteOn(62, 100)
	st := s.VoiceStatus()
	if st[0].StealPending || !st[1].StealPending {
		t.Errorf("the percussion channel should only be stolen from as a last resort: %+v", st)
	}
}
