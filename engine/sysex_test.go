package engine_test

import (
	"testing"

	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/engine"
)

func TestGeneralMidiSystem(t *testing.T) {
	s, r := newSynth(t, testConfig(4))
	ch := s.Channels()
	ch[0].NoteOn(60, 100)
	ch[0].ControlChange(7, 20)
	send(t, s, 0xF0, 0x7E, 0x7F, 0x09, 0x03, 0xF7) // GM2 on
	if m := s.GeneralMidiMode(); m != 2 {
		t.Fatalf("general MIDI mode %d, want 2", m)
	}
	if !r.voices[0].soundOff || s.VoiceStatus()[0].Active {
		t.Error("GM2 on should turn all sound off")
	}
	if b := ch[gmsynth.PercussionChannel].Bank(); b != gmsynth.BankMSBPercussion<<7 {
		t.Errorf("percussion channel bank %d, want %d", b, gmsynth.BankMSBPercussion<<7)
	}
	if b := ch[0].Bank(); b != gmsynth.BankMSBMelodic<<7 {
		t.Errorf("melodic channel bank %d, want %d", b, gmsynth.BankMSBMelodic<<7)
	}
	if v := ch[0].Controller(7); v != 100 {
		t.Errorf("volume %d after reset, want 100", v)
	}
	send(t, s, 0xF0, 0x7E, 0x7F, 0x09, 0x02, 0xF7) // GM off
	if m := s.GeneralMidiMode(); m != 0 {
		t.Fatalf("general MIDI mode %d, want 0", m)
	}
	if b := ch[gmsynth.PercussionChannel].Bank(); b != 0 {
		t.Errorf("GM off should select bank 0, got %d", b)
	}
}

func TestDLSSystem(t *testing.T) {
	s, _ := newSynth(t, testConfig(4))
	send(t, s, 0xF0, 0x7E, 0x7F, 0x0A, 0x01, 0xF7)
	if a := s.VoiceAllocation(); a != engine.AllocationDLSStatic {
		t.Errorf("DLS on should select static allocation, got %v", a)
	}
	if m := s.GeneralMidiMode(); m != 1 {
		t.Errorf("DLS on should turn GM1 on, got mode %d", m)
	}
	send(t, s, 0xF0, 0x7E, 0x7F, 0x0A, 0x03, 0xF7)
	if a := s.VoiceAllocation(); a != engine.AllocationDefault {
		t.Errorf("voice allocation %v, want default", a)
	}
}

func TestSysExDeviceID(t *testing.T) {
	s, _ := newSynth(t, testConfig(4))
	send(t, s, 0xF0, 0x7E, 0x05, 0x09, 0x01, 0xF7)
	if s.GeneralMidiMode() != 0 {
		t.Fatal("message for another device should be ignored")
	}
	send(t, s, 0xF0, 0x7E, 0x10, 0x09, 0x01, 0xF7)
	if s.GeneralMidiMode() != 1 {
		t.Fatal("message for the configured device id should be accepted")
	}
}

func TestMalformedSysExIgnored(t *testing.T) {
	s, _ := newSynth(t, testConfig(4))
	for _, msg := range [][]byte{
		{0xF0, 0xF7},
		{0xF0, 0x7F, 0x7F, 0x04, 0x05, 0xF7},
		{0xF0, 0x7F, 0x7F, 0x04, 0x05, 0x01, 0x00, 0x00, 0xF7},
		{0xF0, 0x7F, 0x7F, 0x08, 0x02, 0x00, 0x05, 0x3C, 0xF7},
		{0xF0, 0x7F, 0x7F, 0x09, 0x03, 0x40, 0x01, 0xF7},
		{0xF0, 0x7F, 0x7F, 0x0A, 0x01, 0x00, 0xF7},
	} {
		send(t, s, msg...)
	}
	render(t, s, 1)
}

func TestSingleNoteTuningChange(t *testing.T) {
	s, r := newSynth(t, testConfig(4))
	ch := s.Channels()[0]
	// select tuning program 0
	ch.ControlChange(101, 0)
	ch.ControlChange(100, 3)
	ch.ControlChange(6, 0)
	ch.NoteOn(60, 100)
	// key 60 to exactly 62 semitones
	send(t, s, 0xF0, 0x7F, 0x7F, 0x08, 0x02, 0x00, 0x01, 0x3C, 0x3E, 0x00, 0x00, 0xF7)
	if c := s.Tuning(0, 0).Cents[60]; c != 6200 {
		t.Fatalf("tuned key 60 to %v cents, want 6200", c)
	}
	if r.voices[0].tunings != 1 {
		t.Errorf("sounding voice retuned %d times, want 1", r.voices[0].tunings)
	}
	if c := r.voices[0].a.Tuning.Cents[60]; c != 6200 {
		t.Errorf("voice plays key 60 at %v cents, want 6200", c)
	}
}

func TestScaleOctaveTuning(t *testing.T) {
	s, r := newSynth(t, testConfig(4))
	ch := s.Channels()
	ch[0].NoteOn(60, 100)
	ch[1].NoteOn(60, 100)
	// real-time 1 byte form for channel 0 only: C raised by 10 cents
	msg := []byte{0xF0, 0x7F, 0x7F, 0x08, 0x08, 0x00, 0x00, 0x01}
	msg = append(msg, 74, 64, 64, 64, 64, 64, 64, 64, 64, 64, 64, 64, 0xF7)
	send(t, s, msg...)
	if r.voices[0].tunings != 1 || r.voices[1].tunings != 0 {
		t.Errorf("only the voice of channel 0 should be retuned, got %d and %d", r.voices[0].tunings, r.voices[1].tunings)
	}
	ch[0].NoteOn(72, 100)
	if c := r.voices[2].a.Tuning.Cents[72]; c != 7210 {
		t.Errorf("key 72 tuned to %v cents, want 7210", c)
	}
}

func TestKeyBasedInstrumentControl(t *testing.T) {
	s, r := newSynth(t, testConfig(4))
	send(t, s, 0xF0, 0x7F, 0x7F, 0x0A, 0x01, 0x00, 0x3C, 0x07, 0x0A, 0xF7)
	s.Channels()[0].NoteOn(60, 100)
	if v := r.voices[0].a.State.Controllers[7]; v != 10 {
		t.Errorf("note 60 should see volume 10, got %d", v)
	}
}
