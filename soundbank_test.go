package gmsynth_test

import (
	"errors"
	"testing"

	"github.com/vsariola/gmsynth"
)

const soundbankYAML = `
name: Test
instruments:
  - name: Lead
    program: 3
    bank: 650
    performers:
      - oscillators:
          - waveform: saw
        envelope: {attack: 0.01, sustain: 1, release: 0.1}
        connections:
          - source: {kind: controller, index: 1}
            destination: pitch
            scale: 50
  - name: Kit
    program: 0
    percussion: true
    performers:
      - keys: {lo: 42, hi: 42}
        exclusiveclass: 1
        oscillators:
          - waveform: noise
`

func TestParseSoundbank(t *testing.T) {
	sb, err := gmsynth.ParseSoundbank([]byte(soundbankYAML))
	if err != nil {
		t.Fatalf("ParseSoundbank failed: %v", err)
	}
	if len(sb.Instruments) != 2 {
		t.Fatalf("got %d instruments", len(sb.Instruments))
	}
	lead := sb.Instruments[0]
	if lead.Key() != "3.650" {
		t.Errorf("got key %q", lead.Key())
	}
	c := lead.Performers[0].Connections[0]
	if c.Source != gmsynth.Controller(1) || c.Destination != gmsynth.DestinationPitch || c.Scale != 50 {
		t.Errorf("unexpected connection %+v", c)
	}
	kit := sb.Instruments[1]
	if kit.Key() != "p.0.0" {
		t.Errorf("got key %q", kit.Key())
	}
	if p := kit.Performers[0]; p.Matches(41, 100) || !p.Matches(42, 1) {
		t.Errorf("key range not honored: %+v", p.Keys)
	}
}

func TestParseSoundbankRejectsUnknownDestination(t *testing.T) {
	_, err := gmsynth.ParseSoundbank([]byte(`
instruments:
  - program: 0
    performers:
      - connections:
          - destination: nowhere
`))
	if !errors.Is(err, gmsynth.ErrInvalidSoundbank) {
		t.Fatalf("got %v, want ErrInvalidSoundbank", err)
	}
}

func TestParseSoundbankRejectsPatchOutOfRange(t *testing.T) {
	_, err := gmsynth.ParseSoundbank([]byte("instruments:\n  - program: 128\n"))
	if !errors.Is(err, gmsynth.ErrInvalidSoundbank) {
		t.Fatalf("got %v, want ErrInvalidSoundbank", err)
	}
}

func TestFind(t *testing.T) {
	m := gmsynth.InstrumentMap{}
	add := func(program, bank int, percussion bool) *gmsynth.Instrument {
		ins := &gmsynth.Instrument{Program: program, Bank: bank, Percussion: percussion}
		m.Add(ins)
		return ins
	}
	p0 := add(0, 0, false)
	p3 := add(3, 0, false)
	p3msb := add(3, 5<<7, false)
	p3lsb := add(3, 7, false)
	drums := add(0, 0, true)
	gm2drums := add(0, 0x78<<7, true)
	gm2melodic := add(4, 0x79<<7, false)

	tests := []struct {
		name                   string
		program, bank, channel int
		want                   *gmsynth.Instrument
	}{
		{"exact", 3, 0, 0, p3},
		{"msb only", 3, 5<<7 + 10, 0, p3msb},
		{"lsb only", 3, 9<<7 + 7, 0, p3lsb},
		{"bank 0", 3, 9<<7 + 9, 0, p3},
		{"program 0", 42, 0, 0, p0},
		{"percussion channel", 25, 0, 9, drums},
		{"gm2 percussion bank on melodic channel", 0, 0x78 << 7, 0, gm2drums},
		{"gm2 melodic bank on percussion channel", 4, 0x79 << 7, 9, gm2melodic},
		{"gm2 melodic bank falls back melodic", 5, 0x79 << 7, 9, p0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Find(tt.program, tt.bank, tt.channel); got != tt.want {
				t.Errorf("got %v, expected %v", got, tt.want)
			}
		})
	}
	if got := (gmsynth.InstrumentMap{}).Find(0, 0, 0); got != nil {
		t.Errorf("empty map should find nothing, got %v", got)
	}
}

func TestDefaultSoundbank(t *testing.T) {
	m := gmsynth.InstrumentMap{}
	sb := gmsynth.DefaultSoundbank()
	for i := range sb.Instruments {
		m.Add(&sb.Instruments[i])
	}
	for p := 0; p < 128; p++ {
		if _, ok := m[gmsynth.PatchKey(p, 0, false)]; !ok {
			t.Errorf("program %d missing", p)
		}
	}
	kit, ok := m["p.0.0"]
	if !ok {
		t.Fatal("drum kit missing")
	}
	if len(kit.Director().NoteOn(42, 100)) != 1 {
		t.Error("closed hi-hat should match exactly one performer")
	}
}
