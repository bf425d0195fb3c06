package gmsynth

import "fmt"

// family is a template for the eight General MIDI programs of one
// instrument family.
type family struct {
	name     string
	waves    []string
	envelope Envelope
	filter   Filter
	vibrato  LFO
}

var families = [16]family{
	{"Piano", []string{"triangle", "saw"}, Envelope{Attack: 0.002, Decay: 1.5, Sustain: 0.2, Release: 0.3}, Filter{Cutoff: 4000}, LFO{}},
	{"Chromatic Percussion", []string{"sine"}, Envelope{Attack: 0.001, Decay: 0.8, Release: 0.4}, Filter{}, LFO{}},
	{"Organ", []string{"sine", "square"}, Envelope{Attack: 0.01, Sustain: 1, Release: 0.05}, Filter{Cutoff: 6000}, LFO{Rate: 6, Depth: 5}},
	{"Guitar", []string{"saw"}, Envelope{Attack: 0.002, Decay: 1.2, Sustain: 0.1, Release: 0.2}, Filter{Cutoff: 3000, Resonance: 0.2}, LFO{}},
	{"Bass", []string{"triangle", "saw"}, Envelope{Attack: 0.003, Decay: 0.6, Sustain: 0.5, Release: 0.1}, Filter{Cutoff: 1200}, LFO{}},
	{"Strings", []string{"saw", "saw"}, Envelope{Attack: 0.15, Sustain: 1, Release: 0.4}, Filter{Cutoff: 5000}, LFO{Rate: 5, Delay: 0.3, Depth: 10}},
	{"Ensemble", []string{"saw", "saw"}, Envelope{Attack: 0.2, Sustain: 1, Release: 0.6}, Filter{Cutoff: 4000}, LFO{Rate: 5, Delay: 0.4, Depth: 8}},
	{"Brass", []string{"saw"}, Envelope{Attack: 0.05, Decay: 0.2, Sustain: 0.8, Release: 0.15}, Filter{Cutoff: 3500, Resonance: 0.1}, LFO{Rate: 5, Delay: 0.5, Depth: 6}},
	{"Reed", []string{"square"}, Envelope{Attack: 0.03, Sustain: 0.9, Release: 0.1}, Filter{Cutoff: 3000}, LFO{Rate: 5, Delay: 0.4, Depth: 8}},
	{"Pipe", []string{"sine", "triangle"}, Envelope{Attack: 0.05, Sustain: 0.9, Release: 0.15}, Filter{}, LFO{Rate: 5, Delay: 0.3, Depth: 6}},
	{"Synth Lead", []string{"square", "saw"}, Envelope{Attack: 0.005, Sustain: 0.9, Release: 0.1}, Filter{Cutoff: 7000, Resonance: 0.3}, LFO{Rate: 6, Delay: 0.5, Depth: 10}},
	{"Synth Pad", []string{"saw", "triangle"}, Envelope{Attack: 0.6, Sustain: 1, Release: 1.2}, Filter{Cutoff: 2500}, LFO{Rate: 0.5, Depth: 6}},
	{"Synth Effects", []string{"noise", "saw"}, Envelope{Attack: 0.3, Decay: 2, Sustain: 0.5, Release: 1.5}, Filter{Cutoff: 2000, Resonance: 0.5}, LFO{Rate: 0.3, Depth: 30}},
	{"Ethnic", []string{"triangle"}, Envelope{Attack: 0.002, Decay: 0.9, Sustain: 0.2, Release: 0.3}, Filter{Cutoff: 3500}, LFO{}},
	{"Percussive", []string{"sine", "noise"}, Envelope{Attack: 0.001, Decay: 0.4, Release: 0.2}, Filter{Cutoff: 3000}, LFO{}},
	{"Sound Effects", []string{"noise"}, Envelope{Attack: 0.05, Decay: 1, Sustain: 0.3, Release: 0.5}, Filter{Cutoff: 1500, Resonance: 0.4}, LFO{}},
}

// drum is one key of the default percussion kit.
type drum struct {
	key       int
	name      string
	waves     []string
	fixedKey  int
	decay     float64
	cutoff    float64
	exclusive int
}

var drums = []drum{
	{35, "Acoustic Bass Drum", []string{"sine"}, 28, 0.3, 0, 0},
	{36, "Bass Drum", []string{"sine"}, 31, 0.25, 0, 0},
	{37, "Side Stick", []string{"noise"}, 0, 0.04, 5000, 0},
	{38, "Snare", []string{"noise", "triangle"}, 50, 0.2, 8000, 0},
	{39, "Hand Clap", []string{"noise"}, 0, 0.12, 3000, 0},
	{40, "Electric Snare", []string{"noise", "square"}, 52, 0.18, 9000, 0},
	{41, "Low Floor Tom", []string{"sine"}, 41, 0.4, 0, 0},
	{42, "Closed Hi-Hat", []string{"noise"}, 0, 0.05, 12000, 1},
	{43, "High Floor Tom", []string{"sine"}, 43, 0.4, 0, 0},
	{44, "Pedal Hi-Hat", []string{"noise"}, 0, 0.08, 11000, 1},
	{45, "Low Tom", []string{"sine"}, 45, 0.35, 0, 0},
	{46, "Open Hi-Hat", []string{"noise"}, 0, 0.5, 12000, 1},
	{47, "Low-Mid Tom", []string{"sine"}, 47, 0.35, 0, 0},
	{48, "High-Mid Tom", []string{"sine"}, 50, 0.3, 0, 0},
	{49, "Crash Cymbal", []string{"noise"}, 0, 1.5, 14000, 0},
	{50, "High Tom", []string{"sine"}, 53, 0.3, 0, 0},
	{51, "Ride Cymbal", []string{"noise", "sine"}, 96, 1.2, 16000, 0},
	{53, "Ride Bell", []string{"sine", "noise"}, 100, 0.8, 16000, 0},
	{54, "Tambourine", []string{"noise"}, 0, 0.25, 15000, 0},
	{55, "Splash Cymbal", []string{"noise"}, 0, 0.8, 14000, 0},
	{56, "Cowbell", []string{"square"}, 79, 0.2, 5000, 0},
	{57, "Crash Cymbal 2", []string{"noise"}, 0, 1.5, 13000, 0},
	{59, "Ride Cymbal 2", []string{"noise", "sine"}, 94, 1.2, 15000, 0},
	{60, "Hi Bongo", []string{"sine"}, 67, 0.15, 0, 0},
	{61, "Low Bongo", []string{"sine"}, 62, 0.18, 0, 0},
	{62, "Mute Hi Conga", []string{"sine"}, 65, 0.08, 0, 0},
	{63, "Open Hi Conga", []string{"sine"}, 64, 0.25, 0, 0},
	{64, "Low Conga", []string{"sine"}, 59, 0.3, 0, 0},
	{69, "Cabasa", []string{"noise"}, 0, 0.1, 14000, 0},
	{70, "Maracas", []string{"noise"}, 0, 0.06, 15000, 0},
	{71, "Short Whistle", []string{"sine"}, 96, 0.15, 0, 2},
	{72, "Long Whistle", []string{"sine"}, 96, 0.6, 0, 2},
	{75, "Claves", []string{"sine"}, 88, 0.06, 0, 0},
	{76, "Hi Wood Block", []string{"sine"}, 84, 0.08, 0, 0},
	{77, "Low Wood Block", []string{"sine"}, 79, 0.08, 0, 0},
	{80, "Mute Triangle", []string{"sine"}, 105, 0.1, 0, 3},
	{81, "Open Triangle", []string{"sine"}, 105, 1.0, 0, 3},
}

// DefaultSoundbank returns a small generated General MIDI soundbank: one
// instrument for each of the 128 melodic programs and a standard drum kit
// at program 0 of the percussion namespace. It is what the synthesizer
// plays when no other soundbank has been loaded.
func DefaultSoundbank() *Soundbank {
	sb := &Soundbank{Name: "Default"}
	for p := 0; p < 128; p++ {
		f := families[p/8]
		perf := Performer{
			Envelope: f.envelope,
			Filter:   f.filter,
			Vibrato:  f.vibrato,
			Gain:     -6,
		}
		for i, w := range f.waves {
			// members of a family differ by a small detune of their second
			// oscillator, so they are not all identical
			osc := Oscillator{Waveform: w}
			if i > 0 {
				osc.Detune = float64(p%8+1) * 1.5
				osc.Gain = 0.5
			}
			perf.Oscillators = append(perf.Oscillators, osc)
		}
		sb.Instruments = append(sb.Instruments, Instrument{
			Name:       fmt.Sprintf("%s %d", f.name, p%8+1),
			Program:    p,
			Performers: []Performer{perf},
		})
	}
	kit := Instrument{Name: "Standard Kit", Percussion: true}
	for _, d := range drums {
		perf := Performer{
			Name:           d.name,
			Keys:           &Range{Lo: d.key, Hi: d.key},
			ExclusiveClass: d.exclusive,
			Envelope:       Envelope{Attack: 0.001, Decay: d.decay, Release: d.decay / 2},
			Filter:         Filter{Cutoff: d.cutoff},
			Gain:           -3,
		}
		for _, w := range d.waves {
			perf.Oscillators = append(perf.Oscillators, Oscillator{Waveform: w, FixedKey: d.fixedKey})
		}
		kit.Performers = append(kit.Performers, perf)
	}
	sb.Instruments = append(sb.Instruments, kit)
	return sb
}
