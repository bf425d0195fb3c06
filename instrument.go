// Package gmsynth contains the data model shared by the gmsynth synthesizer
// engine and its collaborators: instruments and their performers, the
// modulation connection graph, tunings, the voice and channel mixer
// interfaces and the audio output format.
package gmsynth

import (
	"fmt"
	"strconv"
)

type (
	// Instrument is a playable patch, identified by its program, bank and
	// whether it lives in the percussion namespace. Its Performers are the
	// layers of the instrument, each sounding within a key and velocity range.
	Instrument struct {
		Name       string `yaml:",omitempty"`
		Program    int
		Bank       int  `yaml:",omitempty"`
		Percussion bool `yaml:",omitempty"`
		Performers []Performer

		// NewDirector, when set, overrides the standard key/velocity
		// matching strategy for this instrument.
		NewDirector DirectorFactory `yaml:"-"`

		// NewChannelMixer, when set, gives the channel playing this
		// instrument a private DSP insert.
		NewChannelMixer ChannelMixerFactory `yaml:"-"`
	}

	// Performer is one layer of an instrument. Performers sharing a non-zero
	// ExclusiveClass cut each other off: only one voice per class sounds at a
	// time on a channel, unless SelfNonExclusive allows the same note to
	// overlap itself.
	Performer struct {
		Name             string `yaml:",omitempty"`
		Keys             *Range `yaml:",flow,omitempty"` // nil means all keys
		Velocities       *Range `yaml:",flow,omitempty"` // nil means all velocities
		ExclusiveClass   int    `yaml:",omitempty"`
		SelfNonExclusive bool   `yaml:",omitempty"`

		// ReleaseTriggered performers sound when the key is released, not
		// when it is pressed.
		ReleaseTriggered bool `yaml:",omitempty"`

		Oscillators []Oscillator
		Envelope    Envelope
		Filter      Filter            `yaml:",omitempty"`
		Vibrato     LFO               `yaml:",omitempty"`
		Gain        float64           `yaml:",omitempty"` // in decibels
		Pan         float64           `yaml:",omitempty"` // -1 (left) .. 1 (right)
		Connections []ConnectionBlock `yaml:",omitempty"`
	}

	// Range is an inclusive range of 7-bit values.
	Range struct {
		Lo int
		Hi int
	}

	// Oscillator describes one waveform generator of a performer. Waveform
	// is one of "sine", "saw", "square", "triangle" or "noise".
	Oscillator struct {
		Waveform  string
		Transpose float64 `yaml:",omitempty"` // in semitones
		Detune    float64 `yaml:",omitempty"` // in cents
		Gain      float64 `yaml:",omitempty"` // linear, 0 means 1
		FixedKey  int     `yaml:",omitempty"` // if non-zero, ignore the played key
	}

	// Envelope is an amplitude envelope. Times are in seconds, Sustain is a
	// linear level between 0 and 1.
	Envelope struct {
		Delay   float64 `yaml:",omitempty"`
		Attack  float64 `yaml:",omitempty"`
		Hold    float64 `yaml:",omitempty"`
		Decay   float64 `yaml:",omitempty"`
		Sustain float64 `yaml:",omitempty"`
		Release float64 `yaml:",omitempty"`
	}

	// Filter is a resonant low pass filter. Cutoff in Hz, 0 disables the
	// filter.
	Filter struct {
		Cutoff    float64 `yaml:",omitempty"`
		Resonance float64 `yaml:",omitempty"`
	}

	// LFO is a low frequency oscillator, Rate in Hz, Delay in seconds and
	// Depth in cents.
	LFO struct {
		Rate  float64 `yaml:",omitempty"`
		Delay float64 `yaml:",omitempty"`
		Depth float64 `yaml:",omitempty"`
	}
)

// PatchKey returns the lookup key of a patch: "<program>.<bank>" for
// melodic instruments and "p.<program>.<bank>" for percussion.
func PatchKey(program, bank int, percussion bool) string {
	key := strconv.Itoa(program) + "." + strconv.Itoa(bank)
	if percussion {
		return "p." + key
	}
	return key
}

// Key returns the PatchKey of the instrument.
func (i *Instrument) Key() string {
	return PatchKey(i.Program, i.Bank, i.Percussion)
}

func (i *Instrument) String() string {
	if i.Name != "" {
		return fmt.Sprintf("%s (%s)", i.Name, i.Key())
	}
	return i.Key()
}

// Director returns the director matching notes to the performers of the
// instrument.
func (i *Instrument) Director() Director {
	if i.NewDirector != nil {
		return i.NewDirector(i.Performers)
	}
	return NewStandardDirector(i.Performers)
}

// Customize returns a shallow copy of the instrument where every performer
// has the connection blocks for which drop returns true removed and extra
// appended. The original instrument is left untouched.
func (i *Instrument) Customize(drop func(ConnectionBlock) bool, extra []ConnectionBlock) *Instrument {
	ret := *i
	ret.Performers = make([]Performer, len(i.Performers))
	for j, p := range i.Performers {
		conns := make([]ConnectionBlock, 0, len(p.Connections)+len(extra))
		for _, c := range p.Connections {
			if drop == nil || !drop(c) {
				conns = append(conns, c)
			}
		}
		p.Connections = append(conns, extra...)
		ret.Performers[j] = p
	}
	return &ret
}

// Matches tells if the performer should sound for the given key and
// velocity.
func (p *Performer) Matches(key, velocity int) bool {
	return p.Keys.contains(key) && p.Velocities.contains(velocity)
}

func (r *Range) contains(v int) bool {
	if r == nil {
		return true
	}
	return v >= r.Lo && v <= r.Hi
}
