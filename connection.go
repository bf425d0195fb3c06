package gmsynth

import "fmt"

type (
	// ConnectionBlock routes a modulation source to a synthesis destination.
	// The contribution is Source × Control × Scale, where Source and Control
	// are normalized to 0..1 (or -1..1 for bipolar sources such as pitch bend
	// and LFOs) and a SourceNone control counts as 1.
	ConnectionBlock struct {
		Source      Source
		Control     Source `yaml:",omitempty"`
		Destination Destination
		Scale       float64
	}

	// Source identifies a modulation source. Index is the controller number
	// when Kind is SourceController.
	Source struct {
		Kind  SourceKind
		Index int `yaml:",omitempty"`
	}

	SourceKind  int
	Destination int
)

const (
	SourceNone SourceKind = iota
	SourceKey
	SourceVelocity
	SourcePitchBend
	SourceChannelPressure
	SourcePolyPressure
	SourceController
	SourceLFO
	SourceVibrato
)

const (
	DestinationNone Destination = iota
	DestinationPitch
	DestinationFilterCutoff
	DestinationGain
	DestinationPan
	DestinationReverbSend
	DestinationChorusSend
)

var sourceNames = [...]string{"none", "key", "velocity", "pitchbend", "channelpressure", "polypressure", "controller", "lfo", "vibrato"}
var destinationNames = [...]string{"none", "pitch", "filtercutoff", "gain", "pan", "reverbsend", "chorussend"}

// Control destination setting targets, as numbered in the GM2 Control
// Destination Settings SysEx message.
const (
	CDSPitch = iota
	CDSFilterCutoff
	CDSAmplitude
	CDSLFOPitchDepth
	CDSLFOFilterDepth
	CDSLFOAmplitudeDepth
)

func (k SourceKind) String() string {
	if k < 0 || int(k) >= len(sourceNames) {
		return "???"
	}
	return sourceNames[k]
}

func (k SourceKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(sourceNames) {
		return nil, fmt.Errorf("invalid source kind %d", int(k))
	}
	return []byte(sourceNames[k]), nil
}

func (k *SourceKind) UnmarshalText(text []byte) error {
	for i, n := range sourceNames {
		if n == string(text) {
			*k = SourceKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown source kind %q", text)
}

func (d Destination) String() string {
	if d < 0 || int(d) >= len(destinationNames) {
		return "???"
	}
	return destinationNames[d]
}

func (d Destination) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(destinationNames) {
		return nil, fmt.Errorf("invalid destination %d", int(d))
	}
	return []byte(destinationNames[d]), nil
}

func (d *Destination) UnmarshalText(text []byte) error {
	for i, n := range destinationNames {
		if n == string(text) {
			*d = Destination(i)
			return nil
		}
	}
	return fmt.Errorf("unknown destination %q", text)
}

// Controller returns the Source of a MIDI continuous controller.
func Controller(cc int) Source {
	return Source{Kind: SourceController, Index: cc}
}

// Uses tells if the block reads the given source, either as its primary
// source or as its control.
func (c ConnectionBlock) Uses(s Source) bool {
	return c.Source == s || c.Control == s
}

// DestinationConnections translates GM2 control destination settings
// (destination, range pairs) for the given source into connection blocks.
// Ranges are 7-bit; 64 is neutral for the direct destinations. Unknown
// destinations are skipped.
func DestinationConnections(src Source, destinations, ranges []int) []ConnectionBlock {
	var ret []ConnectionBlock
	for i, d := range destinations {
		if i >= len(ranges) {
			break
		}
		r := float64(ranges[i])
		switch d {
		case CDSPitch:
			ret = append(ret, ConnectionBlock{Source: src, Destination: DestinationPitch, Scale: (r - 64) * 100})
		case CDSFilterCutoff:
			ret = append(ret, ConnectionBlock{Source: src, Destination: DestinationFilterCutoff, Scale: (r - 64) * 9600 / 63})
		case CDSAmplitude:
			ret = append(ret, ConnectionBlock{Source: src, Destination: DestinationGain, Scale: (r - 64) / 64})
		case CDSLFOPitchDepth:
			ret = append(ret, ConnectionBlock{Source: Source{Kind: SourceLFO}, Control: src, Destination: DestinationPitch, Scale: r * 600 / 127})
		case CDSLFOFilterDepth:
			ret = append(ret, ConnectionBlock{Source: Source{Kind: SourceLFO}, Control: src, Destination: DestinationFilterCutoff, Scale: r * 2400 / 127})
		case CDSLFOAmplitudeDepth:
			ret = append(ret, ConnectionBlock{Source: Source{Kind: SourceLFO}, Control: src, Destination: DestinationGain, Scale: r / 127})
		}
	}
	return ret
}
