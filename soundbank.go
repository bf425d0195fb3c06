package gmsynth

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type (
	// Soundbank is a named collection of instruments, stored as YAML.
	Soundbank struct {
		Name        string `yaml:",omitempty"`
		Instruments []Instrument
	}

	// InstrumentMap holds loaded instruments by their PatchKey.
	InstrumentMap map[string]*Instrument
)

// Reserved GM2 bank MSBs: 0x78 holds percussion and 0x79 melodic
// instruments, both playable on any channel.
const (
	BankMSBPercussion = 0x78
	BankMSBMelodic    = 0x79
)

// PercussionChannel is the channel using the percussion namespace outside
// of the reserved GM2 banks.
const PercussionChannel = 9

var ErrInvalidSoundbank = errors.New("invalid soundbank")

func ParseSoundbank(data []byte) (*Soundbank, error) {
	var sb Soundbank
	if err := yaml.Unmarshal(data, &sb); err != nil {
		return nil, fmt.Errorf("%w: yaml.Unmarshal failed: %w", ErrInvalidSoundbank, err)
	}
	for i, ins := range sb.Instruments {
		if ins.Program < 0 || ins.Program > 127 || ins.Bank < 0 || ins.Bank > 16383 {
			return nil, fmt.Errorf("%w: instrument %d (%s): patch out of range", ErrInvalidSoundbank, i, ins.Key())
		}
	}
	return &sb, nil
}

func LoadSoundbank(path string) (*Soundbank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read soundbank: %w", err)
	}
	sb, err := ParseSoundbank(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse soundbank %v: %w", path, err)
	}
	return sb, nil
}

func (s *Soundbank) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Add stores the instrument under its key, replacing any previous one.
func (m InstrumentMap) Add(ins *Instrument) {
	m[ins.Key()] = ins
}

// Find resolves the instrument a channel plays for a program and 14-bit
// bank. Channel PercussionChannel looks in the percussion namespace. On a
// miss the bank falls back to its MSB alone, then its LSB alone, then bank
// 0, and finally program 0 of bank 0. Banks with a reserved GM2 MSB choose
// their namespace themselves, whatever the channel. Returns nil if nothing
// matches.
func (m InstrumentMap) Find(program, bank, channel int) *Instrument {
	percussion := channel == PercussionChannel
	switch bank >> 7 {
	case BankMSBPercussion, BankMSBMelodic:
		if ins, ok := m[PatchKey(program, bank, false)]; ok {
			return ins
		}
		percussion = bank>>7 == BankMSBPercussion
	}
	for _, b := range [...]int{bank, bank &^ 127, bank & 127, 0} {
		if ins, ok := m[PatchKey(program, b, percussion)]; ok {
			return ins
		}
	}
	if ins, ok := m[PatchKey(0, 0, percussion)]; ok {
		return ins
	}
	return nil
}
