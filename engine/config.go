package engine

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/vsariola/gmsynth"
	"gopkg.in/yaml.v3"
)

type (
	// Config holds the settings fixed when a Synthesizer is created. It is
	// stored as YAML; fields missing from the document keep their defaults.
	Config struct {
		SampleRate    float64
		ControlRate   float64 // control periods per second
		Channels      int     // MIDI channels
		MaxPolyphony  int
		Latency       int64 // microseconds
		AudioChannels int   // 1 or 2
		SampleBits    int
		Float         bool `yaml:",omitempty"`
		BigEndian     bool `yaml:",omitempty"`
		Unsigned      bool `yaml:",omitempty"`

		VoiceAllocation VoiceAllocation

		Reverb bool
		Chorus bool
		AGC    bool

		// DeviceID is the SysEx device id the synthesizer answers to, in
		// addition to the 0x7F broadcast id.
		DeviceID int

		// SilenceThreshold is the number of silent control periods after
		// which the mixer stops rendering until the next event.
		SilenceThreshold int

		ActiveSensing bool

		// Logger receives engine notices. Nil disables logging.
		Logger *log.Logger `yaml:"-"`
	}

	// VoiceAllocation selects the voice stealing policy.
	VoiceAllocation int
)

const (
	// AllocationDefault steals the oldest released voice of any channel,
	// or the oldest voice if none is released.
	AllocationDefault VoiceAllocation = iota
	// AllocationDLSStatic steals only from the highest numbered channel
	// that has voices, preferring melodic channels over the percussion
	// channel.
	AllocationDLSStatic
)

var allocationNames = [...]string{"default", "dls-static"}

var ErrInvalidConfig = errors.New("invalid config")

func DefaultConfig() Config {
	return Config{
		SampleRate:       44100,
		ControlRate:      147,
		Channels:         16,
		MaxPolyphony:     64,
		Latency:          120000,
		AudioChannels:    2,
		SampleBits:       16,
		Reverb:           true,
		Chorus:           true,
		AGC:              true,
		DeviceID:         0x10,
		SilenceThreshold: 5,
		ActiveSensing:    true,
	}
}

// ParseConfig reads a YAML config on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("yaml.Unmarshal failed: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("could not read config: %w", err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		return c, fmt.Errorf("could not parse config %v: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.ControlRate <= 0 || c.ControlRate > c.SampleRate:
		return fmt.Errorf("%w: control rate %v", ErrInvalidConfig, c.ControlRate)
	case c.Channels < 1 || c.Channels > 32:
		return fmt.Errorf("%w: %d MIDI channels", ErrInvalidConfig, c.Channels)
	case c.MaxPolyphony < 1:
		return fmt.Errorf("%w: polyphony %d", ErrInvalidConfig, c.MaxPolyphony)
	case c.Latency < 0:
		return fmt.Errorf("%w: negative latency", ErrInvalidConfig)
	case c.DeviceID < 0 || c.DeviceID > 0x7F:
		return fmt.Errorf("%w: device id %d", ErrInvalidConfig, c.DeviceID)
	case c.VoiceAllocation < 0 || int(c.VoiceAllocation) >= len(allocationNames):
		return fmt.Errorf("%w: voice allocation %d", ErrInvalidConfig, c.VoiceAllocation)
	}
	if c.AudioChannels > 2 {
		return fmt.Errorf("%w: %d channels, only mono and stereo are supported", ErrUnsupportedFormat, c.AudioChannels)
	}
	return c.Format().Validate()
}

// Format returns the audio format the synthesizer produces.
func (c *Config) Format() gmsynth.AudioFormat {
	return gmsynth.AudioFormat{
		SampleRate: c.SampleRate,
		Channels:   c.AudioChannels,
		SampleBits: c.SampleBits,
		Float:      c.Float,
		Unsigned:   c.Unsigned,
		BigEndian:  c.BigEndian,
	}
}

// PeriodFrames returns the number of frames in one control period.
func (c *Config) PeriodFrames() int {
	return int(c.SampleRate / c.ControlRate)
}

func (a VoiceAllocation) String() string {
	if a < 0 || int(a) >= len(allocationNames) {
		return fmt.Sprintf("VoiceAllocation(%d)", int(a))
	}
	return allocationNames[a]
}

func (a VoiceAllocation) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(allocationNames) {
		return nil, fmt.Errorf("%w: voice allocation %d", ErrInvalidConfig, a)
	}
	return []byte(allocationNames[a]), nil
}

func (a *VoiceAllocation) UnmarshalText(text []byte) error {
	for i, n := range allocationNames {
		if n == string(text) {
			*a = VoiceAllocation(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown voice allocation %q", ErrInvalidConfig, text)
}
