package engine_test

import (
	"errors"
	"testing"

	"github.com/vsariola/gmsynth/engine"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := engine.DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if n := c.PeriodFrames(); n != periodFrames {
		t.Errorf("period of %d frames, want %d", n, periodFrames)
	}
}

func TestParseConfig(t *testing.T) {
	c, err := engine.ParseConfig([]byte("maxpolyphony: 8\nvoiceallocation: dls-static\nreverb: false\n"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if c.MaxPolyphony != 8 || c.VoiceAllocation != engine.AllocationDLSStatic || c.Reverb {
		t.Errorf("fields not parsed: %+v", c)
	}
	if c.SampleRate != 44100 || !c.Chorus {
		t.Errorf("missing fields should keep their defaults: %+v", c)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		err  error
	}{
		{"NoChannels", "channels: 0\n", engine.ErrInvalidConfig},
		{"TooManyChannels", "channels: 33\n", engine.ErrInvalidConfig},
		{"UnknownAllocation", "voiceallocation: random\n", engine.ErrInvalidConfig},
		{"DeviceID", "deviceid: 200\n", engine.ErrInvalidConfig},
		{"Surround", "audiochannels: 6\n", engine.ErrUnsupportedFormat},
		{"SampleBits", "samplebits: 20\n", engine.ErrUnsupportedFormat},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.ParseConfig([]byte(tc.yaml)); !errors.Is(err, tc.err) {
				t.Errorf("got %v, want %v", err, tc.err)
			}
		})
	}
}

func TestVoiceAllocationText(t *testing.T) {
	for _, a := range []engine.VoiceAllocation{engine.AllocationDefault, engine.AllocationDLSStatic} {
		text, err := a.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) failed: %v", a, err)
		}
		var b engine.VoiceAllocation
		if err := b.UnmarshalText(text); err != nil || b != a {
			t.Errorf("%q parsed as %v, %v", text, b, err)
		}
	}
}
