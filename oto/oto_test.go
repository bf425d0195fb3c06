package oto

import (
	"errors"
	"testing"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/gmsynth"
)

func TestOtoFormat(t *testing.T) {
	for _, tc := range []struct {
		name   string
		format gmsynth.AudioFormat
		want   oto.Format
		err    bool
	}{
		{"Int16", gmsynth.DefaultAudioFormat, oto.FormatSignedInt16LE, false},
		{"Float32", gmsynth.AudioFormat{SampleRate: 48000, Channels: 2, SampleBits: 32, Float: true}, oto.FormatFloat32LE, false},
		{"Uint8", gmsynth.AudioFormat{SampleRate: 22050, Channels: 1, SampleBits: 8, Unsigned: true}, oto.FormatUnsignedInt8, false},
		{"BigEndian", gmsynth.AudioFormat{SampleRate: 44100, Channels: 2, SampleBits: 16, BigEndian: true}, 0, true},
		{"Int24", gmsynth.AudioFormat{SampleRate: 44100, Channels: 2, SampleBits: 24}, 0, true},
		{"Float64", gmsynth.AudioFormat{SampleRate: 44100, Channels: 2, SampleBits: 64, Float: true}, 0, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := otoFormat(tc.format)
			if tc.err {
				if !errors.Is(err, gmsynth.ErrUnsupportedFormat) {
					t.Fatalf("got %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("got %v, %v; want %v", got, err, tc.want)
			}
		})
	}
}

func TestBufferBytes(t *testing.T) {
	if n := bufferBytes(gmsynth.DefaultAudioFormat, 100*time.Millisecond); n != 4410*4 {
		t.Errorf("got %d bytes, want %d", n, 4410*4)
	}
}
