// Package oto plays the synthesizer output through the ebitengine/oto
// audio library.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/gmsynth"
)

// Sink is a gmsynth.AudioSink pulling the stream into an oto player.
type Sink struct {
	context *oto.Context
	format  gmsynth.AudioFormat
	latency time.Duration
	player  *oto.Player
}

// NewSink opens the audio device for the given format. oto allows a single
// context per process, so only one Sink can be created.
func NewSink(format gmsynth.AudioFormat, latency time.Duration) (*Sink, error) {
	f, err := otoFormat(format)
	if err != nil {
		return nil, err
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(format.SampleRate),
		ChannelCount: format.Channels,
		Format:       f,
		BufferSize:   latency,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Sink{context: ctx, format: format, latency: latency}, nil
}

// Play starts pulling from stream in the background.
func (s *Sink) Play(stream io.Reader) error {
	if s.player != nil {
		return fmt.Errorf("oto sink is already playing")
	}
	p := s.context.NewPlayer(stream)
	if n := bufferBytes(s.format, s.latency); n > 0 {
		p.SetBufferSize(n)
	}
	p.Play()
	if err := p.Err(); err != nil {
		p.Close()
		return fmt.Errorf("cannot start oto player: %w", err)
	}
	s.player = p
	return nil
}

// Close disposes of the player. The sink can Play again afterwards.
func (s *Sink) Close() error {
	if s.player == nil {
		return nil
	}
	p := s.player
	s.player = nil
	if err := p.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

func otoFormat(f gmsynth.AudioFormat) (oto.Format, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	switch {
	case f.BigEndian && f.SampleBits > 8:
	case f.Channels > 2:
	case f.Float && f.SampleBits == 32:
		return oto.FormatFloat32LE, nil
	case !f.Float && f.SampleBits == 16 && !f.Unsigned:
		return oto.FormatSignedInt16LE, nil
	case !f.Float && f.SampleBits == 8 && f.Unsigned:
		return oto.FormatUnsignedInt8, nil
	}
	return 0, fmt.Errorf("%w: oto cannot play %v", gmsynth.ErrUnsupportedFormat, f)
}

// bufferBytes returns the player buffer size holding latency worth of
// whole frames.
func bufferBytes(f gmsynth.AudioFormat, latency time.Duration) int {
	frames := int(latency.Seconds() * f.SampleRate)
	return frames * f.FrameSize()
}
