package gmsynth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

type (
	// AudioFormat describes the byte stream the synthesizer produces.
	// Interleaved frames of Channels samples, each SampleBits wide. Integer
	// samples are signed unless Unsigned is set; Float selects IEEE floats
	// (SampleBits 32 or 64).
	AudioFormat struct {
		SampleRate float64
		Channels   int
		SampleBits int
		Float      bool `yaml:",omitempty"`
		Unsigned   bool `yaml:",omitempty"`
		BigEndian  bool `yaml:",omitempty"`
	}

	// AudioSink plays the audio stream of the synthesizer. Play should start
	// pulling from stream in the background and return; the sink owns the
	// pacing.
	AudioSink interface {
		Play(stream io.Reader) error
		Close() error
	}
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DefaultAudioFormat is 44.1 kHz, stereo, signed 16-bit little endian.
var DefaultAudioFormat = AudioFormat{SampleRate: 44100, Channels: 2, SampleBits: 16}

// Validate returns ErrUnsupportedFormat, wrapped, if the format cannot be
// encoded.
func (f AudioFormat) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %v", ErrUnsupportedFormat, f.SampleRate)
	}
	if f.Channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}
	if f.Float {
		if f.SampleBits != 32 && f.SampleBits != 64 {
			return fmt.Errorf("%w: %d-bit float", ErrUnsupportedFormat, f.SampleBits)
		}
		return nil
	}
	switch f.SampleBits {
	case 8, 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w: %d-bit integer", ErrUnsupportedFormat, f.SampleBits)
}

// FrameSize returns the size of one frame in bytes.
func (f AudioFormat) FrameSize() int {
	return f.Channels * (f.SampleBits + 7) / 8
}

func (f AudioFormat) byteOrder() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Encode appends the samples in src, clamped to [-1, 1] for integer
// formats, to dst in the format f and returns the extended slice.
func (f AudioFormat) Encode(dst []byte, src []float32) []byte {
	order := f.byteOrder()
	var b [8]byte
	for _, v := range src {
		switch {
		case f.Float && f.SampleBits == 64:
			order.PutUint64(b[:], math.Float64bits(float64(v)))
			dst = append(dst, b[:8]...)
		case f.Float:
			order.PutUint32(b[:], math.Float32bits(v))
			dst = append(dst, b[:4]...)
		default:
			dst = f.appendInt(dst, order, v)
		}
	}
	return dst
}

func (f AudioFormat) appendInt(dst []byte, order binary.ByteOrder, v float32) []byte {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	switch f.SampleBits {
	case 8:
		x := int8(v * math.MaxInt8)
		if f.Unsigned {
			return append(dst, byte(int(x)+128))
		}
		return append(dst, byte(x))
	case 16:
		x := uint16(int16(v * math.MaxInt16))
		if f.Unsigned {
			x ^= 0x8000
		}
		var b [2]byte
		order.PutUint16(b[:], x)
		return append(dst, b[:]...)
	case 24:
		x := uint32(int32(v*8388607)) & 0xFFFFFF
		if f.Unsigned {
			x ^= 0x800000
		}
		if f.BigEndian {
			return append(dst, byte(x>>16), byte(x>>8), byte(x))
		}
		return append(dst, byte(x), byte(x>>8), byte(x>>16))
	default:
		x := uint32(int32(float64(v) * math.MaxInt32))
		if f.Unsigned {
			x ^= 0x80000000
		}
		var b [4]byte
		order.PutUint32(b[:], x)
		return append(dst, b[:]...)
	}
}
