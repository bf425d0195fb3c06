package gmsynth

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Wav encodes interleaved samples as a .wav file of the given format. Only
// little endian formats can be stored in a .wav file; 8-bit integers are
// stored unsigned and wider ones signed, whatever the format says.
func Wav(buffer []float32, format AudioFormat) ([]byte, error) {
	format.BigEndian = false
	format.Unsigned = format.SampleBits == 8 && !format.Float
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	buf := new(bytes.Buffer)
	wavHeader(len(buffer), format, buf)
	buf.Write(format.Encode(make([]byte, 0, len(buffer)*format.SampleBits/8), buffer))
	return buf.Bytes(), nil
}

// Raw encodes interleaved samples without any header.
func Raw(buffer []float32, format AudioFormat) ([]byte, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return format.Encode(make([]byte, 0, len(buffer)*format.SampleBits/8), buffer), nil
}

// wavHeader writes a wave header into the bytes.Buffer. bufferLength is the
// number of samples, counting every channel.
func wavHeader(bufferLength int, format AudioFormat, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	numChannels := format.Channels
	sampleRate := int(format.SampleRate)
	bytesPerSample := format.SampleBits / 8
	var chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if format.Float {
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	} else {
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))                        // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength/numChannels)) // sample length
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}
