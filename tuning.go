package gmsynth

import (
	"errors"
	"math"
	"strings"
)

// Tuning maps each of the 128 MIDI keys to a pitch in cents, where key n
// in equal temperament is n*100. Tunings are identified by bank and program,
// and are loaded from MIDI Tuning Standard SysEx messages.
type Tuning struct {
	Bank    int
	Program int
	Name    string
	Cents   [128]float64
}

var ErrTuningMessage = errors.New("malformed tuning message")

// NewTuning returns an equal temperament tuning.
func NewTuning(bank, program int) *Tuning {
	t := &Tuning{Bank: bank, Program: program}
	t.Reset()
	return t
}

// Reset restores equal temperament.
func (t *Tuning) Reset() {
	for i := range t.Cents {
		t.Cents[i] = float64(i * 100)
	}
}

// Key returns the equal tempered key nearest to the tuned pitch of note.
func (t *Tuning) Key(note int) int {
	if t == nil {
		return note
	}
	return int(math.Round(t.Cents[note&127] / 100))
}

// Load applies a MIDI Tuning Standard message to the tuning. The data must
// be the complete SysEx message, including the leading 0xF0 and trailing
// 0xF7. Messages that are not tuning messages are ignored; key-based and
// scale/octave dumps with a bad checksum are ignored too.
func (t *Tuning) Load(data []byte) error {
	if len(data) < 6 || data[3] != 0x08 {
		return nil
	}
	realtime := data[1] == 0x7F
	if !realtime && data[1] != 0x7E {
		return nil
	}
	switch data[4] {
	case 0x01: // bulk tuning dump
		if realtime {
			return nil
		}
		if len(data) < 22+128*3 {
			return ErrTuningMessage
		}
		t.Name = dumpName(data[6:22])
		t.loadBulk(data[22:])
	case 0x02: // single note tuning change
		if !realtime {
			return nil
		}
		return t.loadNotes(data, 6)
	case 0x04: // key-based tuning dump
		if realtime {
			return nil
		}
		if len(data) < 23+128*3 {
			return ErrTuningMessage
		}
		if !checksumOK(data) {
			return nil
		}
		t.Name = dumpName(data[7:23])
		t.loadBulk(data[23:])
	case 0x05: // scale/octave tuning dump, 1 byte format
		if realtime {
			return nil
		}
		if len(data) < 23+12 {
			return ErrTuningMessage
		}
		if !checksumOK(data) {
			return nil
		}
		t.Name = dumpName(data[7:23])
		t.loadOctave1(data[23:])
	case 0x06: // scale/octave tuning dump, 2 byte format
		if realtime {
			return nil
		}
		if len(data) < 23+24 {
			return ErrTuningMessage
		}
		if !checksumOK(data) {
			return nil
		}
		t.Name = dumpName(data[7:23])
		t.loadOctave2(data[23:])
	case 0x07: // single note tuning change, bank
		return t.loadNotes(data, 7)
	case 0x08: // scale/octave tuning, 1 byte form
		if len(data) < 8+12 {
			return ErrTuningMessage
		}
		t.loadOctave1(data[8:])
	case 0x09: // scale/octave tuning, 2 byte form
		if len(data) < 8+24 {
			return ErrTuningMessage
		}
		t.loadOctave2(data[8:])
	}
	return nil
}

func (t *Tuning) loadBulk(d []byte) {
	for i := range t.Cents {
		xx, yy, zz := int(d[i*3]), int(d[i*3+1]), int(d[i*3+2])
		if xx == 127 && yy == 127 && zz == 127 {
			continue
		}
		t.Cents[i] = cents(xx, yy, zz)
	}
}

// loadNotes loads a list of (key, xx, yy, zz) entries, whose count is at
// data[countAt].
func (t *Tuning) loadNotes(data []byte, countAt int) error {
	if len(data) <= countAt {
		return ErrTuningMessage
	}
	n := int(data[countAt])
	d := data[countAt+1:]
	if len(d) < n*4 {
		return ErrTuningMessage
	}
	for i := 0; i < n; i++ {
		kk, xx, yy, zz := int(d[i*4]), int(d[i*4+1]), int(d[i*4+2]), int(d[i*4+3])
		if xx == 127 && yy == 127 && zz == 127 {
			continue
		}
		t.Cents[kk&127] = cents(xx, yy, zz)
	}
	return nil
}

func (t *Tuning) loadOctave1(d []byte) {
	var octave [12]float64
	for i := range octave {
		octave[i] = float64(int(d[i]) - 64)
	}
	t.applyOctave(octave)
}

func (t *Tuning) loadOctave2(d []byte) {
	var octave [12]float64
	for i := range octave {
		v := int(d[i*2])*128 + int(d[i*2+1])
		octave[i] = (float64(v)/8192 - 1) * 100
	}
	t.applyOctave(octave)
}

func (t *Tuning) applyOctave(octave [12]float64) {
	for i := range t.Cents {
		t.Cents[i] = float64(i*100) + octave[i%12]
	}
}

// TuningChannelMask returns the channel mask of a scale/octave tuning
// message (sub ids 0x08 and 0x09), with bit n set when channel n should
// apply the tuning.
func TuningChannelMask(data []byte) (int, bool) {
	if len(data) < 8 {
		return 0, false
	}
	return int(data[5])*16384 + int(data[6])*128 + int(data[7]), true
}

func cents(xx, yy, zz int) float64 {
	return 100 * float64(xx*16384+yy*128+zz) / 16384
}

func dumpName(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}

func checksumOK(data []byte) bool {
	x := int(data[1])
	for i := 2; i < len(data)-2; i++ {
		x ^= int(data[i])
	}
	return int(data[len(data)-2]) == x&127
}
