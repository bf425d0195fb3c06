package gmsynth_test

import (
	"math"
	"testing"

	"github.com/vsariola/gmsynth"
)

func TestTuningDefaultIsEqualTemperament(t *testing.T) {
	tu := gmsynth.NewTuning(0, 0)
	for i, c := range tu.Cents {
		if c != float64(i*100) {
			t.Fatalf("key %d: got %v cents, expected %v", i, c, i*100)
		}
		if tu.Key(i) != i {
			t.Fatalf("key %d maps to %d", i, tu.Key(i))
		}
	}
}

func TestTuningSingleNoteChange(t *testing.T) {
	// F0 7F <dev> 08 02 <program> <count> [kk xx yy zz]... F7
	msg := []byte{0xF0, 0x7F, 0x7F, 0x08, 0x02, 0x00, 0x02,
		60, 61, 0, 0, // key 60 -> exactly 6100 cents
		61, 127, 127, 127, // no change
		0xF7}
	tu := gmsynth.NewTuning(0, 0)
	if err := tu.Load(msg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tu.Cents[60] != 6100 {
		t.Errorf("key 60: got %v cents, expected 6100", tu.Cents[60])
	}
	if tu.Key(60) != 61 {
		t.Errorf("key 60 should now play key 61, got %d", tu.Key(60))
	}
	if tu.Cents[61] != 6100 {
		t.Errorf("key 61 should be unchanged, got %v", tu.Cents[61])
	}
}

func TestTuningOctaveTwoByte(t *testing.T) {
	msg := []byte{0xF0, 0x7E, 0x7F, 0x08, 0x09, 0x03, 0x7F, 0x7F}
	for i := 0; i < 12; i++ {
		// 0x40 0x00 is 8192, i.e. no change; 0x60 0x00 is 12288, +50 cents
		if i == 4 {
			msg = append(msg, 0x60, 0x00)
		} else {
			msg = append(msg, 0x40, 0x00)
		}
	}
	msg = append(msg, 0xF7)
	tu := gmsynth.NewTuning(0, 0)
	if err := tu.Load(msg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if math.Abs(tu.Cents[64]-6450) > 1e-9 {
		t.Errorf("key 64: got %v cents, expected 6450", tu.Cents[64])
	}
	if tu.Cents[65] != 6500 {
		t.Errorf("key 65: got %v cents, expected 6500", tu.Cents[65])
	}
	mask, ok := gmsynth.TuningChannelMask(msg)
	if !ok || mask != 3*16384+127*128+127 {
		t.Errorf("unexpected channel mask %v", mask)
	}
}

func TestTuningChecksum(t *testing.T) {
	msg := make([]byte, 0, 37)
	msg = append(msg, 0xF0, 0x7E, 0x10, 0x08, 0x05, 0x00, 0x00)
	msg = append(msg, []byte("Detuned         ")...)
	for i := 0; i < 12; i++ {
		msg = append(msg, 64+10) // +10 cents everywhere
	}
	x := int(msg[1])
	for _, b := range msg[2:] {
		x ^= int(b)
	}
	good := append(append([]byte{}, msg...), byte(x&127), 0xF7)
	bad := append(append([]byte{}, msg...), byte((x+1)&127), 0xF7)

	tu := gmsynth.NewTuning(0, 0)
	if err := tu.Load(bad); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tu.Cents[60] != 6000 {
		t.Errorf("bad checksum should be ignored, key 60 is %v cents", tu.Cents[60])
	}
	if err := tu.Load(good); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tu.Cents[60] != 6010 {
		t.Errorf("key 60: got %v cents, expected 6010", tu.Cents[60])
	}
	if tu.Name != "Detuned" {
		t.Errorf("got name %q", tu.Name)
	}
}

func TestTuningTruncatedMessage(t *testing.T) {
	tu := gmsynth.NewTuning(0, 0)
	if err := tu.Load([]byte{0xF0, 0x7E, 0x7F, 0x08, 0x01, 0x00, 0xF7}); err == nil {
		t.Fatal("expected an error for a truncated bulk dump")
	}
	if err := tu.Load([]byte{0xF0, 0x7F, 0x7F, 0x08, 0x02, 0x00, 0x05, 60, 61, 0xF7}); err == nil {
		t.Fatal("expected an error for a truncated note list")
	}
}
