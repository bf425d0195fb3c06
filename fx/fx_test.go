package fx_test

import (
	"math"
	"testing"

	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/fx"
)

const blockLen = 300

func TestLimiterKeepsPeakBelowCeiling(t *testing.T) {
	left, right := gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen)
	l := fx.NewLimiter(left, right)
	for block := 0; block < 3; block++ {
		for i, x := 0, left.Data(); i < len(x); i++ {
			x[i] = 4 * float32(math.Sin(float64(i)*0.1))
		}
		copy(right.Data(), left.Peek())
		l.ProcessControl()
		l.ProcessAudio()
		for i, v := range left.Peek() {
			if math.Abs(float64(v)) > 1 {
				t.Fatalf("block %d sample %d: %v exceeds full scale", block, i, v)
			}
		}
	}
	if g := l.Gain(); g > 0.25 {
		t.Errorf("gain %v should be at most 0.25", g)
	}
}

func TestLimiterRecovers(t *testing.T) {
	left := gmsynth.NewBus(blockLen)
	l := fx.NewLimiter(left, nil)
	left.Data()[0] = 2
	l.ProcessAudio()
	low := l.Gain()
	for block := 0; block < 200; block++ {
		left.Clear()
		left.Data()[0] = 0.5
		l.ProcessAudio()
	}
	if l.Gain() <= low || l.Gain() < 0.99 {
		t.Errorf("gain should recover towards 1 (was %v, now %v)", low, l.Gain())
	}
}

func TestLimiterLeavesQuietSignal(t *testing.T) {
	left := gmsynth.NewBus(blockLen)
	l := fx.NewLimiter(left, nil)
	left.Data()[10] = 0.5
	l.ProcessAudio()
	if got := left.Peek()[10]; got != 0.5 {
		t.Errorf("got %v, expected 0.5", got)
	}
}

func TestReverbRingsAndDecays(t *testing.T) {
	in, left, right := gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen)
	r := fx.NewReverb(44100, in, left, right)
	in.Data()[0] = 1
	ringing := false
	for block := 0; block < 20; block++ {
		left.Clear()
		right.Clear()
		r.ProcessControl()
		r.ProcessAudio()
		in.Clear()
		if !left.Silent() {
			ringing = true
		}
	}
	if !ringing {
		t.Fatal("reverb produced no output for an impulse")
	}
	// a small room should have decayed completely within a minute
	r.GlobalParameterControlChange([]int{fx.SlotReverb}, 0, 0)
	for block := 0; block < 147*60; block++ {
		left.Clear()
		right.Clear()
		r.ProcessControl()
		r.ProcessAudio()
	}
	if !left.Silent() || !right.Silent() {
		t.Error("reverb tail should have decayed to silence")
	}
}

func TestChorusSendsToReverb(t *testing.T) {
	in, left, right, rev := gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen)
	c := fx.NewChorus(44100, in, left, right, rev)
	c.GlobalParameterControlChange([]int{fx.SlotChorus}, 4, 127)
	for block := 0; block < 4; block++ {
		x := in.Data()
		for i := range x {
			x[i] = 0.5
		}
		c.ProcessControl()
		c.ProcessAudio()
	}
	if left.Silent() || right.Silent() {
		t.Error("chorus produced no output")
	}
	if rev.Silent() {
		t.Error("chorus should feed the reverb send")
	}
}

func TestGlobalParameterIgnoresOtherSlots(t *testing.T) {
	in, left, right, rev := gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen), gmsynth.NewBus(blockLen)
	c := fx.NewChorus(44100, in, left, right, rev)
	c.GlobalParameterControlChange([]int{fx.SlotReverb}, 4, 127)
	for block := 0; block < 4; block++ {
		x := in.Data()
		for i := range x {
			x[i] = 0.5
		}
		c.ProcessAudio()
	}
	if !rev.Silent() {
		t.Error("reverb send should stay at its preset level 0")
	}
}
