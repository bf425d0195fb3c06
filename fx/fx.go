// Package fx implements the master effects of the synthesizer: the reverb
// and chorus send/return buses and the output limiter. All effects are
// stepped once per control period, first ProcessControl and then
// ProcessAudio, by the owner of the buses they are bound to.
package fx

import (
	"github.com/viterin/vek/vek32"
	"github.com/vsariola/gmsynth"
)

type (
	// Effect is a master effect, bound to the buses it reads and writes.
	Effect interface {
		// ProcessControl applies parameter changes made since the previous
		// control period.
		ProcessControl()
		// ProcessAudio processes one control period of audio.
		ProcessAudio()
		// GlobalParameterControlChange applies a GM2 global parameter
		// control change, addressed by its slot path.
		GlobalParameterControlChange(slotPath []int, param, value int64)
	}

	// tail tracks if an effect still rings after its input fell silent. The
	// effect is silent once its output has stayed below the threshold for
	// hold samples, the longest time a sample can circulate inside it.
	tail struct {
		hold   int
		quiet  int
		silent bool
		tmp    []float32
	}
)

// Slot paths of the GM2 global parameter control, MSB*128 + LSB.
const (
	SlotReverb = 0x01*128 + 0x01
	SlotChorus = 0x01*128 + 0x02
)

// silenceThreshold is the peak level below which a ringing effect is
// considered to have decayed.
const silenceThreshold = 1e-6

// update reports if the effect can skip processing this block.
func (t *tail) update(input *gmsynth.Bus) bool {
	if !input.Silent() {
		t.silent = false
		t.quiet = 0
	}
	return t.silent
}

// decayed is called with the output of each processed block. It reports
// true, and the output should be dropped, once the input is silent and the
// output has decayed below the silence threshold.
func (t *tail) decayed(input *gmsynth.Bus, outs ...[]float32) bool {
	if !input.Silent() {
		return false
	}
	for _, o := range outs {
		if peak(o, &t.tmp) > silenceThreshold {
			t.quiet = 0
			return false
		}
	}
	if t.quiet += len(outs[0]); t.quiet < t.hold {
		return false
	}
	t.silent = true
	return true
}

// peak returns the largest absolute value in x, using tmp as scratch.
func peak(x []float32, tmp *[]float32) float32 {
	if len(x) == 0 {
		return 0
	}
	if cap(*tmp) < len(x) {
		*tmp = make([]float32, len(x))
	}
	t := (*tmp)[:len(x)]
	copy(t, x)
	vek32.Abs_Inplace(t)
	return vek32.Max(t)
}
