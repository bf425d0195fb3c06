package fx

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/gmsynth"
)

type (
	// Chorus is a pair of LFO modulated delay lines, fed from a mono send bus
	// and mixed into the left and right buses. Part of the output is sent on
	// to the reverb.
	Chorus struct {
		in, left, right, reverb *gmsynth.Bus

		sampleRate float64
		lines      [2]modDelay

		rate, depth, feedback, reverbSend float64

		tmpL, tmpR []float32
		tail       tail
	}

	modDelay struct {
		buffer []float32
		pos    int
		phase  float64 // in radians
	}
)

const (
	chorusBaseDelay = 0.005 // seconds
	chorusMaxDelay  = 0.5
	chorusGain      = 0.5
)

// chorusPresets hold the (feedback, rate, depth, reverb send) parameter
// values of the GM2 chorus types.
var chorusPresets = [6][4]int64{
	{0, 3, 5, 0},   // chorus 1
	{5, 9, 19, 0},  // chorus 2
	{8, 3, 19, 0},  // chorus 3
	{16, 9, 16, 0}, // chorus 4
	{64, 2, 24, 0}, // feedback chorus
	{112, 1, 5, 0}, // flanger
}

func NewChorus(sampleRate float64, in, left, right, reverb *gmsynth.Bus) *Chorus {
	c := &Chorus{in: in, left: left, right: right, reverb: reverb, sampleRate: sampleRate}
	for i := range c.lines {
		c.lines[i].buffer = make([]float32, int(chorusMaxDelay*sampleRate)+2)
	}
	c.lines[1].phase = math.Pi / 2
	c.tail.hold = len(c.lines[0].buffer)
	n := in.Len()
	c.tmpL, c.tmpR = make([]float32, n), make([]float32, n)
	c.GlobalParameterControlChange([]int{SlotChorus}, 0, 2)
	return c
}

func (c *Chorus) GlobalParameterControlChange(slotPath []int, param, value int64) {
	if len(slotPath) != 1 || slotPath[0] != SlotChorus {
		return
	}
	switch param {
	case 0:
		if value >= 0 && value < int64(len(chorusPresets)) {
			p := chorusPresets[value]
			c.GlobalParameterControlChange(slotPath, 3, p[0])
			c.GlobalParameterControlChange(slotPath, 1, p[1])
			c.GlobalParameterControlChange(slotPath, 2, p[2])
			c.GlobalParameterControlChange(slotPath, 4, p[3])
		}
	case 1:
		c.rate = float64(value) * 0.122 // Hz
	case 2:
		c.depth = float64(value+1) * 3.2 / 1000 // seconds
	case 3:
		c.feedback = float64(value) * 0.00763
	case 4:
		c.reverbSend = float64(value) * 0.00787
	}
}

func (c *Chorus) ProcessControl() {}

func (c *Chorus) ProcessAudio() {
	if c.tail.update(c.in) {
		return
	}
	in := c.in.Peek()
	if c.in.Silent() {
		in = nil
	}
	c.lines[0].process(in, c.tmpL, c)
	c.lines[1].process(in, c.tmpR, c)
	if c.tail.decayed(c.in, c.tmpL, c.tmpR) {
		return
	}
	vek32.MulNumber_Inplace(c.tmpL, chorusGain)
	vek32.MulNumber_Inplace(c.tmpR, chorusGain)
	vek32.Add_Inplace(c.left.Data(), c.tmpL)
	vek32.Add_Inplace(c.right.Data(), c.tmpR)
	if c.reverbSend > 0 {
		r := c.reverb.Data()
		for i := range r {
			r[i] += (c.tmpL[i] + c.tmpR[i]) * 0.5 * float32(c.reverbSend)
		}
	}
}

// process runs the delay line over in, writing the delayed signal to out. A
// nil in is treated as silence.
func (d *modDelay) process(in, out []float32, c *Chorus) {
	step := 2 * math.Pi * c.rate / c.sampleRate
	n := float64(len(d.buffer))
	for i := range out {
		var x float32
		if in != nil {
			x = in[i]
		}
		delay := (chorusBaseDelay + c.depth*0.5*(1+math.Sin(d.phase))) * c.sampleRate
		delay = min(delay, n-2)
		r := float64(d.pos) - delay
		if r < 0 {
			r += n
		}
		i0 := int(r)
		frac := float32(r - float64(i0))
		i1 := i0 + 1
		if i1 >= len(d.buffer) {
			i1 = 0
		}
		y := d.buffer[i0]*(1-frac) + d.buffer[i1]*frac
		d.buffer[d.pos] = x + y*float32(c.feedback)
		if d.pos++; d.pos >= len(d.buffer) {
			d.pos = 0
		}
		out[i] = y
		if d.phase += step; d.phase > 2*math.Pi {
			d.phase -= 2 * math.Pi
		}
	}
}
