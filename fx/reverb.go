package fx

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/gmsynth"
)

type (
	// Reverb is a stereo comb and allpass network, fed from a mono send bus
	// and mixed into the left and right buses. The room is selected with
	// the GM2 reverb type and time global parameters.
	Reverb struct {
		in, left, right *gmsynth.Bus

		sampleRate float64
		combs      [2][8]comb
		allpasses  [2][4]allpass
		predelay   delayLine

		roomSize, damp, predelaySecs, gain float64
		dirty                              bool

		tmpIn, tmpL, tmpR []float32
		tail              tail
	}

	comb struct {
		buffer      []float32
		pos         int
		filterStore float32
		feedback    float32
		damp1       float32
		damp2       float32
	}

	allpass struct {
		buffer []float32
		pos    int
	}

	delayLine struct {
		buffer []float32
		pos    int
		delay  int
	}
)

// Freeverb tunings at 44.1 kHz; the right channel is spread by
// stereoSpread samples.
var (
	combTunings    = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTunings = [4]int{556, 441, 341, 225}
)

const (
	stereoSpread = 23
	maxPredelay  = 0.1 // seconds
	reverbScale  = 0.015
)

// reverbPresets hold (room size, damping frequency in Hz, predelay in seconds,
// gain) for each GM2 reverb type.
var reverbPresets = map[int64][4]float64{
	0: {1.1, 5000, 0, 4},       // small room
	1: {1.3, 5000, 0, 3},       // medium room
	2: {1.5, 5000, 0, 2},       // large room
	3: {1.8, 24000, 0.02, 1.5}, // medium hall
	4: {1.8, 24000, 0.03, 1.5}, // large hall
	8: {1.3, 2500, 0, 6},       // plate
}

func NewReverb(sampleRate float64, in, left, right *gmsynth.Bus) *Reverb {
	r := &Reverb{in: in, left: left, right: right, sampleRate: sampleRate}
	scale := sampleRate / 44100
	for c := 0; c < 2; c++ {
		spread := c * stereoSpread
		for i, t := range combTunings {
			r.combs[c][i].buffer = make([]float32, int(float64(t+spread)*scale))
		}
		for i, t := range allpassTunings {
			r.allpasses[c][i].buffer = make([]float32, int(float64(t+spread)*scale))
		}
	}
	r.predelay.buffer = make([]float32, int(maxPredelay*sampleRate)+1)
	r.tail.hold = len(r.predelay.buffer) + len(r.combs[1][7].buffer)
	for _, a := range r.allpasses[1] {
		r.tail.hold += len(a.buffer)
	}
	n := in.Len()
	r.tmpIn, r.tmpL, r.tmpR = make([]float32, n), make([]float32, n), make([]float32, n)
	r.GlobalParameterControlChange([]int{SlotReverb}, 0, 4)
	r.ProcessControl()
	return r
}

func (r *Reverb) GlobalParameterControlChange(slotPath []int, param, value int64) {
	if len(slotPath) != 1 || slotPath[0] != SlotReverb {
		return
	}
	switch param {
	case 0:
		if p, ok := reverbPresets[value]; ok {
			r.roomSize, r.damp, r.predelaySecs, r.gain = p[0], p[1], p[2], p[3]
			r.dirty = true
		}
	case 1:
		r.roomSize = math.Exp(float64(value-40) * 0.025)
		r.dirty = true
	}
}

func (r *Reverb) ProcessControl() {
	if !r.dirty {
		return
	}
	r.dirty = false
	feedback := float32(1 - 0.17/r.roomSize)
	x := r.damp / r.sampleRate * 2 * math.Pi
	cx := 2 - math.Cos(x)
	damp := float32(min(max(cx-math.Sqrt(cx*cx-1), 0), 1))
	for c := range r.combs {
		for i := range r.combs[c] {
			r.combs[c][i].feedback = feedback
			r.combs[c][i].damp1 = damp
			r.combs[c][i].damp2 = 1 - damp
		}
	}
	r.predelay.delay = int(r.predelaySecs * r.sampleRate)
}

func (r *Reverb) ProcessAudio() {
	if r.tail.update(r.in) {
		return
	}
	copy(r.tmpIn, r.in.Peek())
	if r.in.Silent() {
		clear(r.tmpIn)
	}
	vek32.MulNumber_Inplace(r.tmpIn, float32(reverbScale*r.gain))
	for i, v := range r.tmpIn {
		r.tmpIn[i] = r.predelay.process(v)
	}
	r.render(0, r.tmpL)
	r.render(1, r.tmpR)
	if r.tail.decayed(r.in, r.tmpL, r.tmpR) {
		return
	}
	vek32.Add_Inplace(r.left.Data(), r.tmpL)
	vek32.Add_Inplace(r.right.Data(), r.tmpR)
}

func (r *Reverb) render(channel int, out []float32) {
	clear(out)
	for i := range r.combs[channel] {
		c := &r.combs[channel][i]
		for j, v := range r.tmpIn {
			out[j] += c.process(v)
		}
	}
	for i := range r.allpasses[channel] {
		a := &r.allpasses[channel][i]
		for j, v := range out {
			out[j] = a.process(v)
		}
	}
}

func (c *comb) process(input float32) float32 {
	output := c.buffer[c.pos]
	c.filterStore = output*c.damp2 + c.filterStore*c.damp1
	c.buffer[c.pos] = input + c.filterStore*c.feedback
	if c.pos++; c.pos >= len(c.buffer) {
		c.pos = 0
	}
	return output
}

func (a *allpass) process(input float32) float32 {
	bufout := a.buffer[a.pos]
	a.buffer[a.pos] = input + bufout*0.5
	if a.pos++; a.pos >= len(a.buffer) {
		a.pos = 0
	}
	return bufout - input
}

func (d *delayLine) process(input float32) float32 {
	if d.delay <= 0 {
		return input
	}
	d.buffer[d.pos] = input
	read := d.pos - d.delay
	if read < 0 {
		read += len(d.buffer)
	}
	if d.pos++; d.pos >= len(d.buffer) {
		d.pos = 0
	}
	return d.buffer[read]
}
