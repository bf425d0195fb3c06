// Package oscvoice is the built-in voice of gmsynth: a few naive waveform
// oscillators per performer, a state variable low pass filter, an amplitude
// envelope and a vibrato LFO, modulated by the General MIDI controllers and
// the connection blocks of the performer.
package oscvoice

import (
	"math"

	"github.com/vsariola/gmsynth"
)

type (
	// Voice implements gmsynth.Voice.
	Voice struct {
		sampleRate   float64
		periodFrames int
		periodSecs   float64

		active    bool
		performer *gmsynth.Performer
		conns     []gmsynth.ConnectionBlock
		tuning    *gmsynth.Tuning
		note      int
		velocity  int
		delay     int

		// key is the sounding key, which lags note while gliding
		key       float64
		glideRate float64 // keys per control period, 0 means no glide

		state gmsynth.ChannelState

		oscs      []oscillator
		env       envelope
		lfoPhase  float64 // vibrato, in cycles
		cdsPhase  float64 // modulation LFO, in cycles
		lfoTime   float64
		filter    filter
		randSeed  uint32
		muted     bool
		frameGain [2]float32 // envelope level at the start and end of the period

		// derived each control period
		freqs                  []float64
		gainL, gainR           float32
		reverbSend, chorusSend float32
		cutoff                 float32
		damping                float32
	}

	oscillator struct {
		waveform string
		phase    float64
	}

	// filter is the state of a state variable filter
	filter struct {
		low, band float32
	}
)

const (
	cdsLFORate     = 5.0  // Hz
	modWheelDepth  = 50.0 // cents of vibrato at full modulation wheel
	soundOffTime   = 0.005
	minFilterCents = 1200.0
)

// New returns a Voice. It can be used as a gmsynth.VoiceFactory.
func New(format gmsynth.AudioFormat, periodFrames int) gmsynth.Voice {
	return &Voice{
		sampleRate:   format.SampleRate,
		periodFrames: periodFrames,
		periodSecs:   float64(periodFrames) / format.SampleRate,
		randSeed:     1,
	}
}

func (v *Voice) Activate(a *gmsynth.Activation) {
	v.active = true
	v.performer = a.Performer
	v.conns = a.Connections
	v.tuning = a.Tuning
	v.note = a.Note
	v.velocity = a.Velocity
	v.delay = min(max(a.Delay, 0), v.periodFrames)
	v.state = a.State
	v.key = float64(a.Note)
	v.glideRate = 0
	if a.GlideFrom >= 0 && a.PortamentoTime > 0 {
		v.key = float64(a.GlideFrom)
		v.glideRate = a.PortamentoTime
	}
	v.oscs = v.oscs[:0]
	for _, o := range a.Performer.Oscillators {
		v.oscs = append(v.oscs, oscillator{waveform: o.Waveform})
	}
	v.freqs = make([]float64, len(v.oscs))
	v.env = envelope{params: a.Performer.Envelope}
	v.lfoPhase, v.cdsPhase, v.lfoTime = 0, 0, 0
	v.filter = filter{}
	v.frameGain = [2]float32{}
}

func (v *Voice) NoteOff(velocity int) {
	v.env.release(0)
}

func (v *Voice) SoundOff() {
	v.env.release(soundOffTime)
}

func (v *Voice) Shutdown() {
	v.env.release(v.periodSecs)
}

func (v *Voice) SetNote(note int, glide bool) {
	v.note = note
	if !glide {
		v.key = float64(note)
	} else if v.glideRate == 0 {
		v.glideRate = portamentoFallback
	}
}

// portamentoFallback is used when a voice is told to glide without a
// portamento time, e.g. a CC84 glide on a channel with portamento off.
const portamentoFallback = 0.5

func (v *Voice) SetMute(mute bool) { v.state.Mute = mute }
func (v *Voice) SetSoloMute(mute bool) { v.state.SoloMute = mute }
func (v *Voice) SetPitchBend(bend int) { v.state.PitchBend = bend }
func (v *Voice) SetChannelPressure(pressure int) { v.state.ChannelPressure = pressure }
func (v *Voice) SetPolyPressure(pressure int) { v.state.PolyPressure = pressure }
func (v *Voice) ControlChange(controller, value int) { v.state.Controllers[controller&127] = value }
func (v *Voice) NRPNChange(param, value int) {}
func (v *Voice) UpdateTuning(t *gmsynth.Tuning) { v.tuning = t }

func (v *Voice) RPNChange(param, value int) {
	if param >= 0 && param < len(v.state.RPN) {
		v.state.RPN[param] = value
	}
}

func (v *Voice) StepControl(masterTuning float64) bool {
	if !v.active {
		return false
	}
	if v.glideRate > 0 {
		target := float64(v.note)
		if d := target - v.key; math.Abs(d) <= v.glideRate {
			v.key = target
			v.glideRate = 0
		} else if d > 0 {
			v.key += v.glideRate
		} else {
			v.key -= v.glideRate
		}
	}
	v.frameGain[0] = v.frameGain[1]
	level, done := v.env.step(v.periodSecs)
	if done {
		v.active = false
		return false
	}
	v.lfoTime += v.periodSecs
	v.lfoPhase = math.Mod(v.lfoPhase+v.performer.Vibrato.Rate*v.periodSecs, 1)
	v.cdsPhase = math.Mod(v.cdsPhase+cdsLFORate*v.periodSecs, 1)
	v.update(masterTuning, level)
	return true
}

// update computes the pitch, gain, filter and send levels of the coming
// period from the channel state and the connection blocks.
func (v *Voice) update(masterTuning float64, level float64) {
	st := &v.state
	var mod [7]float64
	for _, c := range v.performer.Connections {
		mod[c.Destination] += v.source(c.Source) * v.control(c.Control) * c.Scale
	}
	for _, c := range v.conns {
		mod[c.Destination] += v.source(c.Source) * v.control(c.Control) * c.Scale
	}

	// pitch, in cents
	bendRange := float64(st.RPN[0]>>7)*100 + float64(st.RPN[0]&127)
	fine := (float64(st.RPN[1]) - 8192) / 8192 * 100
	coarse := float64(st.RPN[2]>>7-64) * 100
	vibrato := 0.0
	if v.lfoTime >= v.performer.Vibrato.Delay {
		depth := v.performer.Vibrato.Depth + modWheelDepth*float64(st.Controllers[1])/127
		vibrato = math.Sin(2*math.Pi*v.lfoPhase) * depth
	}
	common := float64(st.PitchBend-8192)/8192*bendRange + fine + coarse + masterTuning + vibrato + mod[gmsynth.DestinationPitch]
	for i, o := range v.performer.Oscillators {
		var cents float64
		if o.FixedKey != 0 {
			cents = float64(o.FixedKey) * 100
		} else {
			cents = v.tunedCents(v.key) + common
		}
		cents += o.Transpose*100 + o.Detune
		v.freqs[i] = 440 * math.Exp2((cents-6900)/1200)
	}

	// gain
	vol := float64(st.Controllers[7]) / 127
	expr := float64(st.Controllers[11]) / 127
	vel := float64(v.velocity) / 127
	gain := level * vol * vol * expr * expr * vel * vel * math.Pow(10, v.performer.Gain/20)
	gain *= max(1+mod[gmsynth.DestinationGain], 0)
	if n := len(v.oscs); n > 1 {
		gain /= math.Sqrt(float64(n))
	}
	v.muted = st.Mute || st.SoloMute
	if v.muted {
		gain = 0
	}
	v.frameGain[1] = float32(gain)

	pan := min(max(v.performer.Pan+float64(st.Controllers[10]-64)/64+mod[gmsynth.DestinationPan], -1), 1)
	a := (pan + 1) * math.Pi / 4
	v.gainL, v.gainR = float32(math.Cos(a)), float32(math.Sin(a))
	v.reverbSend = float32(min(max(float64(st.Controllers[91])/127+mod[gmsynth.DestinationReverbSend], 0), 1))
	v.chorusSend = float32(min(max(float64(st.Controllers[93])/127+mod[gmsynth.DestinationChorusSend], 0), 1))

	// filter, cutoff shifted by brightness (CC74)
	v.cutoff = 0
	if fc := v.performer.Filter.Cutoff; fc > 0 {
		cents := 1200*math.Log2(fc) + float64(st.Controllers[74]-64)*9600/127 + mod[gmsynth.DestinationFilterCutoff]
		cents = max(cents, minFilterCents)
		hz := min(math.Exp2(cents/1200), v.sampleRate/6)
		v.cutoff = float32(2 * math.Sin(math.Pi*hz/v.sampleRate))
		v.damping = float32(1 - min(max(v.performer.Filter.Resonance, 0), 0.95))
	}
}

// tunedCents interpolates the tuning between the keys around key.
func (v *Voice) tunedCents(key float64) float64 {
	k := min(max(key, 0), 127)
	lo := int(k)
	if v.tuning == nil {
		return k * 100
	}
	if lo >= 127 {
		return v.tuning.Cents[127]
	}
	f := k - float64(lo)
	return v.tuning.Cents[lo]*(1-f) + v.tuning.Cents[lo+1]*f
}

// source returns the normalized value of a modulation source.
func (v *Voice) source(s gmsynth.Source) float64 {
	st := &v.state
	switch s.Kind {
	case gmsynth.SourceKey:
		return float64(v.note) / 127
	case gmsynth.SourceVelocity:
		return float64(v.velocity) / 127
	case gmsynth.SourcePitchBend:
		return float64(st.PitchBend-8192) / 8192
	case gmsynth.SourceChannelPressure:
		return float64(st.ChannelPressure) / 127
	case gmsynth.SourcePolyPressure:
		return float64(st.PolyPressure) / 127
	case gmsynth.SourceController:
		return float64(st.Controllers[s.Index&127]) / 127
	case gmsynth.SourceLFO:
		return math.Sin(2 * math.Pi * v.cdsPhase)
	case gmsynth.SourceVibrato:
		return math.Sin(2 * math.Pi * v.lfoPhase)
	}
	return 0
}

func (v *Voice) control(s gmsynth.Source) float64 {
	if s.Kind == gmsynth.SourceNone {
		return 1
	}
	return v.source(s)
}

func (v *Voice) RenderAudio(b *gmsynth.Buses) {
	if !v.active || (v.muted && v.frameGain[0] == 0) {
		v.delay = 0
		return
	}
	start := v.delay
	v.delay = 0
	n := b.Live[gmsynth.BusLeft].Len()
	if start >= n {
		return
	}
	left := b.Live[gmsynth.BusLeft].Data()
	right := b.Live[gmsynth.BusRight].Data()
	var rev, cho []float32
	if v.reverbSend > 0 {
		rev = b.Live[gmsynth.BusReverb].Data()
	}
	if v.chorusSend > 0 {
		cho = b.Live[gmsynth.BusChorus].Data()
	}
	amp := v.frameGain[0]
	delta := (v.frameGain[1] - amp) / float32(n-start)
	for i := start; i < n; i++ {
		var s float32
		for j := range v.oscs {
			s += v.oscs[j].next(v.freqs[j]/v.sampleRate, v)
		}
		if v.cutoff > 0 {
			v.filter.low += v.cutoff * v.filter.band
			high := s - v.filter.low - v.damping*v.filter.band
			v.filter.band += v.cutoff * high
			s = v.filter.low
		}
		amp += delta
		s *= amp
		left[i] += s * v.gainL
		right[i] += s * v.gainR
		if rev != nil {
			rev[i] += s * v.reverbSend
		}
		if cho != nil {
			cho[i] += s * v.chorusSend
		}
	}
}

func (o *oscillator) next(omega float64, v *Voice) float32 {
	o.phase += omega
	o.phase -= math.Floor(o.phase)
	p := float32(o.phase)
	switch o.waveform {
	case "saw":
		return p*2 - 1
	case "square":
		if p < 0.5 {
			return 1
		}
		return -1
	case "triangle":
		if p >= 0.5 {
			p = 1 - p
		}
		return p*4 - 1
	case "noise":
		v.randSeed *= 16007
		return float32(int32(v.randSeed)) / -2147483648.0
	}
	return float32(math.Sin(2 * math.Pi * o.phase))
}
