package engine

import (
	"math"
	"slices"
	"sort"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/fx"
)

type (
	// mixer is the control-rate pipeline state of the synthesizer. It is
	// only touched with the synthesizer lock held.
	mixer struct {
		buses   *gmsynth.Buses
		reverb  *fx.Reverb
		chorus  *fx.Chorus
		limiter *fx.Limiter
		effects []fx.Effect

		mixers []*channelMixer
		events []event // sorted by timestamp, in arrival order within one

		// master controls as 14-bit values
		volume, balance          int
		fineTuning, coarseTuning int
		lastVolume               [2]float64

		samplePos     int64 // frames rendered
		silentSamples int64 // frames skipped while silent
		silent        bool
		silentCount   int
		lastActivity  int64 // microseconds
		activeSensing bool

		out       []float32 // interleaved output of the latest period
		renderPos int       // samples of out consumed by Render
		encoded   []byte
		zero      []byte // an encoded silent period
		readBuf   []byte // encoded or zero, being consumed by Read
		readPos   int
	}

	// channelMixer is a registered channel mixer insert. Its voices render
	// into private left, right and mono buses; the sends go to the master
	// buses directly.
	channelMixer struct {
		mixer    gmsynth.ChannelMixer
		buses    *gmsynth.Buses
		stopping bool // its channel switched instrument
		removed  bool
	}

	event struct {
		timestamp int64 // microseconds
		msg       []byte
	}
)

const activeSensingTimeout = 1000000 // microseconds

func newMixer(s *Synthesizer) *mixer {
	n := s.periodFrames
	m := &mixer{
		buses:        gmsynth.NewBuses(n),
		volume:       16383,
		balance:      8192,
		fineTuning:   8192,
		coarseTuning: 8192,
		out:          make([]float32, n*s.format.Channels),
	}
	live := &m.buses.Live
	m.reverb = fx.NewReverb(s.format.SampleRate, live[gmsynth.BusReverb], live[gmsynth.BusLeft], live[gmsynth.BusRight])
	m.chorus = fx.NewChorus(s.format.SampleRate, live[gmsynth.BusChorus], live[gmsynth.BusLeft], live[gmsynth.BusRight], live[gmsynth.BusReverb])
	right := live[gmsynth.BusRight]
	if s.format.Channels == 1 {
		right = nil
	}
	m.limiter = fx.NewLimiter(live[gmsynth.BusLeft], right)
	m.effects = []fx.Effect{m.chorus, m.reverb, m.limiter}
	m.renderPos = len(m.out)
	m.zero = s.format.Encode(nil, make([]float32, len(m.out)))
	m.lastVolume[0], m.lastVolume[1] = m.volumes(s.format.Channels == 1)
	return m
}

// volumes returns the linear master volumes of the left and right
// outputs, from the master volume and balance.
func (m *mixer) volumes(mono bool) (left, right float64) {
	vol := float64(m.volume) / 16384
	bal := float64(m.balance) / 16384
	left, right = vol, vol
	if bal > 0.5 {
		left *= (1 - bal) * 2
	} else {
		right *= bal * 2
	}
	if mono {
		left = (left + right) / 2
		right = left
	}
	return
}

// masterTuning returns the master fine and coarse tuning in cents.
func (s *Synthesizer) masterTuning() float64 {
	m := s.mixer
	fine := float64(m.fineTuning-8192) / 8192 * 100
	coarse := float64(m.coarseTuning>>7-64) * 100
	return fine + coarse
}

// position returns the stream position in microseconds.
func (s *Synthesizer) position() int64 {
	m := s.mixer
	return int64(float64(m.samplePos+m.silentSamples) * 1e6 / s.format.SampleRate)
}

// activity wakes the mixer up from silence.
func (s *Synthesizer) activity() {
	m := s.mixer
	if m == nil {
		return
	}
	m.silent = false
	m.silentCount = 0
	m.lastActivity = s.position()
}

// schedule queues a message to be processed at timestamp. Messages with
// equal timestamps keep their order.
func (s *Synthesizer) schedule(timestamp int64, msg []byte) {
	m := s.mixer
	i := sort.Search(len(m.events), func(i int) bool { return m.events[i].timestamp > timestamp })
	m.events = slices.Insert(m.events, i, event{timestamp: timestamp, msg: msg})
}

func (s *Synthesizer) registerMixer(cm gmsynth.ChannelMixer) *channelMixer {
	m := s.mixer
	e := &channelMixer{mixer: cm, buses: gmsynth.NewBuses(s.periodFrames)}
	for _, b := range [...]int{gmsynth.BusReverb, gmsynth.BusChorus} {
		e.buses.Live[b] = m.buses.Live[b]
		e.buses.Delay[b] = m.buses.Delay[b]
	}
	m.mixers = append(m.mixers, e)
	return e
}

// stopMixer marks a channel mixer whose channel moved on to another
// instrument. It is stopped once its last voice has fallen silent.
func (s *Synthesizer) stopMixer(e *channelMixer) {
	e.stopping = true
}

// processEvents processes the queued events due in the control period
// starting at pos, each delayed to its frame within the period.
func (s *Synthesizer) processEvents(pos int64) {
	m := s.mixer
	end := pos + int64(float64(s.periodFrames)*1e6/s.format.SampleRate)
	n := 0
	for ; n < len(m.events) && m.events[n].timestamp < end; n++ {
		e := m.events[n]
		delay := int(math.Round(float64(e.timestamp-pos) * s.format.SampleRate / 1e6))
		s.processMessage(e.msg, min(max(delay, 0), s.periodFrames-1))
	}
	m.events = slices.Delete(m.events, 0, n)
}

// nextPeriod fills the output buffer with the next control period and
// reports whether the mixer was silent, in which case the buffer is left
// untouched and should be read as zeros.
func (s *Synthesizer) nextPeriod() (silent bool) {
	m := s.mixer
	if m.silent {
		m.silentSamples += int64(s.periodFrames)
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			s.logf("engine: control period dropped: %v", r)
			clear(m.out)
		}
	}()
	s.renderPeriod()
	return false
}

func (s *Synthesizer) renderPeriod() {
	m := s.mixer
	pos := s.position()
	m.samplePos += int64(s.periodFrames)
	s.processEvents(pos)
	if m.activeSensing && pos-m.lastActivity > activeSensingTimeout {
		m.activeSensing = false
		for _, c := range s.channels {
			c.allNotesOff()
		}
	}

	s.stepVoices()
	for _, e := range m.effects {
		e.ProcessControl()
	}

	swapBuses(m.buses, gmsynth.NumBuses)
	for _, e := range m.mixers {
		swapBuses(e.buses, gmsynth.BusMono+1)
	}

	left, right := m.buses.Live[gmsynth.BusLeft], m.buses.Live[gmsynth.BusRight]
	for i := 0; i < len(m.mixers); {
		e := m.mixers[i]
		active := false
		for j := range s.slots {
			if v := &s.slots[j]; v.active && v.mixer == e {
				v.voice.RenderAudio(e.buses)
				active = true
			}
		}
		foldMono(e.buses)
		keep := e.mixer.Process([3]*gmsynth.Bus{e.buses.Live[gmsynth.BusLeft], e.buses.Live[gmsynth.BusRight], e.buses.Live[gmsynth.BusMono]})
		addBus(left, e.buses.Live[gmsynth.BusLeft])
		addBus(right, e.buses.Live[gmsynth.BusRight])
		if !active && e.stopping {
			e.mixer.Stop()
			keep = false
		}
		if !keep {
			e.removed = true
			m.mixers = slices.Delete(m.mixers, i, i+1)
			continue
		}
		i++
	}
	for j := range s.slots {
		if v := &s.slots[j]; v.active && (v.mixer == nil || v.mixer.removed) {
			v.voice.RenderAudio(m.buses)
		}
	}
	foldMono(m.buses)

	if s.config.Chorus {
		m.chorus.ProcessAudio()
	}
	if s.config.Reverb {
		m.reverb.ProcessAudio()
	}

	mono := s.format.Channels == 1
	if mono && !right.Silent() {
		x := left.Data()
		vek32.Add_Inplace(x, right.Peek())
		vek32.MulNumber_Inplace(x, 0.5)
		right.Clear()
	}
	vl, vr := m.volumes(mono)
	applyGain(left, m.lastVolume[0], vl)
	applyGain(right, m.lastVolume[1], vr)
	m.lastVolume[0], m.lastVolume[1] = vl, vr

	if left.Silent() && right.Silent() {
		if len(m.events) == 0 {
			if m.silentCount++; m.silentCount > s.config.SilenceThreshold {
				m.silentCount = 0
				m.silent = true
			}
		}
	} else {
		m.silentCount = 0
	}

	if s.config.AGC {
		m.limiter.ProcessAudio()
	}

	if mono {
		copy(m.out, left.Peek())
		return
	}
	for i, l := range left.Peek() {
		m.out[2*i] = l
	}
	for i, r := range right.Peek() {
		m.out[2*i+1] = r
	}
}

// swapBuses moves the first n delay buses into the live buses and clears
// the delay buses for this period.
func swapBuses(b *gmsynth.Buses, n int) {
	for i := 0; i < n; i++ {
		b.Live[i].Swap(b.Delay[i])
		b.Delay[i].Clear()
	}
}

// foldMono mixes the mono bus into left and right.
func foldMono(b *gmsynth.Buses) {
	mono := b.Live[gmsynth.BusMono]
	if mono.Silent() {
		return
	}
	addBus(b.Live[gmsynth.BusLeft], mono)
	addBus(b.Live[gmsynth.BusRight], mono)
	mono.Clear()
}

func addBus(dst, src *gmsynth.Bus) {
	if src.Silent() {
		return
	}
	vek32.Add_Inplace(dst.Data(), src.Peek())
}

// applyGain scales b by the square of the volume, ramping from the previous
// volume over the period when it changed.
func applyGain(b *gmsynth.Bus, from, to float64) {
	if b.Silent() {
		return
	}
	x := b.Peek()
	if from != to {
		amp := float32(from * from)
		delta := float32((to*to - from*from) / float64(len(x)))
		for i := range x {
			amp += delta
			x[i] *= amp
		}
		return
	}
	if to != 1 {
		vek32.MulNumber_Inplace(x, float32(to*to))
	}
}

// globalParameterControlChange forwards GM2 global parameter control
// changes to the master effects.
func (s *Synthesizer) globalParameterControlChange(slotPath []int, params, values []int64) {
	for i := range params {
		for _, e := range s.mixer.effects {
			e.GlobalParameterControlChange(slotPath, params[i], values[i])
		}
	}
}
