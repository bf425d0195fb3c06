package gmsynth

type (
	// Voice is a single sounding note. The engine owns a fixed pool of voices
	// and calls their methods from the control-rate mixer pass, holding the
	// engine lock; implementations need no synchronization of their own.
	//
	// A voice is activated with Activate, stepped once per control period
	// with StepControl and rendered with RenderAudio until StepControl
	// reports it inactive.
	Voice interface {
		// Activate starts a new note, discarding whatever the voice was
		// playing.
		Activate(a *Activation)
		// StepControl advances the control-rate state (envelopes, LFOs,
		// glides) by one control period and returns false once the voice has
		// fallen silent and can be reused.
		StepControl(masterTuning float64) bool
		// RenderAudio adds one control period of audio into the buses. The
		// first control period after activation starts Activation.Delay
		// frames into the buffers.
		RenderAudio(b *Buses)
		// NoteOff starts the release phase.
		NoteOff(velocity int)
		// SoundOff fades out quickly, without a release phase.
		SoundOff()
		// Shutdown cuts the voice off immediately; used for exclusive class
		// cut-off.
		Shutdown()
		// SetNote moves a playing voice to a new note. With glide, the pitch
		// slides there at the channel portamento rate.
		SetNote(note int, glide bool)

		SetMute(mute bool)
		SetSoloMute(mute bool)
		SetPitchBend(bend int)
		SetChannelPressure(pressure int)
		SetPolyPressure(pressure int)
		ControlChange(controller, value int)
		RPNChange(param, value int)
		NRPNChange(param, value int)
		// UpdateTuning is called when the tuning the voice plays with has
		// been modified.
		UpdateTuning(t *Tuning)
	}

	// VoiceFactory creates a voice rendering at the given audio format, with
	// periodFrames frames in each control period.
	VoiceFactory func(format AudioFormat, periodFrames int) Voice

	// Activation carries everything a voice needs to start a note.
	Activation struct {
		Instrument       *Instrument
		Performer        *Performer
		Connections      []ConnectionBlock // extra connections of the match; the performer's own are in Performer
		VoiceID          int64
		Channel          int
		Note             int
		Velocity         int
		Delay            int // frames into the first rendered period
		ReleaseTriggered bool
		Tuning           *Tuning
		Mixer            ChannelMixer // nil when the channel has no insert

		// GlideFrom is the note to slide from when poly portamento is
		// active, -1 otherwise. PortamentoTime is the glide rate in keys per
		// control period.
		GlideFrom      int
		PortamentoTime float64

		State ChannelState
	}

	// ChannelState is a snapshot of the channel controllers at the moment a
	// voice is activated. Later changes reach the voice through the Voice
	// setters.
	ChannelState struct {
		Controllers     [128]int
		PitchBend       int
		ChannelPressure int
		PolyPressure    int    // of the activated note
		RPN             [6]int // registered parameters 0..5
		Mute            bool
		SoloMute        bool
	}

	// ChannelMixer is an optional per-channel DSP insert, provided by the
	// instrument. Voices bound to it render into private buffers, which
	// Process then transforms in place before they are added to the master
	// mix.
	ChannelMixer interface {
		NoteOn(note, velocity int)
		NoteOff(note, velocity int)
		ControlChange(controller, value int)
		PitchBend(bend int)
		ChannelPressure(pressure int)
		PolyPressure(note, pressure int)
		// Process transforms left, right and mono buffers, in that order.
		// Returning false unregisters the mixer.
		Process(buffers [3]*Bus) bool
		Stop()
	}

	ChannelMixerFactory func(channel int, format AudioFormat) ChannelMixer
)

// Indices of the master mix buses.
const (
	BusLeft = iota
	BusRight
	BusMono
	BusReverb
	BusChorus
	NumBuses
)

type (
	// Bus is an audio buffer that tracks whether it has been written to since
	// it was last cleared.
	Bus struct {
		data   []float32
		silent bool
	}

	// Buses are the buffers a voice renders into. Delay holds the shadow
	// buffers, for content that should only be heard one control period
	// later; they are swapped into Live at the start of the next period.
	Buses struct {
		Live  [NumBuses]*Bus
		Delay [NumBuses]*Bus
	}
)

func NewBus(length int) *Bus {
	return &Bus{data: make([]float32, length), silent: true}
}

// Data returns the samples for writing and marks the bus as non-silent.
func (b *Bus) Data() []float32 {
	b.silent = false
	return b.data
}

// Peek returns the samples without changing the silent flag.
func (b *Bus) Peek() []float32 {
	return b.data
}

func (b *Bus) Silent() bool {
	return b.silent
}

func (b *Bus) Len() int {
	return len(b.data)
}

// Clear zeroes the bus, unless it is already known to be silent.
func (b *Bus) Clear() {
	if b.silent {
		return
	}
	clear(b.data)
	b.silent = true
}

// Swap exchanges the contents and silent flags of two buses.
func (b *Bus) Swap(o *Bus) {
	b.data, o.data = o.data, b.data
	b.silent, o.silent = o.silent, b.silent
}

func NewBuses(length int) *Buses {
	b := &Buses{}
	for i := range b.Live {
		b.Live[i] = NewBus(length)
		b.Delay[i] = NewBus(length)
	}
	return b
}
