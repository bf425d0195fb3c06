//go:build plugin

package main

import (
	"math"

	"github.com/vsariola/gmsynth/engine"
	"pipelined.dev/audio/vst2"
)

var pluginID = [4]byte{'G', 'M', 's', 'y'}

const pluginName = "gmsynth"

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		config := engine.DefaultConfig()
		config.Float = true
		config.SampleBits = 32
		synth, err := engine.New(config, nil)
		if err == nil {
			err = synth.Open(nil)
		}
		if err != nil {
			panic(err)
		}
		var (
			buf    []float32
			events []vst2.MIDIEvent
			frames int64 // rendered so far
		)
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           pluginName,
				Vendor:         "vsariola/gmsynth",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					for _, ev := range events {
						t := frames + int64(ev.DeltaFrames)
						synth.Receiver().Send(ev.Data[:], int64(math.Round(float64(t)*1e6/config.SampleRate)))
					}
					events = events[:0] // reset buffer, but keep the allocated memory
					left := out.Channel(0)
					right := out.Channel(1)
					if cap(buf) < 2*out.Frames {
						buf = make([]float32, 2*out.Frames)
					}
					buf = buf[:2*out.Frames]
					if err := synth.Render(buf); err != nil {
						clear(buf)
					}
					for i := 0; i < out.Frames; i++ {
						left[i], right[i] = buf[2*i], buf[2*i+1]
					}
					frames += int64(out.Frames)
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						a := ev.Event(i)
						switch v := a.(type) {
						case *vst2.MIDIEvent:
							events = append(events, *v)
						}
					}
				},
				CloseFunc: func() {
					synth.Close()
				},
			}
	}
}

func main() {}
