package oscvoice

import "github.com/vsariola/gmsynth"

type envelope struct {
	params      gmsynth.Envelope
	stage       envStage
	time        float64 // seconds spent in the current stage
	level       float64
	releaseTime float64
	releaseFrom float64
}

type envStage int

const (
	envStageDelay envStage = iota
	envStageAttack
	envStageHold
	envStageDecay
	envStageSustain
	envStageRelease
	envStageDone
)

// release starts the release stage, taking t seconds to reach silence, or
// the release time of the envelope if t is 0. An ongoing release is only
// ever made faster.
func (e *envelope) release(t float64) {
	if e.stage == envStageDone {
		return
	}
	if t == 0 {
		t = e.params.Release
	}
	if e.stage == envStageRelease && t >= e.releaseTime-e.time {
		return
	}
	e.stage = envStageRelease
	e.time = 0
	e.releaseTime = t
	e.releaseFrom = e.level
}

// step advances the envelope by dt seconds and returns the level reached.
// done is reported on the step after the level has reached zero for good,
// so the final fade to zero still gets rendered.
func (e *envelope) step(dt float64) (level float64, done bool) {
	e.time += dt
	p := &e.params
	for {
		switch e.stage {
		case envStageDelay:
			if e.time < p.Delay {
				e.level = 0
				return e.level, false
			}
			e.time -= p.Delay
			e.stage = envStageAttack
		case envStageAttack:
			if e.time < p.Attack {
				e.level = e.time / p.Attack
				return e.level, false
			}
			e.time -= p.Attack
			e.stage = envStageHold
		case envStageHold:
			if e.time < p.Hold {
				e.level = 1
				return e.level, false
			}
			e.time -= p.Hold
			e.stage = envStageDecay
		case envStageDecay:
			if e.time < p.Decay {
				e.level = 1 - (1-p.Sustain)*e.time/p.Decay
				return e.level, false
			}
			e.time -= p.Decay
			e.stage = envStageSustain
		case envStageSustain:
			if p.Sustain <= 0 {
				e.stage = envStageDone
				e.level = 0
				return 0, false
			}
			e.level = p.Sustain
			return e.level, false
		case envStageRelease:
			if e.time < e.releaseTime {
				e.level = e.releaseFrom * (1 - e.time/e.releaseTime)
				return e.level, false
			}
			e.stage = envStageDone
			e.level = 0
			return 0, false
		default:
			return 0, true
		}
	}
}
