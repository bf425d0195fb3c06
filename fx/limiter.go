package fx

import (
	"github.com/viterin/vek/vek32"
	"github.com/vsariola/gmsynth"
)

// Limiter is the automatic gain control at the end of the master chain. It
// follows the block peak of the left and right buses and pulls the gain
// down so that the peak stays below the ceiling, then lets it recover
// slowly.
type Limiter struct {
	left, right *gmsynth.Bus // right may be nil for mono output

	gain float32
	tmp  []float32
}

const (
	limiterCeiling = 0.99
	// the gain recovers by 1/limiterRelease of the distance to the target
	// each control period
	limiterRelease = 40
)

func NewLimiter(left, right *gmsynth.Bus) *Limiter {
	return &Limiter{left: left, right: right, gain: 1}
}

func (l *Limiter) GlobalParameterControlChange(slotPath []int, param, value int64) {}

func (l *Limiter) ProcessControl() {}

// Gain returns the gain applied to the latest block.
func (l *Limiter) Gain() float32 {
	return l.gain
}

func (l *Limiter) ProcessAudio() {
	if l.left.Silent() && (l.right == nil || l.right.Silent()) {
		return
	}
	p := peak(l.left.Peek(), &l.tmp)
	if l.right != nil {
		p = max(p, peak(l.right.Peek(), &l.tmp))
	}
	target := float32(1)
	if p > limiterCeiling {
		target = limiterCeiling / p
	}
	last := l.gain
	if target < last {
		l.gain = target
	} else {
		l.gain = (target + last*(limiterRelease-1)) / limiterRelease
	}
	if last == 1 && l.gain == 1 {
		return
	}
	l.apply(l.left, last)
	if l.right != nil {
		l.apply(l.right, last)
	}
}

// apply ramps the gain from last to the current gain across the block. A
// dropping gain applies to the whole block at once.
func (l *Limiter) apply(b *gmsynth.Bus, last float32) {
	x := b.Data()
	if last > l.gain {
		vek32.MulNumber_Inplace(x, l.gain)
		return
	}
	amp := last
	delta := (l.gain - last) / float32(len(x))
	for i := range x {
		amp += delta
		x[i] *= amp
	}
}
