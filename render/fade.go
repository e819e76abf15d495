package render

import "time"

// Clock abstracts time so the fade is testable without a frame scheduler.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Ticker delivers frame ticks for the fade ramp loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a Ticker firing at the given interval. Injecting one
// lets the ramp loop run on test-controlled ticks instead of wall time.
type TickerFactory func(d time.Duration) Ticker

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// SystemTicker is the wall-clock TickerFactory.
func SystemTicker(d time.Duration) Ticker { return systemTicker{t: time.NewTicker(d)} }

// Fade describes the highlight fade-in as a pure function of elapsed time:
// opacity ramps by Step once per Frame until it reaches Max.
type Fade struct {
	Max   float64
	Step  float64
	Frame time.Duration
}

// DefaultFade matches the production ramp: 0 to 0.30 in 0.03 increments at
// one increment per frame.
func DefaultFade() Fade {
	return Fade{Max: 0.30, Step: 0.03, Frame: 16 * time.Millisecond}
}

// Opacity returns the fade factor after elapsed time, in [0, Max]. A zero
// Frame falls back to the default frame interval.
func (f Fade) Opacity(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	frame := f.Frame
	if frame <= 0 {
		frame = DefaultFade().Frame
	}
	frames := float64(elapsed / frame)
	op := frames * f.Step
	if op > f.Max {
		return f.Max
	}
	return op
}

// Factor returns the fade as a fraction of its settled strength, in [0, 1].
// Painter opacities are scaled by this.
func (f Fade) Factor(elapsed time.Duration) float64 {
	if f.Max <= 0 {
		return 1
	}
	return f.Opacity(elapsed) / f.Max
}

// Done reports whether the fade has settled at Max.
func (f Fade) Done(elapsed time.Duration) bool {
	return f.Opacity(elapsed) >= f.Max
}

// Duration returns how long the full ramp takes.
func (f Fade) Duration() time.Duration {
	if f.Step <= 0 {
		return 0
	}
	frame := f.Frame
	if frame <= 0 {
		frame = DefaultFade().Frame
	}
	frames := int(f.Max/f.Step + 0.999999)
	return time.Duration(frames) * frame
}
