package core

import "github.com/spaghettifunk/glacian/engine/containers"

const AVG_COUNT int = 30

// Metrics tracks a rolling frame time average and the frames rendered per second.
type Metrics struct {
	frameTimes         *containers.RingQueue[float64]
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{frameTimes: containers.NewRingQueue[float64](AVG_COUNT)}
}

// Update records a frame that took frameElapsed seconds.
func (m *Metrics) Update(frameElapsed float64) {
	frameMS := frameElapsed * 1000.0
	m.frameTimes.Push(frameMS)

	// the average is refreshed once per full window
	if m.frameTimes.IsFull() && m.frames%int32(AVG_COUNT) == 0 {
		sum := 0.0
		m.frameTimes.Each(func(v float64) { sum += v })
		m.msAvg = sum / float64(AVG_COUNT)
	}

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime returns the average frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAvg
}
