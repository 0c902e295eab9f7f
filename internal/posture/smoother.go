package posture

// Smoothing window bounds. The original tuning used 20 samples (about ten
// seconds at the default cadence).
const (
	DefaultSmoothingWindow = 20
	MinSmoothingWindow     = 20
	MaxSmoothingWindow     = 30
)

// Smoother keeps a bounded FIFO history of raw scores and reports their
// truncated integer mean. It is owned by a single sampling pipeline; readers
// consume the returned value, never the buffer.
type Smoother struct {
	history []int
	max     int
}

// NewSmoother creates a Smoother with the given window, clamped to
// [MinSmoothingWindow, MaxSmoothingWindow]. Zero or negative selects the
// default.
func NewSmoother(window int) *Smoother {
	if window <= 0 {
		window = DefaultSmoothingWindow
	}
	if window < MinSmoothingWindow {
		window = MinSmoothingWindow
	}
	if window > MaxSmoothingWindow {
		window = MaxSmoothingWindow
	}
	return &Smoother{max: window}
}

// Push appends a raw score, evicting the oldest entry once the window is
// full (at most one eviction per push), and returns the smoothed score.
func (s *Smoother) Push(score int) int {
	s.history = append(s.history, score)
	if len(s.history) > s.max {
		s.history = s.history[1:]
	}
	sum := 0
	for _, v := range s.history {
		sum += v
	}
	return sum / len(s.history)
}

// Len reports the number of scores currently held.
func (s *Smoother) Len() int { return len(s.history) }

// Reset clears the history. Called on session start with no prior baseline
// and after a successful recalibration.
func (s *Smoother) Reset() { s.history = s.history[:0] }
