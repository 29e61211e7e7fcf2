package audit

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

// Window is a sample window in seconds of video time.
type Window struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
}

// Duration returns End - Start.
func (w Window) Duration() float64 { return w.End - w.Start }

// Sampler yields uniform values in [0, 1).
type Sampler interface {
	Float64() float64
}

// NewSampler returns a goroutine-safe seeded Sampler.
func NewSampler(seed int64) Sampler {
	return &lockedSampler{r: rand.New(rand.NewSource(seed))} //nolint:gosec // sampling, not crypto
}

type lockedSampler struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSampler) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// SampleTimeRange picks a window of length interval whose start is a
// multiple of interval and which lies inside [0, duration]. Every
// interval-aligned window that fits, the last one included, is equally likely.
//
// A video shorter than one interval is audited whole: the window is
// [0, duration]. A non-positive duration yields [0, interval].
func SampleTimeRange(s Sampler, duration, interval float64) (Window, error) {
	if interval <= 0 || math.IsNaN(interval) || math.IsInf(interval, 0) {
		return Window{}, apperrors.Configuration(fmt.Sprintf("time interval must be positive, got %v", interval))
	}
	if duration <= 0 || math.IsNaN(duration) {
		return Window{Start: 0, End: interval}, nil
	}
	if duration < interval {
		return Window{Start: 0, End: duration}, nil
	}

	slots := math.Floor((duration-interval)/interval) + 1
	k := math.Floor(s.Float64() * slots)
	if k >= slots {
		k = slots - 1
	}
	start := k * interval
	return Window{Start: start, End: start + interval}, nil
}
