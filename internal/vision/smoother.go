package vision

import (
	"math"
	"sync"

	"github.com/wattanaa/ecopoint/internal/models"
)

// Smoother damps single-frame detector noise by averaging per-frame counts
// over a bounded sliding window. One smoother belongs to exactly one scan
// session and is discarded (never persisted) when the session stops.
//
// With a window of N frames a transient miss or false positive moves the
// average by at most 1/N, while a real change settles within N frames.
type Smoother struct {
	mu     sync.Mutex
	window []models.CategoryCount
	size   int
}

// NewSmoother creates a smoother holding at most size frames.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{size: size}
}

// Push appends one frame's counts, evicting the oldest entry once the window
// is full, and returns the freshly smoothed counts.
func (s *Smoother) Push(counts models.CategoryCount) models.CategoryCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window = append(s.window, counts)
	if len(s.window) > s.size {
		s.window = s.window[1:]
	}
	return s.smoothed()
}

// Current returns the smoothed counts without adding a frame.
// An empty window yields all zeros.
func (s *Smoother) Current() models.CategoryCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smoothed()
}

// Len reports how many frames the window currently holds.
func (s *Smoother) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.window)
}

func (s *Smoother) smoothed() models.CategoryCount {
	n := len(s.window)
	if n == 0 {
		return models.CategoryCount{}
	}

	var sum models.CategoryCount
	for _, c := range s.window {
		sum.Add(c)
	}
	return models.CategoryCount{
		Bottles: roundAverage(sum.Bottles, n),
		Cups:    roundAverage(sum.Cups, n),
		Glass:   roundAverage(sum.Glass, n),
	}
}

// roundAverage is round-half-up of sum/n.
func roundAverage(sum, n int) int {
	return int(math.Floor(float64(sum)/float64(n) + 0.5))
}
