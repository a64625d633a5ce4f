package utils

import (
	"math/rand"
	"sync"
	"time"
)

// Throttle inserts a randomized delay between consecutive requests. The
// randomness bounds the request rate without producing a detectable fixed
// cadence. A zero Throttle never sleeps, which is what tests want.
type Throttle struct {
	Min time.Duration
	Max time.Duration
}

// Sleep blocks for a uniformly random duration in [Min, Max].
func (t Throttle) Sleep() {
	if t.Max <= 0 {
		return
	}
	d := t.Min
	if t.Max > t.Min {
		d += time.Duration(rand.Int63n(int64(t.Max - t.Min)))
	}
	time.Sleep(d)
}

// URLSet is a thread-safe set for tracking visited URLs.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL has already been visited.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
