package monitor

import (
	"sync"
	"time"
)

// Default ring sizes. Response times are kept for averaging, fetch
// timestamps for windowed rate calculation; both are bounded so a
// multi-day crawl cannot grow them without limit.
const (
	maxResponseTimes = 1000
	maxTimestamps    = 10000
)

// Speed collects crawl throughput statistics. All methods are safe for
// concurrent use by the worker pool.
type Speed struct {
	mu sync.Mutex

	start     time.Time
	total     int
	succeeded int
	failed    int

	// timestamps holds the completion times of recent fetches,
	// oldest first. Used for the windowed URLs/hour rate.
	timestamps []time.Time

	// responseTimes holds recent fetch durations, oldest first.
	responseTimes []time.Duration
}

// NewSpeed creates a Speed monitor starting its clock now.
func NewSpeed() *Speed {
	return &Speed{start: time.Now()}
}

// Record notes one completed fetch attempt.
func (s *Speed) Record(success bool, responseTime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if success {
		s.succeeded++
	} else {
		s.failed++
	}

	s.timestamps = append(s.timestamps, time.Now())
	if len(s.timestamps) > maxTimestamps {
		s.timestamps = s.timestamps[len(s.timestamps)-maxTimestamps:]
	}

	s.responseTimes = append(s.responseTimes, responseTime)
	if len(s.responseTimes) > maxResponseTimes {
		s.responseTimes = s.responseTimes[len(s.responseTimes)-maxResponseTimes:]
	}
}

// Stats is a point-in-time snapshot of crawl throughput.
type Stats struct {
	// Elapsed is the time since the monitor was created.
	Elapsed time.Duration

	// Total is the number of fetch attempts recorded.
	Total int

	// Succeeded is the number of successful fetches.
	Succeeded int

	// Failed is the number of failed fetches.
	Failed int

	// SuccessRate is Succeeded/Total as a percentage, 0 when empty.
	SuccessRate float64

	// URLsPerHour is the fetch rate over the given window.
	URLsPerHour float64

	// OverallURLsPerHour is the fetch rate since the monitor started.
	OverallURLsPerHour float64

	// AvgResponseTime is the mean duration of recent fetches.
	AvgResponseTime time.Duration
}

// Snapshot returns current statistics. The windowed rate counts fetches
// completed within the given window; a zero window means one hour.
func (s *Speed) Snapshot(window time.Duration) Stats {
	if window <= 0 {
		window = time.Hour
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.start)
	stats := Stats{
		Elapsed:   elapsed,
		Total:     s.total,
		Succeeded: s.succeeded,
		Failed:    s.failed,
	}

	if s.total > 0 {
		stats.SuccessRate = float64(s.succeeded) / float64(s.total) * 100
	}
	if elapsed > 0 {
		stats.OverallURLsPerHour = float64(s.total) / elapsed.Hours()
	}

	cutoff := time.Now().Add(-window)
	recent := 0
	for i := len(s.timestamps) - 1; i >= 0; i-- {
		if s.timestamps[i].Before(cutoff) {
			break
		}
		recent++
	}
	effective := window
	if elapsed < window {
		effective = elapsed
	}
	if effective > 0 {
		stats.URLsPerHour = float64(recent) / effective.Hours()
	}

	if len(s.responseTimes) > 0 {
		var sum time.Duration
		for _, rt := range s.responseTimes {
			sum += rt
		}
		stats.AvgResponseTime = sum / time.Duration(len(s.responseTimes))
	}

	return stats
}

// ETA estimates the time needed to reach targetURLs total fetches at
// the current windowed rate. The second result is false when no rate
// is available yet or the target has already been reached.
func (s *Speed) ETA(targetURLs int, window time.Duration) (time.Duration, bool) {
	stats := s.Snapshot(window)

	remaining := targetURLs - stats.Total
	if remaining <= 0 {
		return 0, false
	}

	rate := stats.URLsPerHour
	if rate <= 0 {
		rate = stats.OverallURLsPerHour
	}
	if rate <= 0 {
		return 0, false
	}

	hours := float64(remaining) / rate
	return time.Duration(hours * float64(time.Hour)), true
}
