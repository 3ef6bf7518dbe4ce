package logging

import "time"

// ProgressSampler decides which ffmpeg progress updates are worth logging.
// Updates with a known percentage are logged when they cross into a new
// bucket. Jobs of unknown length report a negative percentage; those are
// logged at most once per interval.
type ProgressSampler struct {
	bucketSize float64
	interval   time.Duration
	lastBucket int
	lastEmit   time.Time
}

// NewProgressSampler constructs a sampler with the given bucket size in
// percent (default 10) and fallback interval for unknown lengths (default 30s).
func NewProgressSampler(bucketSize float64, interval time.Duration) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProgressSampler{bucketSize: bucketSize, interval: interval, lastBucket: -1}
}

// ShouldLog reports whether the update observed at now should be logged.
func (s *ProgressSampler) ShouldLog(percent float64, now time.Time) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		if s.lastEmit.IsZero() || now.Sub(s.lastEmit) >= s.interval {
			s.lastEmit = now
			return true
		}
		return false
	}
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if bucket <= s.lastBucket {
		return false
	}
	s.lastBucket = bucket
	s.lastEmit = now
	return true
}
