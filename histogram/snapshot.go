package histogram

import "github.com/zeebo/pulse/clock"

// Snapshot is an immutable histogram covering a half-open range of wall
// time, produced by a sliding window histogram.
type Snapshot struct {
	start     clock.UnixInstant
	end       clock.UnixInstant
	histogram *Histogram
}

// Range returns the half-open wall time range the snapshot covers. The
// bounds are aligned to slice boundaries, so they may differ from the
// range that was requested.
func (s *Snapshot) Range() (start, end clock.UnixInstant) {
	return s.start, s.end
}

// Histogram returns the distribution covering the snapshot's range.
func (s *Snapshot) Histogram() *Histogram {
	return s.histogram
}

// Percentile returns the bucket holding the requested percentile.
func (s *Snapshot) Percentile(percentile float64) (Bucket, error) {
	return s.histogram.Percentile(percentile)
}

// Percentiles returns the buckets holding each of the requested
// percentiles, sorted ascending.
func (s *Snapshot) Percentiles(percentiles ...float64) ([]Percentile, error) {
	return s.histogram.Percentiles(percentiles...)
}

// Sparse returns the snapshot's distribution in columnar form.
func (s *Snapshot) Sparse() *SparseHistogram {
	return NewSparse(s.histogram)
}
