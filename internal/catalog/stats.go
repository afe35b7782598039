package catalog

import "sync/atomic"

// Stats holds process-lifetime counters for the client. Counters only grow:
// one request per upstream call attempt (cache hits excluded), one cache hit
// per successful cache read, one error per failed upstream interaction.
type Stats struct {
	requests  atomic.Int64
	cacheHits atomic.Int64
	errors    atomic.Int64
}

// StatsSnapshot is a point-in-time view of the counters plus derived rates
// and the configured concurrency limit.
type StatsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	Errors        int64   `json:"errors"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	ErrorRate     float64 `json:"error_rate"`
	RateLimit     int     `json:"rate_limit"`
}

func (s *Stats) recordRequest()  { s.requests.Add(1) }
func (s *Stats) recordCacheHit() { s.cacheHits.Add(1) }
func (s *Stats) recordError()    { s.errors.Add(1) }

// snapshot computes derived rates with a denominator floor of one, so rates
// are zero rather than NaN before the first request.
func (s *Stats) snapshot(rateLimit int) StatsSnapshot {
	requests := s.requests.Load()
	hits := s.cacheHits.Load()
	errs := s.errors.Load()

	denom := requests
	if denom < 1 {
		denom = 1
	}
	return StatsSnapshot{
		TotalRequests: requests,
		CacheHits:     hits,
		Errors:        errs,
		CacheHitRate:  float64(hits) / float64(denom),
		ErrorRate:     float64(errs) / float64(denom),
		RateLimit:     rateLimit,
	}
}
