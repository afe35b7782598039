package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_SnapshotBeforeAnyRequest(t *testing.T) {
	var s Stats

	snap := s.snapshot(5)

	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.CacheHits)
	assert.Zero(t, snap.Errors)
	assert.Zero(t, snap.CacheHitRate, "no division by zero")
	assert.Zero(t, snap.ErrorRate)
	assert.Equal(t, 5, snap.RateLimit)
}

func TestStats_DerivedRates(t *testing.T) {
	var s Stats
	for range 4 {
		s.recordRequest()
	}
	s.recordCacheHit()
	s.recordError()

	snap := s.snapshot(2)

	assert.Equal(t, int64(4), snap.TotalRequests)
	assert.InDelta(t, 0.25, snap.CacheHitRate, 1e-9)
	assert.InDelta(t, 0.25, snap.ErrorRate, 1e-9)
}
