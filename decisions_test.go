package statehub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makeLog(n int, start time.Time) []DecisionRecord {
	log := make([]DecisionRecord, n)
	for i := range log {
		log[i] = DecisionRecord{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			EntityID:  "ent-1",
			Payload:   i,
		}
	}
	return log
}

func TestTrimDecisions(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	log := TrimDecisions(makeLog(101, start), 100)
	assert.Len(t, log, 100)
	assert.Equal(t, 1, log[0].Payload, "oldest record evicted first")
	assert.Equal(t, 100, log[99].Payload)

	short := makeLog(5, start)
	assert.Equal(t, short, TrimDecisions(short, 100))
	assert.Equal(t, short, TrimDecisions(short, 0), "non-positive cap leaves the log alone")
}

func TestPurgeDecisionsBefore(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := makeLog(10, start)

	purged := PurgeDecisionsBefore(log, start.Add(5*time.Minute))
	assert.Len(t, purged, 5)
	assert.Equal(t, 5, purged[0].Payload, "cutoff is inclusive on the surviving side")

	assert.Len(t, PurgeDecisionsBefore(log, start), 10)
	assert.Empty(t, PurgeDecisionsBefore(log, start.Add(time.Hour)))
	assert.Empty(t, PurgeDecisionsBefore(nil, start))
}

func TestRecentDecisions(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := makeLog(10, start)

	recent := RecentDecisions(log, 3)
	assert.Len(t, recent, 3)
	assert.Equal(t, 7, recent[0].Payload)
	assert.Equal(t, 9, recent[2].Payload, "most recent last")

	assert.Len(t, RecentDecisions(log, 20), 10)
	assert.Len(t, RecentDecisions(log, 0), 10)
}

func TestEstimateFootprint(t *testing.T) {
	t.Parallel()

	assert.Zero(t, EstimateFootprint(nil))

	ws := NewWorkingSet()
	empty := EstimateFootprint(ws)
	assert.Positive(t, empty)

	ws.Sessions["s1"] = &Session{ID: "s1", EntityID: "ent-1", Metadata: map[string]any{"device": "laptop"}}
	assert.Greater(t, EstimateFootprint(ws), empty)
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(time.Hour)), "expiry boundary is not yet expired")
	assert.True(t, s.Expired(now.Add(time.Hour+time.Second)))
}
