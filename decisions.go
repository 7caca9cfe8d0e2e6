package statehub

import "time"

// TrimDecisions truncates the decision log to at most maxCount records,
// evicting the oldest first. The log is kept in append order (oldest
// first), so the most recent records are always preserved.
func TrimDecisions(log []DecisionRecord, maxCount int) []DecisionRecord {
	if maxCount <= 0 || len(log) <= maxCount {
		return log
	}
	return log[len(log)-maxCount:]
}

// PurgeDecisionsBefore removes decision records whose timestamp is before
// the cutoff. The log is append-ordered, so everything before the first
// surviving record can be dropped in one cut.
func PurgeDecisionsBefore(log []DecisionRecord, cutoff time.Time) []DecisionRecord {
	if len(log) == 0 {
		return log
	}
	for i, rec := range log {
		if !rec.Timestamp.Before(cutoff) {
			return log[i:]
		}
	}
	return log[:0]
}

// RecentDecisions returns the most recent limit records from the log in
// stored order (most recent last).
func RecentDecisions(log []DecisionRecord, limit int) []DecisionRecord {
	if limit <= 0 || len(log) <= limit {
		return log
	}
	return log[len(log)-limit:]
}
