package statehub

import "encoding/json"

// EstimateFootprint approximates the in-memory footprint of a working set
// in bytes, measured as the size of its serialized form. The persisted
// blob is the same serialization, so this doubles as an estimate of the
// durable record size.
func EstimateFootprint(ws *WorkingSet) int {
	if ws == nil {
		return 0
	}
	b, err := json.Marshal(ws)
	if err != nil {
		return 0
	}
	return len(b)
}
