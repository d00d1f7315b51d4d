package cache

import (
	"bytes"
	"encoding/json"
	"time"
)

// Entry is one cached response.
//
// Data and Timestamp are set together by [Table.Store]; an empty slot has no
// Entry at all. A TTL of 0 means the entry stays fresh until invalidated.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

// Fresh reports whether e holds data stored strictly less than TTL ago.
func (e *Entry) Fresh(now time.Time) bool {
	if e == nil || len(e.Data) == 0 || e.Timestamp.IsZero() {
		return false
	}
	return e.TTL <= 0 || now.Sub(e.Timestamp) < e.TTL
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// isNull reports whether data is absent or the JSON literal null.
func isNull(data json.RawMessage) bool {
	return len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
