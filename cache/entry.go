package cache

import (
	"bytes"
	"encoding/json"
	"time"
)

// Entry is one cached value together with the moment it was written and
// how long it stays valid. Its JSON form is what the backend stores.
type Entry struct {
	Value     json.RawMessage `json:"data"`
	WrittenAt int64           `json:"timestamp"` // unix milliseconds
	TTL       int64           `json:"ttl"`       // milliseconds
}

// newEntry stamps val with now. A positive ttl is rounded up to whole
// milliseconds so it never collapses to zero.
func newEntry(val []byte, now time.Time, ttl time.Duration) Entry {
	ms := ttl.Milliseconds()
	if ttl%time.Millisecond > 0 {
		ms++
	}
	return Entry{
		Value:     bytes.Clone(val),
		WrittenAt: now.UnixMilli(),
		TTL:       ms,
	}
}

// Valid reports whether the entry is still usable at now.
func (e Entry) Valid(now time.Time) bool {
	return now.UnixMilli()-e.WrittenAt < e.TTL
}

// ExpiresAt returns the first instant at which the entry is no longer valid.
func (e Entry) ExpiresAt() time.Time {
	return time.UnixMilli(e.WrittenAt + e.TTL)
}

func encodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(raw []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
