package service

import "encoding/json"

// GetRequest asks for the value cached under Key.
type GetRequest struct {
	Key string `json:"key"`
}

// GetResponse carries the value when Found is true.
type GetResponse struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
}

// SetRequest stores Value under Key for TTLMillis milliseconds. A
// non-positive TTLMillis selects the store default.
type SetRequest struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	TTLMillis int64           `json:"ttl_ms,omitempty"`
}

type InvalidateRequest struct {
	Key string `json:"key"`
}

// InvalidatePatternRequest removes every key containing Pattern.
type InvalidatePatternRequest struct {
	Pattern string `json:"pattern"`
}

type ClearAllRequest struct{}

// Empty is the response of every mutating method.
type Empty struct{}

// message is implemented by every type the codec encodes as JSON.
type message interface {
	isCacheMessage()
}

func (*GetRequest) isCacheMessage()               {}
func (*GetResponse) isCacheMessage()              {}
func (*SetRequest) isCacheMessage()               {}
func (*InvalidateRequest) isCacheMessage()        {}
func (*InvalidatePatternRequest) isCacheMessage() {}
func (*ClearAllRequest) isCacheMessage()          {}
func (*Empty) isCacheMessage()                    {}
