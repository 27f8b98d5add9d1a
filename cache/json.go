package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetJSON decodes the value cached under key into a T. A payload that does
// not decode into T counts as a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// SetJSON encodes v and caches it under key. The only error is a value that
// cannot be encoded.
func SetJSON[T any](ctx context.Context, c Cache, key string, v T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Set(ctx, key, raw, ttl)
	return nil
}

// GetOrSetJSON is the typed form of [GetOrSet]. When the cached payload no
// longer decodes into T the loader runs again and its result replaces it.
func GetOrSetJSON[T any](ctx context.Context, c Cache, key string, ttl time.Duration, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	raw, err := GetOrSet(ctx, c, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}

	v, err := loader(ctx)
	if err != nil {
		return zero, err
	}
	if err := SetJSON(ctx, c, key, v, ttl); err != nil {
		return zero, err
	}
	return v, nil
}
