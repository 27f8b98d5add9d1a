package service

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // registered first so ours replaces it
	"google.golang.org/protobuf/proto"
)

func init() {
	encoding.RegisterCodec(codec{})
}

// codec takes over the "proto" content subtype. Cache service messages are
// plain structs encoded as JSON; real protobuf messages, such as those of
// the health service, still go through proto.Marshal.
type codec struct{}

func (codec) Name() string { return "proto" }

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case message:
		return json.Marshal(m)
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("service codec: cannot marshal %T", v)
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case message:
		return json.Unmarshal(data, m)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("service codec: cannot unmarshal into %T", v)
}
