package service

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// JSONCodec marshals plain Go structs for Connect. It replaces the built-in
// "json" codec, which only accepts protobuf messages.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// ClientOptions returns the options a client of these services needs.
func ClientOptions() []connect.ClientOption {
	return []connect.ClientOption{connect.WithCodec(JSONCodec{})}
}
