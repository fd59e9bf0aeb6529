// Package connect provides the Connect RPC playout service.
//
// Messages are plain Go structs exchanged as JSON, so the service needs no
// generated code: handlers and clients are built from connect's generic
// constructors with JSONCodec.
package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSONCodec marshals messages with encoding/json.
type JSONCodec struct{}

// Name returns the codec name used in content types.
func (JSONCodec) Name() string {
	return "json"
}

// Marshal encodes a message.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

// Unmarshal decodes a message. An empty body leaves the message at its zero value.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}
