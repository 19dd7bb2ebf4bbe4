// Package codec implements the frame-oriented body codecs for the two
// serialization formats the runtime's wire protocols carry: JSON (Fusen,
// SpringCloud) and gRPC-framed Protobuf (Dubbo3/Triple).
package codec

import (
	"encoding/json"
	"strings"

	"gateway/internal/rpc"
)

// JSONCodec decodes a frame sequence into the ordered list of already-
// serialized argument (or result) strings a call carries, and encodes that
// list back into wire bytes.
//
// Decode requires at least one non-trailer data frame. If the frame's
// bytes start with '[' they are parsed as a JSON array of strings — this
// is how multi-argument calls are carried. Otherwise the bytes are a
// single argument: if they don't already start with '"' they are wrapped
// as a JSON string, producing a one-element list. This mirrors
// SpringCloud-style endpoints, which accept either an array of
// JSON-encoded arguments or one bare argument.
//
// Encode does the inverse: a one-element list emits its sole element
// verbatim (not re-quoted); a multi-element list is serialized as a JSON
// array.
type JSONCodec struct{}

// NewJSONCodec returns the stateless JSON body codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Decode implements BodyCodec.
func (c *JSONCodec) Decode(frames []rpc.Frame) ([]string, error) {
	var data []byte
	found := false
	for _, f := range frames {
		if f.IsTrailers() {
			continue
		}
		data = f.Data()
		found = true
		break
	}
	if !found {
		return nil, rpc.Info("empty frame")
	}
	if len(data) == 0 {
		return nil, rpc.Info("empty body")
	}

	if data[0] == '[' {
		var args []string
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, rpc.Info("decode json array: " + err.Error())
		}
		return args, nil
	}

	if data[0] != '"' {
		var b strings.Builder
		b.Grow(len(data) + 2)
		b.WriteByte('"')
		b.Write(data)
		b.WriteByte('"')
		return []string{b.String()}, nil
	}
	return []string{string(data)}, nil
}

// Encode implements BodyCodec.
func (c *JSONCodec) Encode(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, rpc.Info("encode err res is empty")
	}
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	return json.Marshal(args)
}
