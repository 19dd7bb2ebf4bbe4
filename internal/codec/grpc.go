package codec

import (
	"encoding/binary"

	"gateway/internal/rpc"
)

// grpcPrefixLen is the standard gRPC message frame header: a 1-byte
// compression flag followed by a 4-byte big-endian length.
const grpcPrefixLen = 5

// wrapCodec marshals to and unmarshals from the Protobuf wrapper types
// (TripleRequestWrapper / TripleResponseWrapper), each wrapped in the
// standard gRPC length-prefixed framing.
type wrapCodec[T interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}] struct {
	new func() T
}

// Decode concatenates the data frames, strips the gRPC frame prefix, and
// Protobuf-decodes the payload into the wrapper type.
func (c wrapCodec[T]) Decode(frames []rpc.Frame) (T, error) {
	var zero T
	var body []byte
	found := false
	for _, f := range frames {
		if f.IsTrailers() {
			continue
		}
		body = append(body, f.Data()...)
		found = true
	}
	if !found {
		return zero, rpc.Info("empty frame")
	}
	if len(body) < grpcPrefixLen {
		return zero, rpc.Info("empty body")
	}

	length := binary.BigEndian.Uint32(body[1:5])
	payload := body[grpcPrefixLen:]
	if uint32(len(payload)) < length {
		return zero, rpc.Info("truncated grpc frame")
	}
	payload = payload[:length]

	w := c.new()
	if err := w.Unmarshal(payload); err != nil {
		return zero, rpc.Info("decode grpc payload: " + err.Error())
	}
	return w, nil
}

// Encode Protobuf-serializes the wrapper and prepends the 5-byte gRPC
// frame prefix (no compression, length in bytes of the payload).
func (c wrapCodec[T]) Encode(w T) ([]byte, error) {
	payload, err := w.Marshal()
	if err != nil {
		return nil, rpc.Info("encode grpc payload: " + err.Error())
	}
	out := make([]byte, grpcPrefixLen+len(payload))
	out[0] = 0
	binary.BigEndian.PutUint32(out[1:5], uint32(len(payload)))
	copy(out[grpcPrefixLen:], payload)
	return out, nil
}

// GRPCRequestCodec is the gRPC body codec for Dubbo3/Triple requests.
type GRPCRequestCodec struct {
	wrapCodec[*TripleRequestWrapper]
}

// NewGRPCRequestCodec returns the request-side gRPC/Triple codec.
func NewGRPCRequestCodec() *GRPCRequestCodec {
	return &GRPCRequestCodec{wrapCodec[*TripleRequestWrapper]{new: func() *TripleRequestWrapper { return &TripleRequestWrapper{} }}}
}

// GRPCResponseCodec is the gRPC body codec for Dubbo3/Triple responses.
type GRPCResponseCodec struct {
	wrapCodec[*TripleResponseWrapper]
}

// NewGRPCResponseCodec returns the response-side gRPC/Triple codec.
func NewGRPCResponseCodec() *GRPCResponseCodec {
	return &GRPCResponseCodec{wrapCodec[*TripleResponseWrapper]{new: func() *TripleResponseWrapper { return &TripleResponseWrapper{} }}}
}
