package codec

import "gateway/internal/rpc"

// BodyCodec is the common contract both body codecs implement: decode a
// frame sequence into a typed value, encode a typed value into wire bytes.
type BodyCodec[T any] interface {
	Decode(frames []rpc.Frame) (T, error)
	Encode(value T) ([]byte, error)
}

var (
	_ BodyCodec[[]string]               = (*JSONCodec)(nil)
	_ BodyCodec[*TripleRequestWrapper]   = (*GRPCRequestCodec)(nil)
	_ BodyCodec[*TripleResponseWrapper]  = (*GRPCResponseCodec)(nil)
)
