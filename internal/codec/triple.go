package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// TripleRequestWrapper is the Protobuf envelope a Dubbo3/Triple request
// body carries. Field tags match the wire schema shared with the
// reference krpc-core implementation: serialize_type=1 (string),
// args=2 (repeated bytes), arg_types=3 (repeated string). Each argument is
// carried as the UTF-8 bytes of its JSON representation; the canonical
// serialize_type is "fastjson2".
type TripleRequestWrapper struct {
	SerializeType string
	Args          [][]byte
	ArgTypes      []string
}

// TripleResponseWrapper is the Protobuf envelope a Dubbo3/Triple response
// body carries: serialize_type=1 (string), data=2 (bytes), type=3 (string).
type TripleResponseWrapper struct {
	SerializeType string
	Data          []byte
	Type          string
}

// TripleExceptionWrapper carries a remote exception over Dubbo3/Triple:
// language=1, serialization=2, class_name=3 (all string), data=4 (bytes).
type TripleExceptionWrapper struct {
	Language      string
	Serialization string
	ClassName     string
	Data          []byte
}

// Marshal Protobuf-encodes the request wrapper.
func (w *TripleRequestWrapper) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, w.SerializeType)
	for _, arg := range w.Args {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, arg)
	}
	for _, t := range w.ArgTypes {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, t)
	}
	return b, nil
}

// Unmarshal decodes a Protobuf-encoded request wrapper, appending to any
// repeated fields already present on w.
func (w *TripleRequestWrapper) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.SerializeType = v
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			w.Args = append(w.Args, cp)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.ArgTypes = append(w.ArgTypes, v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

// Marshal Protobuf-encodes the response wrapper.
func (w *TripleResponseWrapper) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, w.SerializeType)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, w.Data)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, w.Type)
	return b, nil
}

// Unmarshal decodes a Protobuf-encoded response wrapper.
func (w *TripleResponseWrapper) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.SerializeType = v
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			w.Data = cp
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.Type = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

// Marshal Protobuf-encodes the exception wrapper.
func (w *TripleExceptionWrapper) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, w.Language)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, w.Serialization)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, w.ClassName)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, w.Data)
	return b, nil
}

// Unmarshal decodes a Protobuf-encoded exception wrapper.
func (w *TripleExceptionWrapper) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.Language = v
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.Serialization = v
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.ClassName = v
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			w.Data = cp
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

// NewTripleRequest builds a request wrapper from already-serialized JSON
// argument strings, using the canonical fastjson2 serialize_type.
func NewTripleRequest(args []string, argTypes []string) *TripleRequestWrapper {
	w := &TripleRequestWrapper{SerializeType: "fastjson2", ArgTypes: argTypes}
	for _, a := range args {
		w.Args = append(w.Args, []byte(a))
	}
	return w
}

// Args returns the wrapper's arguments decoded back to UTF-8 strings.
func (w *TripleRequestWrapper) StringArgs() []string {
	out := make([]string, len(w.Args))
	for i, a := range w.Args {
		out[i] = string(a)
	}
	return out
}

// NewTripleResponse builds a response wrapper carrying result as its data,
// using the canonical fastjson2 serialize_type.
func NewTripleResponse(result string) *TripleResponseWrapper {
	return &TripleResponseWrapper{SerializeType: "fastjson2", Data: []byte(result)}
}

func (w *TripleExceptionWrapper) String() string {
	return fmt.Sprintf("%s: %s", w.ClassName, string(w.Data))
}
