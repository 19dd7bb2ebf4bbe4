package codec

import (
	"reflect"
	"testing"

	"gateway/internal/rpc"
)

func TestTripleRequestWrapperRoundTrip(t *testing.T) {
	want := NewTripleRequest(
		[]string{`{"str":"a"}`, `{"str":"b"}`},
		[]string{"org.apache.dubbo.springboot.demo.ReqDto", "org.apache.dubbo.springboot.demo.ResDto"},
	)

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &TripleRequestWrapper{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.SerializeType != want.SerializeType {
		t.Errorf("SerializeType = %q, want %q", got.SerializeType, want.SerializeType)
	}
	if !reflect.DeepEqual(got.Args, want.Args) {
		t.Errorf("Args = %v, want %v", got.Args, want.Args)
	}
	if !reflect.DeepEqual(got.ArgTypes, want.ArgTypes) {
		t.Errorf("ArgTypes = %v, want %v", got.ArgTypes, want.ArgTypes)
	}
}

func TestTripleResponseWrapperRoundTrip(t *testing.T) {
	want := NewTripleResponse(`{"str":"ok"}`)
	want.Type = "org.apache.dubbo.springboot.demo.ResDto"

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &TripleResponseWrapper{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.SerializeType != want.SerializeType || string(got.Data) != string(want.Data) || got.Type != want.Type {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGRPCRequestCodecRoundTrip(t *testing.T) {
	codec := NewGRPCRequestCodec()
	w := NewTripleRequest([]string{`{"str":"world"}`}, []string{"ReqDto"})

	encoded, err := codec.Encode(w)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := codec.Decode([]rpc.Frame{rpc.DataFrame(encoded)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(decoded.StringArgs(), w.StringArgs()) {
		t.Errorf("StringArgs() = %v, want %v", decoded.StringArgs(), w.StringArgs())
	}
}

func TestGRPCResponseCodecFramePrefix(t *testing.T) {
	codec := NewGRPCResponseCodec()
	w := NewTripleResponse(`{"str":"ok"}`)

	encoded, err := codec.Encode(w)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if encoded[0] != 0 {
		t.Errorf("compression flag byte = %d, want 0", encoded[0])
	}
	if len(encoded) < grpcPrefixLen {
		t.Fatalf("encoded frame too short: %d bytes", len(encoded))
	}
}

func TestGRPCCodecDecodeEmptyBody(t *testing.T) {
	codec := NewGRPCRequestCodec()
	if _, err := codec.Decode([]rpc.Frame{rpc.DataFrame([]byte{0, 0})}); err == nil {
		t.Fatal("expected error decoding truncated grpc frame")
	}
	if _, err := codec.Decode(nil); err == nil {
		t.Fatal("expected error decoding empty frame list")
	}
}
