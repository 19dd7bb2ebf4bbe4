package rpc

import (
	"context"
	"testing"
)

func TestInvocationResultXorError(t *testing.T) {
	inv := New(context.Background(), ServiceIdentity{Package: "com.example", Interface: "DemoService"}, "sayHelloV2")

	if inv.Done() {
		t.Fatal("new invocation should not be done")
	}

	inv.SetResult(`{"str":"hello world"}`)

	if !inv.Done() {
		t.Fatal("invocation should be done after SetResult")
	}
	if inv.Err() != nil {
		t.Fatalf("Err() = %v, want nil", inv.Err())
	}
	result, ok := inv.Result()
	if !ok || result != `{"str":"hello world"}` {
		t.Fatalf("Result() = %q, %v, want body, true", result, ok)
	}
}

func TestInvocationSetResultAfterErrorPanics(t *testing.T) {
	inv := New(context.Background(), ServiceIdentity{Interface: "DemoService"}, "sayHello")
	inv.SetError(NotFind("no handler"))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic setting result after error")
		}
	}()
	inv.SetResult("too late")
}

func TestHandlerKeyString(t *testing.T) {
	key := HandlerKey{
		Service: ServiceIdentity{Package: "com.krpc", Interface: "TestServer", Version: "1.0.0"},
		Method:  "doRun1",
	}
	want := "com.krpc.TestServer/doRun1:1.0.0"
	if got := key.String(); got != want {
		t.Errorf("HandlerKey.String() = %q, want %q", got, want)
	}
}

func TestServiceIdentityKey(t *testing.T) {
	tests := []struct {
		name string
		id   ServiceIdentity
		want string
	}{
		{
			name: "bare interface",
			id:   ServiceIdentity{Interface: "DemoService"},
			want: "DemoService",
		},
		{
			name: "package qualified",
			id:   ServiceIdentity{Package: "com.example", Interface: "DemoService"},
			want: "com.example.DemoService",
		},
		{
			name: "versioned and grouped",
			id:   ServiceIdentity{Package: "com.example", Interface: "DemoService", Version: "1.0.0", Group: "beta"},
			want: "com.example.DemoService:1.0.0@beta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}
