package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gateway/internal/codec"
	"gateway/internal/rpc"
)

func TestServeHTTPFusenDispatchesBoundHandler(t *testing.T) {
	requests := codec.NewRequestCodec()
	handlers := NewRegistry()
	handlers.Bind(rpc.HandlerKey{Service: rpc.ServiceIdentity{Package: "com.example", Interface: "DemoService"}, Method: "sayHelloV2"},
		func(ctx context.Context, inv *rpc.Invocation) (string, error) {
			return `{"str":` + inv.Args[0] + `}`, nil
		})

	srv := New(Config{}, handlers, requests, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/com.example.DemoService/sayHelloV2",
		strings.NewReader(`"world"`))
	req.Header.Set("content-type", "application/json")
	rec := httptest.NewRecorder()

	srv.serveHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"str":"world"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestServeHTTPUnboundHandlerIsNotFound(t *testing.T) {
	requests := codec.NewRequestCodec()
	handlers := NewRegistry()
	srv := New(Config{}, handlers, requests, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/com.example.DemoService/unbound", strings.NewReader(`"x"`))
	req.Header.Set("content-type", "application/json")
	rec := httptest.NewRecorder()

	srv.serveHTTP(rec, req)

	if rec.Header().Get("fusen-status") == "" {
		t.Fatalf("expected fusen-status header for unbound handler, body = %q", rec.Body.String())
	}
}
