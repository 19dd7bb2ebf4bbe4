package filter

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gateway/internal/rpc"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	cfg := JWTAuthConfig{Secret: "shh"}
	chain := Chain(JWTAuth(cfg))
	final := chain(func(ctx context.Context, inv *rpc.Invocation) error {
		inv.SetResult("ok")
		return nil
	})

	inv := rpc.New(context.Background(), rpc.ServiceIdentity{Interface: "DemoService"}, "doRun")
	inv.Headers.Set("Authorization", "Bearer "+signToken(t, "shh", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))

	if err := final(context.Background(), inv); err != nil {
		t.Fatalf("final() error = %v", err)
	}
	if result, ok := inv.Result(); !ok || result != "ok" {
		t.Errorf("result = (%q, %v), want (\"ok\", true)", result, ok)
	}
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	chain := Chain(JWTAuth(JWTAuthConfig{Secret: "shh"}))
	final := chain(func(ctx context.Context, inv *rpc.Invocation) error {
		t.Fatal("next should not run without a token")
		return nil
	})

	inv := rpc.New(context.Background(), rpc.ServiceIdentity{Interface: "DemoService"}, "doRun")
	if err := final(context.Background(), inv); err == nil {
		t.Fatal("expected error for missing token")
	}
	if inv.Err() == nil {
		t.Error("expected inv.Err() to be set")
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	chain := Chain(JWTAuth(JWTAuthConfig{Secret: "shh"}))
	final := chain(func(ctx context.Context, inv *rpc.Invocation) error {
		t.Fatal("next should not run with a badly signed token")
		return nil
	})

	inv := rpc.New(context.Background(), rpc.ServiceIdentity{Interface: "DemoService"}, "doRun")
	inv.Headers.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", jwt.MapClaims{"sub": "user-1"}))

	if err := final(context.Background(), inv); err == nil {
		t.Fatal("expected error for token signed with wrong secret")
	}
}

func TestJWTAuthRejectsWrongIssuer(t *testing.T) {
	chain := Chain(JWTAuth(JWTAuthConfig{Secret: "shh", Issuer: "gateway"}))
	final := chain(func(ctx context.Context, inv *rpc.Invocation) error {
		t.Fatal("next should not run with a mismatched issuer")
		return nil
	})

	inv := rpc.New(context.Background(), rpc.ServiceIdentity{Interface: "DemoService"}, "doRun")
	inv.Headers.Set("Authorization", "Bearer "+signToken(t, "shh", jwt.MapClaims{"sub": "user-1", "iss": "someone-else"}))

	if err := final(context.Background(), inv); err == nil {
		t.Fatal("expected error for token with wrong issuer")
	}
}
