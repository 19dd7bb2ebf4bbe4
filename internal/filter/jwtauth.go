package filter

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"gateway/internal/rpc"
)

// JWTAuthConfig configures the JWTAuth filter.
type JWTAuthConfig struct {
	// Secret validates HS256/HS384/HS512 tokens. Exactly one of Secret or
	// PublicKey must be set.
	Secret string
	// SigningMethod is the expected alg, e.g. "HS256" or "RS256".
	SigningMethod string
	// Issuer, if set, must match the token's iss claim.
	Issuer string
	// HeaderName is the invocation header carrying the bearer token.
	// Defaults to "Authorization".
	HeaderName string
}

// JWTAuth returns a filter that rejects any invocation without a valid
// bearer token in cfg.HeaderName. Unlike the gateway's HTTP-facing
// multi-provider auth stack (JWKS rotation, OAuth2, API keys), this
// validates a single pre-shared signing key against the invocation
// envelope directly: the RPC dispatch path has no notion of a request
// path to skip, and no provider chain to pick from.
func JWTAuth(cfg JWTAuthConfig) Filter {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "Authorization"
	}
	signingMethod := cfg.SigningMethod
	if signingMethod == "" {
		signingMethod = "HS256"
	}
	key := []byte(cfg.Secret)

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != signingMethod {
			return nil, rpc.Info("unexpected signing method: " + token.Method.Alg())
		}
		return key, nil
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, inv *rpc.Invocation) error {
			raw := inv.Headers.Get(headerName)
			tokenString := strings.TrimPrefix(raw, "Bearer ")
			if tokenString == "" {
				inv.SetError(rpc.Info("missing bearer token"))
				return inv.Err()
			}

			token, err := jwt.Parse(tokenString, keyFunc)
			if err != nil || !token.Valid {
				inv.SetError(rpc.Info("invalid token"))
				return inv.Err()
			}

			if cfg.Issuer != "" {
				claims, ok := token.Claims.(jwt.MapClaims)
				if !ok {
					inv.SetError(rpc.Info("invalid token claims"))
					return inv.Err()
				}
				if iss, _ := claims["iss"].(string); iss != cfg.Issuer {
					inv.SetError(rpc.Info("invalid token issuer"))
					return inv.Err()
				}
			}

			return next(ctx, inv)
		}
	}
}
