package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/finduo/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// BridgeIDKey is the context key for storing the authenticated bridge ID.
const BridgeIDKey contextKey = "bridge_id"

// GetBridgeID extracts the bridge ID from the context.
// Returns empty string if not found.
func GetBridgeID(ctx context.Context) string {
	bridgeID, _ := ctx.Value(BridgeIDKey).(string)
	return bridgeID
}

// bearerToken extracts the token of a "Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// RequireAuth returns an interceptor that validates JWT tokens and requires
// authentication. Procedures listed in public are let through without a token.
func RequireAuth(jwtManager *auth.JWTManager, public ...string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			for _, p := range public {
				if req.Spec().Procedure == p {
					return next(ctx, req)
				}
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			ctx = context.WithValue(ctx, BridgeIDKey, claims.BridgeID)
			return next(ctx, req)
		}
	}
}
