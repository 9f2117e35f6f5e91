package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// UserScoped is implemented by request messages that act for one chat user.
type UserScoped interface {
	ChatUserID() int64
}

// chatUserID returns the user a request acts for, or 0.
func chatUserID(req connect.AnyRequest) int64 {
	if scoped, ok := req.Any().(UserScoped); ok {
		return scoped.ChatUserID()
	}
	return 0
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, bridge, chat user, duration, and any error codes/messages.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", procedure,
				"bridge_id", GetBridgeID(ctx),
				"user_id", chatUserID(req),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					logger.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
				} else {
					logger.Error("RPC error", append(attrs, "error", err)...)
				}
			} else {
				logger.Info("RPC ok", attrs...)
			}

			return resp, err
		}
	}
}
