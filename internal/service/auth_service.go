package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/finduo/internal/auth"
)

// AuthService issues tokens to transport bridges.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// IssueToken authenticates a bridge and returns a JWT token.
func (s *AuthService) IssueToken(ctx context.Context, req *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error) {
	s.logger.Info("IssueToken request", "bridge_id", req.Msg.BridgeID)

	if req.Msg.BridgeID == "" || req.Msg.Secret == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	if err := s.authenticator.Authenticate(ctx, req.Msg.BridgeID, req.Msg.Secret); err != nil {
		s.logger.Warn("Bridge authentication failed", "bridge_id", req.Msg.BridgeID, "error", err)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, expires, err := s.jwtManager.Generate(req.Msg.BridgeID)
	if err != nil {
		s.logger.Error("Failed to generate token", "bridge_id", req.Msg.BridgeID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Token issued", "bridge_id", req.Msg.BridgeID, "expires_at", expires)
	return connect.NewResponse(&IssueTokenResponse{
		Token:     token,
		ExpiresAt: expires.UTC().Format(time.RFC3339),
	}), nil
}
