package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/session"
)

// SessionService forwards chat events to the session engine.
type SessionService struct {
	engine *session.Engine
	logger *slog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(engine *session.Engine, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{engine: engine, logger: logger}
}

// Dispatch applies one event to the user's session.
func (s *SessionService) Dispatch(ctx context.Context, req *connect.Request[DispatchRequest]) (*connect.Response[DispatchResponse], error) {
	res, err := s.engine.Dispatch(ctx, req.Msg.UserID, session.Event{
		Text:   req.Msg.Text,
		Choice: req.Msg.Choice,
	})
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		s.logger.Error("Dispatch failed", "user_id", req.Msg.UserID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&DispatchResponse{
		State:  res.State,
		Prompt: res.Prompt,
	}), nil
}
