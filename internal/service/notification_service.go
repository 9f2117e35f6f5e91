package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/notify"
)

// NotificationService hands queued payday reminders to the bridge.
type NotificationService struct {
	outbox *notify.Outbox
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(outbox *notify.Outbox) *NotificationService {
	return &NotificationService{outbox: outbox}
}

// Pull removes and returns queued reminders, oldest first.
func (s *NotificationService) Pull(_ context.Context, req *connect.Request[PullRequest]) (*connect.Response[PullResponse], error) {
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errNegativeLimit)
	}
	drained := s.outbox.Drain(req.Msg.Limit)
	out := make([]Notification, len(drained))
	for i, n := range drained {
		out[i] = Notification{
			UserID: n.UserID,
			Kind:   string(n.Kind),
			Date:   n.Date.Format(models.DateLayout),
		}
	}
	return connect.NewResponse(&PullResponse{Notifications: out}), nil
}
