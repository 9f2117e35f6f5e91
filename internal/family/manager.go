// Package family manages family groups: creation with invitation codes and
// the membership rules for joining.
package family

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/models"
)

// Group name bounds, in characters.
const (
	MinNameLength = 3
	MaxNameLength = 50
)

// maxCodeDraws bounds the redraw loop for invitation codes.
const maxCodeDraws = 1000

var (
	// ErrInvalidCode is returned by Join when no active group has the code.
	ErrInvalidCode = fmt.Errorf("invitation code: %w", models.ErrNotFound)

	// ErrAlreadyMember is returned by Join when the user is already in the group.
	ErrAlreadyMember = fmt.Errorf("already a member of this group: %w", models.ErrConflict)

	// ErrAlreadyInOtherGroup is returned when the user belongs to a different group.
	ErrAlreadyInOtherGroup = fmt.Errorf("already a member of another group: %w", models.ErrConflict)

	// ErrCodeSpaceExhausted is returned when no unused invitation code could be drawn.
	ErrCodeSpaceExhausted = errors.New("could not draw an unused invitation code")
)

// Member is one entry of a group's member list.
type Member struct {
	ID   int64
	Name string
}

// Manager creates and joins family groups on top of the domain store.
type Manager struct {
	store   *domain.Store
	logger  *slog.Logger
	newCode func() (string, error)
	newID   func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithCodeGenerator replaces the invitation code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.newCode = gen }
}

// WithIDGenerator replaces the group id source.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates a Manager.
func NewManager(store *domain.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:   store,
		logger:  logger,
		newCode: NewInvitationCode,
		newID:   func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidateName checks a group name and returns it trimmed.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength {
		return "", models.NewValidationError("group_name", "too_short")
	}
	if n > MaxNameLength {
		return "", models.NewValidationError("group_name", "too_long")
	}
	return name, nil
}

// NormalizeCode trims and uppercases an invitation code and checks its length.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if utf8.RuneCountInString(code) != CodeLength {
		return "", models.NewValidationError("invitation_code", "wrong_length")
	}
	return code, nil
}

// Create makes a new active group with creatorID as its only member.
func (m *Manager) Create(ctx context.Context, creatorID int64, name string) (*models.FamilyGroup, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	var group *models.FamilyGroup
	err = m.store.Atomically(ctx, func(tx *domain.Tx) error {
		if tx.GroupOf(creatorID) != nil {
			return ErrAlreadyInOtherGroup
		}

		code, err := m.drawCode(tx)
		if err != nil {
			return err
		}
		id := m.newID()
		for tx.Group(id) != nil {
			id = m.newID()
		}

		group = &models.FamilyGroup{
			ID:             id,
			Name:           name,
			InvitationCode: code,
			CreatorID:      creatorID,
			CreatedAt:      tx.Now(),
			Status:         models.GroupStatusActive,
			Settings:       models.DefaultGroupSettings(),
		}
		group.AddMember(creatorID, tx.DisplayName(creatorID))
		return tx.SaveGroup(group)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("family group created",
		"group_id", group.ID,
		"user_id", creatorID,
	)
	return group, nil
}

// drawCode draws codes until one is not used by any active group.
func (m *Manager) drawCode(tx *domain.Tx) (string, error) {
	for range maxCodeDraws {
		code, err := m.newCode()
		if err != nil {
			return "", err
		}
		if !tx.CodeInUse(code) {
			return code, nil
		}
		m.logger.Debug("invitation code collision, redrawing")
	}
	return "", ErrCodeSpaceExhausted
}

// Join adds userID to the active group whose invitation code matches code.
// Checks run in order: unknown code, already a member, member of another group.
func (m *Manager) Join(ctx context.Context, userID int64, code string) (*models.FamilyGroup, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	var group *models.FamilyGroup
	err = m.store.Atomically(ctx, func(tx *domain.Tx) error {
		group = tx.ActiveGroupByCode(code)
		if group == nil {
			return ErrInvalidCode
		}
		if group.HasMember(userID) {
			return ErrAlreadyMember
		}
		if other := tx.GroupOf(userID); other != nil {
			return ErrAlreadyInOtherGroup
		}

		group.AddMember(userID, tx.DisplayName(userID))
		return tx.SaveGroup(group)
	})
	if err != nil {
		m.logger.Info("join rejected", "user_id", userID, "error", err)
		return nil, err
	}

	m.logger.Info("user joined family group",
		"group_id", group.ID,
		"user_id", userID,
		"members", len(group.MemberIDs),
	)
	return group, nil
}

// GroupOf returns the user's group, or nil when the user is not grouped.
func (m *Manager) GroupOf(ctx context.Context, userID int64) *models.FamilyGroup {
	return m.store.GroupOf(ctx, userID)
}

// Members returns the members of the user's group in join order, or just
// the user when not grouped.
func (m *Manager) Members(ctx context.Context, userID int64) []Member {
	var out []Member
	_ = m.store.Atomically(ctx, func(tx *domain.Tx) error {
		g := tx.GroupOf(userID)
		if g == nil {
			out = []Member{{ID: userID, Name: tx.DisplayName(userID)}}
			return nil
		}
		out = make([]Member, len(g.MemberIDs))
		for i, id := range g.MemberIDs {
			out[i] = Member{ID: id, Name: g.MemberNames[i]}
		}
		return nil
	})
	return out
}
