package domain

import (
	"slices"
	"strings"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// RegisterUser returns the user with the given id, creating it when missing.
// The boolean reports whether the user was created.
func (tx *Tx) RegisterUser(id int64, name string) (*models.User, bool, error) {
	if id <= 0 {
		return nil, false, models.NewValidationError("user_id", "not_positive")
	}
	if u, ok := tx.s.users[id]; ok {
		c := *u
		return &c, false, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = models.PlaceholderName(id)
	}
	now := tx.Now()
	u := &models.User{
		ID:           id,
		DisplayName:  name,
		RegisteredAt: now,
		LastActivity: now,
		Preferences:  tx.s.defaults,
	}
	tx.s.users[id] = u
	tx.s.logger.Info("user registered", "user_id", id)

	tx.s.upsert(tx.ctx, storage.PartitionUsers, userKey, userRow(u))
	c := *u
	return &c, true, nil
}

// User returns a copy of the user, or nil when unknown.
func (tx *Tx) User(id int64) *models.User {
	u, ok := tx.s.users[id]
	if !ok {
		return nil
	}
	c := *u
	return &c
}

// Users returns copies of all users ordered by id.
func (tx *Tx) Users() []*models.User {
	out := make([]*models.User, 0, len(tx.s.users))
	for _, u := range tx.s.users {
		c := *u
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.User) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// DisplayName returns the user's name, or the placeholder when unknown.
func (tx *Tx) DisplayName(id int64) string {
	if u, ok := tx.s.users[id]; ok {
		return u.DisplayName
	}
	return models.PlaceholderName(id)
}

// SaveUser replaces the stored user and persists it. When the display name
// changed, the user's entry in its group's member names follows.
func (tx *Tx) SaveUser(u *models.User) error {
	if u == nil || u.ID <= 0 {
		return models.NewValidationError("user_id", "not_positive")
	}
	c := *u
	tx.s.users[u.ID] = &c

	if gid, ok := tx.s.userGroup[u.ID]; ok {
		if g, ok := tx.s.groups[gid]; ok {
			for i, id := range g.MemberIDs {
				if id == u.ID {
					g.MemberNames[i] = u.DisplayName
				}
			}
		}
	}

	tx.s.upsert(tx.ctx, storage.PartitionUsers, userKey, userRow(&c))
	return nil
}
