package domain

import (
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// Group returns a copy of the group with the given id, or nil.
func (tx *Tx) Group(id string) *models.FamilyGroup {
	g, ok := tx.s.groups[id]
	if !ok {
		return nil
	}
	return g.Clone()
}

// GroupOf returns a copy of the group the user belongs to, or nil.
func (tx *Tx) GroupOf(userID int64) *models.FamilyGroup {
	gid, ok := tx.s.userGroup[userID]
	if !ok {
		return nil
	}
	return tx.Group(gid)
}

// ActiveGroupByCode returns a copy of the active group whose invitation code
// equals code exactly, or nil.
func (tx *Tx) ActiveGroupByCode(code string) *models.FamilyGroup {
	for _, g := range tx.s.groups {
		if g.IsActive() && g.InvitationCode == code {
			return g.Clone()
		}
	}
	return nil
}

// CodeInUse reports whether an active group already uses code.
func (tx *Tx) CodeInUse(code string) bool {
	return tx.ActiveGroupByCode(code) != nil
}

// SaveGroup stores g and points every member's reverse index entry at it,
// then persists the group. Both in-memory structures are updated before the
// write is attempted.
func (tx *Tx) SaveGroup(g *models.FamilyGroup) error {
	if g == nil || g.ID == "" {
		return models.NewValidationError("group_id", "empty")
	}
	if len(g.MemberIDs) != len(g.MemberNames) {
		return models.NewValidationError("members", "length_mismatch")
	}

	c := g.Clone()
	if prev, ok := tx.s.groups[c.ID]; ok {
		for _, id := range prev.MemberIDs {
			if tx.s.userGroup[id] == c.ID && !c.HasMember(id) {
				delete(tx.s.userGroup, id)
			}
		}
	}
	tx.s.groups[c.ID] = c
	if c.IsActive() {
		for _, id := range c.MemberIDs {
			tx.s.userGroup[id] = c.ID
		}
	} else {
		for _, id := range c.MemberIDs {
			if tx.s.userGroup[id] == c.ID {
				delete(tx.s.userGroup, id)
			}
		}
	}

	tx.s.upsert(tx.ctx, storage.PartitionGroups, groupKey, groupRow(c))
	return nil
}
