package models

import (
	"slices"
	"time"
)

// GroupStatus marks whether a family group is in use.
// Groups are never deleted, only marked inactive.
type GroupStatus string

const (
	GroupStatusActive   GroupStatus = "active"
	GroupStatusInactive GroupStatus = "inactive"
)

// GroupSettings are the sharing switches of a family group.
type GroupSettings struct {
	SharedBudgets         bool `json:"shared_budgets"`
	SharedGoals           bool `json:"shared_goals"`
	NotifyAllTransactions bool `json:"notify_all_transactions"`
}

// DefaultGroupSettings returns the settings a new group starts with.
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{SharedBudgets: true, SharedGoals: true}
}

// FamilyGroup is a household whose members share their finances.
type FamilyGroup struct {
	// ID is an 8 character identifier derived from a UUID.
	ID string

	// Name is the display name of the group (e.g., "Casa Lopez").
	Name string

	// InvitationCode is 8 characters from [A-Z0-9], unique among active groups.
	InvitationCode string

	// CreatorID is the user who created the group. The creator is always a member.
	CreatorID int64

	// MemberIDs lists members in join order.
	MemberIDs []int64

	// MemberNames is parallel to MemberIDs and always has the same length.
	MemberNames []string

	CreatedAt time.Time
	Status    GroupStatus
	Settings  GroupSettings
}

// IsActive reports whether the group is in use.
func (g *FamilyGroup) IsActive() bool {
	return g.Status == GroupStatusActive
}

// HasMember reports whether userID is in the member list.
func (g *FamilyGroup) HasMember(userID int64) bool {
	return slices.Contains(g.MemberIDs, userID)
}

// AddMember appends a member to both parallel lists.
func (g *FamilyGroup) AddMember(userID int64, name string) {
	g.MemberIDs = append(g.MemberIDs, userID)
	g.MemberNames = append(g.MemberNames, name)
}

// Clone returns a deep copy that callers may keep outside the store lock.
func (g *FamilyGroup) Clone() *FamilyGroup {
	c := *g
	c.MemberIDs = slices.Clone(g.MemberIDs)
	c.MemberNames = slices.Clone(g.MemberNames)
	return &c
}
