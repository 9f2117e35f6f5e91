package session

import "github.com/mmynk/finduo/internal/models"

// State is one node of the conversation. Each state type carries only the
// draft fields collected so far.
type State interface {
	// Name is the stable identifier reported to the transport.
	Name() string
	isState()
}

// Idle is the resting state. Menu choices start flows from here.
type Idle struct{}

// Transaction flow.

type TypingAmount struct {
	Type models.RecordType
}

type TypingCategory struct {
	Type   models.RecordType
	Amount float64
}

type TypingCustomCategory struct {
	Type   models.RecordType
	Amount float64
}

type TypingDescription struct {
	Type     models.RecordType
	Amount   float64
	Category string
}

// TypingDueDate is only reached by debts.
type TypingDueDate struct {
	Type        models.RecordType
	Amount      float64
	Category    string
	Description string
}

// Registration and family flow.

type TypingUsername struct{}

type ChoosingRegistrationType struct{}

type TypingGroupName struct{}

type TypingInvitationCode struct{}

// Payday flow.

type SettingPaydayDay struct{}

type SettingPaydayMonth struct {
	Day int
}

type SettingMonthlyPayday struct{}

// Goal flow.

type SettingGoalName struct{}

type SettingGoalAmount struct {
	GoalName string
}

type SettingGoalDate struct {
	GoalName string
	Amount   float64
}

// Budget flow.

type ChoosingBudgetCategory struct{}

type SettingBudget struct {
	Category string
}

func (Idle) Name() string                     { return "idle" }
func (TypingAmount) Name() string             { return "typing_amount" }
func (TypingCategory) Name() string           { return "typing_category" }
func (TypingCustomCategory) Name() string     { return "typing_custom_category" }
func (TypingDescription) Name() string        { return "typing_description" }
func (TypingDueDate) Name() string            { return "typing_due_date" }
func (TypingUsername) Name() string           { return "typing_username" }
func (ChoosingRegistrationType) Name() string { return "choosing_registration_type" }
func (TypingGroupName) Name() string          { return "typing_group_name" }
func (TypingInvitationCode) Name() string     { return "typing_invitation_code" }
func (SettingPaydayDay) Name() string         { return "setting_payday_day" }
func (SettingPaydayMonth) Name() string       { return "setting_payday_month" }
func (SettingMonthlyPayday) Name() string     { return "setting_monthly_payday" }
func (SettingGoalName) Name() string          { return "setting_goal_name" }
func (SettingGoalAmount) Name() string        { return "setting_goal_amount" }
func (SettingGoalDate) Name() string          { return "setting_goal_date" }
func (ChoosingBudgetCategory) Name() string   { return "choosing_budget_category" }
func (SettingBudget) Name() string            { return "setting_budget" }

func (Idle) isState()                     {}
func (TypingAmount) isState()             {}
func (TypingCategory) isState()           {}
func (TypingCustomCategory) isState()     {}
func (TypingDescription) isState()        {}
func (TypingDueDate) isState()            {}
func (TypingUsername) isState()           {}
func (ChoosingRegistrationType) isState() {}
func (TypingGroupName) isState()          {}
func (TypingInvitationCode) isState()     {}
func (SettingPaydayDay) isState()         {}
func (SettingPaydayMonth) isState()       {}
func (SettingMonthlyPayday) isState()     {}
func (SettingGoalName) isState()          {}
func (SettingGoalAmount) isState()        {}
func (SettingGoalDate) isState()          {}
func (ChoosingBudgetCategory) isState()   {}
func (SettingBudget) isState()            {}
