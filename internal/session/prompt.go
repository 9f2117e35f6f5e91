package session

import (
	"errors"

	"github.com/mmynk/finduo/internal/models"
)

// Prompt kinds. A prompt tells the transport what to render; it never
// carries message text.
const (
	KindMainMenu               = "main_menu"
	KindCancelled              = "cancelled"
	KindAskAmount              = "ask_amount"
	KindChooseCategory         = "choose_category"
	KindAskCustomCategory      = "ask_custom_category"
	KindAskDescription         = "ask_description"
	KindAskDueDate             = "ask_due_date"
	KindTransactionSaved       = "transaction_saved"
	KindAskUsername            = "ask_username"
	KindChooseRegistrationType = "choose_registration_type"
	KindRegistrationComplete   = "registration_complete"
	KindAskGroupName           = "ask_group_name"
	KindAskInvitationCode      = "ask_invitation_code"
	KindGroupCreated           = "group_created"
	KindGroupJoined            = "group_joined"
	KindAskPaydayDay           = "ask_payday_day"
	KindAskPaydayMonth         = "ask_payday_month"
	KindAskMonthlyPayday       = "ask_monthly_payday"
	KindPaydaySet              = "payday_set"
	KindAskGoalName            = "ask_goal_name"
	KindAskGoalAmount          = "ask_goal_amount"
	KindAskGoalDate            = "ask_goal_date"
	KindGoalCreated            = "goal_created"
	KindChooseBudgetCategory   = "choose_budget_category"
	KindAskBudgetAmount        = "ask_budget_amount"
	KindBudgetSet              = "budget_set"
	KindMonthlyAnalysis        = "monthly_analysis"
	KindSpendingTrends         = "spending_trends"
	KindBudgetList             = "budget_list"
	KindBudgetAnalysis         = "budget_analysis"
	KindGoalList               = "goal_list"
	KindHistory                = "history"
	KindPaydayStatus           = "payday_status"
	KindFamilyStatus           = "family_status"
	KindProfile                = "profile"
	KindExport                 = "export"
	KindNoData                 = "no_data"
)

// Error classes attached to prompts that are not validation reasons.
const (
	ErrClassCommitFailed        = "commit_failed"
	ErrClassUnknownChoice       = "unknown_choice"
	ErrClassUnknownCategory     = "unknown_category"
	ErrClassInvalidCode         = "invalid_code"
	ErrClassAlreadyMember       = "already_member"
	ErrClassAlreadyInOtherGroup = "already_in_other_group"
	ErrClassAlreadyInGroup      = "already_in_group"
	ErrClassUnavailable         = "unavailable"
	ErrClassInternal            = "internal"
)

// Prompt is the structured reply to an event.
type Prompt struct {
	Kind       string      `json:"kind"`
	Error      string      `json:"error,omitempty"`
	Options    []string    `json:"options,omitempty"`
	Payload    any         `json:"payload,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Attachment is a file sent along with a prompt.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Result is what Dispatch returns: the state after the event and the prompt to show.
type Result struct {
	State  string `json:"state"`
	Prompt Prompt `json:"prompt"`
}

// errorClass maps an error to the class reported in a prompt.
func errorClass(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.Is(err, models.ErrBackendUnavailable):
		return ErrClassUnavailable
	}
	return ErrClassInternal
}

// Payloads.

type NoDataPayload struct {
	Report string `json:"report"`
}

type MenuPayload struct {
	UserName string `json:"user_name"`
}

type TransactionPayload struct {
	Type        models.RecordType `json:"type"`
	Amount      float64           `json:"amount"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	DueDate     string            `json:"due_date,omitempty"`
}

type RecordPayload struct {
	Timestamp   string            `json:"timestamp,omitempty"`
	Type        models.RecordType `json:"type"`
	Amount      float64           `json:"amount"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	DueDate     string            `json:"due_date,omitempty"`
}

type GroupPayload struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	InvitationCode string   `json:"invitation_code"`
	CreatorID      int64    `json:"creator_id"`
	Members        []string `json:"members"`
}

type FamilyStatusPayload struct {
	Grouped bool          `json:"grouped"`
	Group   *GroupPayload `json:"group,omitempty"`
}

type PaydayPayload struct {
	Day        int    `json:"day"`
	Month      int    `json:"month,omitempty"`
	Monthly    bool   `json:"monthly"`
	NextPayday string `json:"next_payday"`
	DaysUntil  int    `json:"days_until"`
	Reminder   string `json:"reminder"`
	Eligible   bool   `json:"eligible"`
}

type GoalPayload struct {
	Name            string  `json:"name"`
	TargetAmount    float64 `json:"target_amount"`
	SavedAmount     float64 `json:"saved_amount"`
	TargetDate      string  `json:"target_date"`
	DaysUntilTarget int     `json:"days_until_target"`
	DailyRequired   float64 `json:"daily_required"`
	Percentage      float64 `json:"percentage"`
}

type BudgetPayload struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type ProfilePayload struct {
	UserID        int64              `json:"user_id"`
	UserName      string             `json:"user_name"`
	RegisteredAt  string             `json:"registered_at"`
	MonthlyIncome float64            `json:"monthly_income"`
	Preferences   models.Preferences `json:"preferences"`
	PaydayDay     int                `json:"payday_day,omitempty"`
	PaydayDate    string             `json:"payday_date,omitempty"`
	GroupName     string             `json:"group_name,omitempty"`
}
