package session

import "strings"

// Event is one inbound message. Exactly one of Text and Choice is set;
// Choice wins when both are.
type Event struct {
	Text   string `json:"text,omitempty"`
	Choice string `json:"choice,omitempty"`
}

// Kind returns "choice" or "text".
func (e Event) Kind() string {
	if e.Choice != "" {
		return "choice"
	}
	return "text"
}

// Choice identifiers understood by the engine.
const (
	ChoiceStart  = "start"
	ChoiceCancel = "cancel"

	ChoiceMenuIncome    = "menu:income"
	ChoiceMenuExpense   = "menu:expense"
	ChoiceMenuDebt      = "menu:debt"
	ChoiceMenuGoals     = "menu:goals"
	ChoiceMenuBudgets   = "menu:budgets"
	ChoiceMenuAnalysis  = "menu:analysis"
	ChoiceMenuTrends    = "menu:trends"
	ChoiceMenuHistory   = "menu:history"
	ChoiceMenuSettings  = "menu:settings"
	ChoiceMenuExport    = "menu:export"
	ChoiceMenuReminders = "menu:reminders"
	ChoiceMenuFamily    = "menu:family"

	ChoiceGoalCreate = "goal:create"
	ChoiceGoalList   = "goal:list"

	ChoiceBudgetCreate   = "budget:create"
	ChoiceBudgetAnalysis = "budget:analysis"

	ChoiceSettingsPaydayDate      = "settings:payday-date"
	ChoiceSettingsPaydayDay       = "settings:payday-day"
	ChoiceSettingsToggleReminders = "settings:toggle-reminders"

	ChoiceFamilyCreate = "family:create"
	ChoiceFamilyJoin   = "family:join"

	ChoiceRegistrationCreate = "registration:create"
	ChoiceRegistrationJoin   = "registration:join"
	ChoiceRegistrationSolo   = "registration:solo"

	// ChoiceCustomCategory asks for a new category while picking one.
	ChoiceCustomCategory = "category:custom"

	categoryChoicePrefix = "category:"
)

// CategoryChoice returns the choice id that selects category.
func CategoryChoice(category string) string {
	return categoryChoicePrefix + category
}

// categoryFromChoice extracts the label from a category choice.
func categoryFromChoice(choice string) (string, bool) {
	label, ok := strings.CutPrefix(choice, categoryChoicePrefix)
	if !ok || label == "" {
		return "", false
	}
	return label, true
}

// MainMenu lists the choices offered from idle.
var MainMenu = []string{
	ChoiceMenuIncome,
	ChoiceMenuExpense,
	ChoiceMenuDebt,
	ChoiceMenuGoals,
	ChoiceMenuBudgets,
	ChoiceMenuAnalysis,
	ChoiceMenuTrends,
	ChoiceMenuHistory,
	ChoiceMenuReminders,
	ChoiceMenuFamily,
	ChoiceMenuSettings,
	ChoiceMenuExport,
}
