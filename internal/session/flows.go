package session

import (
	"context"
	"errors"
	"strings"

	"github.com/mmynk/finduo/internal/family"
	"github.com/mmynk/finduo/internal/models"
)

// Transaction flow.

func (e *Engine) typingAmount(ctx context.Context, userID int64, st TypingAmount, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	amount, err := ParseAmount("amount", ev.Text)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	return e.enter(ctx, userID, TypingCategory{Type: st.Type, Amount: amount})
}

func (e *Engine) typingCategory(ctx context.Context, userID int64, st TypingCategory, ev Event) (State, Prompt) {
	if ev.Choice == ChoiceCustomCategory {
		return e.enter(ctx, userID, TypingCustomCategory{Type: st.Type, Amount: st.Amount})
	}
	category, ok := matchCategory(e.store.UserCategories(ctx, userID, st.Type), ev)
	if !ok {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownCategory)
	}
	return e.enter(ctx, userID, TypingDescription{Type: st.Type, Amount: st.Amount, Category: category})
}

func (e *Engine) typingCustomCategory(ctx context.Context, userID int64, st TypingCustomCategory, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	name, err := parseLength("category", ev.Text, MinCustomCategoryLength, MaxCategoryLength)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	if err := e.store.AddCustomCategory(ctx, userID, st.Type, name); err != nil {
		if isValidation(err) {
			return e.reprompt(ctx, userID, st, err)
		}
		return e.fail(ctx, userID, "add_custom_category", err)
	}
	return e.enter(ctx, userID, TypingDescription{Type: st.Type, Amount: st.Amount, Category: name})
}

func (e *Engine) typingDescription(ctx context.Context, userID int64, st TypingDescription, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	description := ""
	if strings.TrimSpace(ev.Text) != skipInput {
		description = Sanitize(ev.Text, MaxDescriptionLength)
	}
	if st.Type == models.RecordDebt {
		return e.enter(ctx, userID, TypingDueDate{
			Type:        st.Type,
			Amount:      st.Amount,
			Category:    st.Category,
			Description: description,
		})
	}
	return e.commit(ctx, userID, TransactionPayload{
		Type:        st.Type,
		Amount:      st.Amount,
		Category:    st.Category,
		Description: description,
	})
}

func (e *Engine) typingDueDate(ctx context.Context, userID int64, st TypingDueDate, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	dueDate := ""
	if text := strings.TrimSpace(ev.Text); text != skipInput {
		d, err := ParseDate("due_date", text, e.store.Location())
		if err != nil {
			return e.reprompt(ctx, userID, st, err)
		}
		dueDate = d.Format(models.InputDateLayout)
	}
	return e.commit(ctx, userID, TransactionPayload{
		Type:        st.Type,
		Amount:      st.Amount,
		Category:    st.Category,
		Description: st.Description,
		DueDate:     dueDate,
	})
}

// commit writes the draft to the ledger and returns to idle either way.
func (e *Engine) commit(ctx context.Context, userID int64, draft TransactionPayload) (State, Prompt) {
	u := e.store.User(ctx, userID)
	if u == nil {
		return e.fail(ctx, userID, "commit", models.ErrNotFound)
	}
	now := e.store.Now()
	r := models.Record{
		Timestamp:   now,
		UserName:    u.DisplayName,
		Type:        draft.Type,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		Status:      models.RecordStatusCompleted,
	}
	if err := e.ledger.Append(ctx, r); err != nil {
		e.metrics.RecordCommitFailure()
		e.logger.Error("ledger commit failed",
			"user_id", userID,
			"type", draft.Type,
			"error", err,
		)
		return e.mainMenu(ctx, userID, ErrClassCommitFailed)
	}

	e.metrics.RecordCommit(string(draft.Type))
	u.LastActivity = now
	if err := e.store.SaveUser(ctx, u); err != nil {
		e.logger.Warn("could not update last activity", "user_id", userID, "error", err)
	}
	e.logger.Info("transaction committed",
		"user_id", userID,
		"type", draft.Type,
		"category", draft.Category,
	)
	return Idle{}, Prompt{Kind: KindTransactionSaved, Options: MainMenu, Payload: draft}
}

// Registration and family flow.

func (e *Engine) typingUsername(ctx context.Context, userID int64, st TypingUsername, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	name, err := ValidateUsername(ev.Text)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	u, created, err := e.store.RegisterUser(ctx, userID, name)
	if err != nil {
		return e.fail(ctx, userID, "register_user", err)
	}
	if !created {
		u.DisplayName = name
		if err := e.store.SaveUser(ctx, u); err != nil {
			return e.fail(ctx, userID, "save_user", err)
		}
	}
	e.logger.Info("user named", "user_id", userID)
	return e.enter(ctx, userID, ChoosingRegistrationType{})
}

func (e *Engine) choosingRegistrationType(ctx context.Context, userID int64, st ChoosingRegistrationType, ev Event) (State, Prompt) {
	switch ev.Choice {
	case ChoiceRegistrationCreate:
		return e.enter(ctx, userID, TypingGroupName{})
	case ChoiceRegistrationJoin:
		return e.enter(ctx, userID, TypingInvitationCode{})
	case ChoiceRegistrationSolo:
		return Idle{}, Prompt{
			Kind:    KindRegistrationComplete,
			Options: MainMenu,
			Payload: MenuPayload{UserName: e.displayName(ctx, userID)},
		}
	}
	return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
}

func (e *Engine) typingGroupName(ctx context.Context, userID int64, st TypingGroupName, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	g, err := e.family.Create(ctx, userID, Sanitize(ev.Text, 0))
	switch {
	case err == nil:
		return Idle{}, Prompt{Kind: KindGroupCreated, Options: MainMenu, Payload: groupPayload(g)}
	case isValidation(err):
		return e.reprompt(ctx, userID, st, err)
	case errors.Is(err, family.ErrAlreadyInOtherGroup):
		return e.mainMenu(ctx, userID, ErrClassAlreadyInGroup)
	}
	return e.fail(ctx, userID, "create_group", err)
}

func (e *Engine) typingInvitationCode(ctx context.Context, userID int64, st TypingInvitationCode, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	g, err := e.family.Join(ctx, userID, ev.Text)
	switch {
	case err == nil:
		return Idle{}, Prompt{Kind: KindGroupJoined, Options: MainMenu, Payload: groupPayload(g)}
	case isValidation(err):
		return e.reprompt(ctx, userID, st, err)
	case errors.Is(err, family.ErrInvalidCode):
		return e.repromptClass(ctx, userID, st, ErrClassInvalidCode)
	case errors.Is(err, family.ErrAlreadyMember):
		return e.repromptClass(ctx, userID, st, ErrClassAlreadyMember)
	case errors.Is(err, family.ErrAlreadyInOtherGroup):
		return e.repromptClass(ctx, userID, st, ErrClassAlreadyInOtherGroup)
	}
	return e.fail(ctx, userID, "join_group", err)
}

// Payday flow.

func (e *Engine) settingPaydayDay(ctx context.Context, userID int64, st SettingPaydayDay, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	day, err := ParseInt("payday_day", ev.Text, 1, 31)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	return e.enter(ctx, userID, SettingPaydayMonth{Day: day})
}

func (e *Engine) settingPaydayMonth(ctx context.Context, userID int64, st SettingPaydayMonth, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	month, err := ParseInt("payday_month", ev.Text, 1, 12)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	if _, err := e.payday.SetPaydayDate(ctx, userID, st.Day, month); err != nil {
		if isValidation(err) {
			return e.reprompt(ctx, userID, st, err)
		}
		return e.fail(ctx, userID, "set_payday_date", err)
	}
	return e.paydaySet(ctx, userID)
}

func (e *Engine) settingMonthlyPayday(ctx context.Context, userID int64, st SettingMonthlyPayday, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	day, err := ParseInt("payday_day", ev.Text, 1, 31)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	if _, err := e.payday.SetMonthlyPayday(ctx, userID, day); err != nil {
		if isValidation(err) {
			return e.reprompt(ctx, userID, st, err)
		}
		return e.fail(ctx, userID, "set_monthly_payday", err)
	}
	return e.paydaySet(ctx, userID)
}

func (e *Engine) paydaySet(ctx context.Context, userID int64) (State, Prompt) {
	r, ok := e.payday.Reminder(ctx, userID)
	if !ok {
		return e.mainMenu(ctx, userID, ErrClassInternal)
	}
	return Idle{}, Prompt{Kind: KindPaydaySet, Options: MainMenu, Payload: e.paydayPayload(ctx, userID, r)}
}

// Goal flow.

func (e *Engine) settingGoalName(ctx context.Context, userID int64, st SettingGoalName, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	name, err := parseLength("goal_name", ev.Text, MinGoalNameLength, MaxGoalNameLength)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	return e.enter(ctx, userID, SettingGoalAmount{GoalName: name})
}

func (e *Engine) settingGoalAmount(ctx context.Context, userID int64, st SettingGoalAmount, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	amount, err := ParseAmount("goal_amount", ev.Text)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	return e.enter(ctx, userID, SettingGoalDate{GoalName: st.GoalName, Amount: amount})
}

func (e *Engine) settingGoalDate(ctx context.Context, userID int64, st SettingGoalDate, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	date, err := ParseDate("goal_date", ev.Text, e.store.Location())
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	if models.DaysBetween(e.store.Now(), date) <= 0 {
		return e.reprompt(ctx, userID, st, models.NewValidationError("goal_date", "not_in_future"))
	}

	g := models.Goal{
		Name:         st.GoalName,
		TargetAmount: st.Amount,
		TargetDate:   date,
		CreatedAt:    e.store.Now(),
	}
	if err := e.store.AddGoal(ctx, userID, g); err != nil {
		if isValidation(err) {
			return e.reprompt(ctx, userID, st, err)
		}
		return e.fail(ctx, userID, "add_goal", err)
	}
	e.logger.Info("goal created", "user_id", userID, "target_date", date.Format(models.DateLayout))
	return Idle{}, Prompt{
		Kind:    KindGoalCreated,
		Options: []string{ChoiceGoalList},
		Payload: goalPayload(e.analyzer.GoalProgress(g)),
	}
}

// Budget flow.

func (e *Engine) choosingBudgetCategory(ctx context.Context, userID int64, st ChoosingBudgetCategory, ev Event) (State, Prompt) {
	category, ok := matchCategory(e.store.UserCategories(ctx, userID, models.RecordExpense), ev)
	if !ok {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownCategory)
	}
	return e.enter(ctx, userID, SettingBudget{Category: category})
}

func (e *Engine) settingBudget(ctx context.Context, userID int64, st SettingBudget, ev Event) (State, Prompt) {
	if ev.Choice != "" {
		return e.repromptClass(ctx, userID, st, ErrClassUnknownChoice)
	}
	amount, err := ParseAmount("budget_amount", ev.Text)
	if err != nil {
		return e.reprompt(ctx, userID, st, err)
	}
	if err := e.store.SetBudget(ctx, userID, st.Category, amount); err != nil {
		if isValidation(err) {
			return e.reprompt(ctx, userID, st, err)
		}
		return e.fail(ctx, userID, "set_budget", err)
	}
	e.logger.Info("budget set", "user_id", userID, "category", st.Category)
	return Idle{}, Prompt{
		Kind:    KindBudgetSet,
		Options: []string{ChoiceBudgetAnalysis},
		Payload: BudgetPayload{Category: st.Category, Amount: amount},
	}
}
