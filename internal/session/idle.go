package session

import (
	"context"
	"maps"
	"slices"

	"github.com/mmynk/finduo/internal/analyzer"
	"github.com/mmynk/finduo/internal/export"
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/payday"
)

func (e *Engine) idle(ctx context.Context, userID int64, ev Event) (State, Prompt) {
	u, _, err := e.store.RegisterUser(ctx, userID, "")
	if err != nil {
		return e.fail(ctx, userID, "register_user", err)
	}
	if !u.IsRegistered() {
		return e.enter(ctx, userID, TypingUsername{})
	}

	switch ev.Choice {
	case ChoiceMenuIncome:
		return e.enter(ctx, userID, TypingAmount{Type: models.RecordIncome})
	case ChoiceMenuExpense:
		return e.enter(ctx, userID, TypingAmount{Type: models.RecordExpense})
	case ChoiceMenuDebt:
		return e.enter(ctx, userID, TypingAmount{Type: models.RecordDebt})

	case ChoiceMenuAnalysis:
		return Idle{}, e.monthlyAnalysis(ctx, userID)
	case ChoiceMenuTrends:
		return Idle{}, e.spendingTrends(ctx, userID)
	case ChoiceMenuHistory:
		return Idle{}, e.history(ctx, userID)
	case ChoiceMenuBudgets:
		return Idle{}, e.budgetList(ctx, userID)
	case ChoiceBudgetAnalysis:
		return Idle{}, e.budgetAnalysis(ctx, userID)
	case ChoiceMenuGoals, ChoiceGoalList:
		return Idle{}, e.goalList(ctx, userID)
	case ChoiceMenuReminders:
		return Idle{}, e.paydayStatus(ctx, userID)
	case ChoiceMenuSettings:
		return Idle{}, e.profile(ctx, u)
	case ChoiceSettingsToggleReminders:
		return e.toggleReminders(ctx, u)
	case ChoiceMenuFamily:
		return Idle{}, e.familyStatus(ctx, userID)
	case ChoiceMenuExport:
		return Idle{}, e.export(ctx, u)

	case ChoiceBudgetCreate:
		return e.enter(ctx, userID, ChoosingBudgetCategory{})
	case ChoiceGoalCreate:
		return e.enter(ctx, userID, SettingGoalName{})
	case ChoiceSettingsPaydayDate:
		return e.enter(ctx, userID, SettingPaydayDay{})
	case ChoiceSettingsPaydayDay:
		return e.enter(ctx, userID, SettingMonthlyPayday{})
	case ChoiceFamilyCreate, ChoiceFamilyJoin:
		if e.family.GroupOf(ctx, userID) != nil {
			p := e.familyStatus(ctx, userID)
			p.Error = ErrClassAlreadyInGroup
			return Idle{}, p
		}
		if ev.Choice == ChoiceFamilyCreate {
			return e.enter(ctx, userID, TypingGroupName{})
		}
		return e.enter(ctx, userID, TypingInvitationCode{})
	}

	return e.mainMenu(ctx, userID, ErrClassUnknownChoice)
}

func noData(report string) Prompt {
	return Prompt{Kind: KindNoData, Options: MainMenu, Payload: NoDataPayload{Report: report}}
}

func (e *Engine) monthlyAnalysis(ctx context.Context, userID int64) Prompt {
	s, ok := e.analyzer.MonthlySummary(ctx, userID)
	if !ok {
		return noData(KindMonthlyAnalysis)
	}
	return Prompt{Kind: KindMonthlyAnalysis, Options: MainMenu, Payload: s}
}

func (e *Engine) spendingTrends(ctx context.Context, userID int64) Prompt {
	t, ok := e.analyzer.SpendingTrends(ctx, userID, analyzer.DefaultTrendMonths)
	if !ok {
		return noData(KindSpendingTrends)
	}
	return Prompt{
		Kind:    KindSpendingTrends,
		Options: MainMenu,
		Payload: analyzer.Trends{Months: t.Recent(analyzer.DefaultTrendMonths)},
	}
}

func (e *Engine) history(ctx context.Context, userID int64) Prompt {
	records, ok := e.analyzer.History(ctx, userID, HistoryLimit)
	if !ok {
		return noData(KindHistory)
	}
	out := make([]RecordPayload, len(records))
	for i, r := range records {
		out[i] = RecordPayload{
			Type:        r.Type,
			Amount:      r.Amount,
			Category:    r.Category,
			Description: r.Description,
			DueDate:     r.DueDate,
		}
		if !r.Timestamp.IsZero() {
			out[i].Timestamp = r.Timestamp.In(e.store.Location()).Format(models.TimestampLayout)
		}
	}
	return Prompt{Kind: KindHistory, Options: MainMenu, Payload: out}
}

func (e *Engine) budgetList(ctx context.Context, userID int64) Prompt {
	budgets := e.store.Budgets(ctx, userID)
	out := make([]BudgetPayload, 0, len(budgets))
	for _, category := range slices.Sorted(maps.Keys(budgets)) {
		out = append(out, BudgetPayload{Category: category, Amount: budgets[category]})
	}
	return Prompt{
		Kind:    KindBudgetList,
		Options: []string{ChoiceBudgetCreate, ChoiceBudgetAnalysis},
		Payload: out,
	}
}

func (e *Engine) budgetAnalysis(ctx context.Context, userID int64) Prompt {
	statuses, ok := e.analyzer.BudgetAnalysis(ctx, userID)
	if !ok {
		p := noData(KindBudgetAnalysis)
		p.Options = []string{ChoiceBudgetCreate}
		return p
	}
	return Prompt{Kind: KindBudgetAnalysis, Options: MainMenu, Payload: statuses}
}

func goalPayload(p analyzer.GoalProgress) GoalPayload {
	return GoalPayload{
		Name:            p.Goal.Name,
		TargetAmount:    p.Goal.TargetAmount,
		SavedAmount:     p.Goal.SavedAmount,
		TargetDate:      p.Goal.TargetDate.Format(models.DateLayout),
		DaysUntilTarget: p.DaysUntilTarget,
		DailyRequired:   p.DailyRequired,
		Percentage:      p.Percentage,
	}
}

func (e *Engine) goalList(ctx context.Context, userID int64) Prompt {
	progress := e.analyzer.Goals(ctx, userID)
	out := make([]GoalPayload, len(progress))
	for i, p := range progress {
		out[i] = goalPayload(p)
	}
	return Prompt{Kind: KindGoalList, Options: []string{ChoiceGoalCreate}, Payload: out}
}

func (e *Engine) paydayStatus(ctx context.Context, userID int64) Prompt {
	options := []string{ChoiceSettingsPaydayDate, ChoiceSettingsPaydayDay, ChoiceSettingsToggleReminders}
	r, ok := e.payday.Reminder(ctx, userID)
	if !ok {
		p := noData(KindPaydayStatus)
		p.Options = options
		return p
	}
	return Prompt{
		Kind:    KindPaydayStatus,
		Options: options,
		Payload: e.paydayPayload(ctx, userID, r),
	}
}

func (e *Engine) paydayPayload(ctx context.Context, userID int64, r payday.Reminder) PaydayPayload {
	p := PaydayPayload{
		NextPayday: r.Date.Format(models.DateLayout),
		DaysUntil:  r.Days,
		Reminder:   string(r.Kind),
		Eligible:   e.payday.ShouldSendReminder(ctx, userID),
	}
	if s := e.store.Payday(ctx, userID); s != nil {
		p.Day = s.Day
		p.Month = s.Month
		p.Monthly = s.IsLegacy()
	}
	return p
}

func (e *Engine) profile(ctx context.Context, u *models.User) Prompt {
	p := ProfilePayload{
		UserID:        u.ID,
		UserName:      u.DisplayName,
		RegisteredAt:  u.RegisteredAt.In(e.store.Location()).Format(models.DateLayout),
		MonthlyIncome: u.MonthlyIncome,
		Preferences:   u.Preferences,
		PaydayDay:     u.PaydayDay,
		PaydayDate:    u.PaydayDate,
	}
	if g := e.family.GroupOf(ctx, u.ID); g != nil {
		p.GroupName = g.Name
	}
	return Prompt{
		Kind:    KindProfile,
		Options: []string{ChoiceSettingsPaydayDate, ChoiceSettingsPaydayDay, ChoiceSettingsToggleReminders},
		Payload: p,
	}
}

func (e *Engine) toggleReminders(ctx context.Context, u *models.User) (State, Prompt) {
	u.Preferences.PaydayReminders = !u.Preferences.PaydayReminders
	if err := e.store.SaveUser(ctx, u); err != nil {
		return e.fail(ctx, u.ID, "toggle_reminders", err)
	}
	e.logger.Info("payday reminders toggled",
		"user_id", u.ID,
		"enabled", u.Preferences.PaydayReminders,
	)
	return Idle{}, e.profile(ctx, u)
}

func groupPayload(g *models.FamilyGroup) *GroupPayload {
	return &GroupPayload{
		ID:             g.ID,
		Name:           g.Name,
		InvitationCode: g.InvitationCode,
		CreatorID:      g.CreatorID,
		Members:        slices.Clone(g.MemberNames),
	}
}

func (e *Engine) familyStatus(ctx context.Context, userID int64) Prompt {
	g := e.family.GroupOf(ctx, userID)
	if g == nil {
		return Prompt{
			Kind:    KindFamilyStatus,
			Options: []string{ChoiceFamilyCreate, ChoiceFamilyJoin},
			Payload: FamilyStatusPayload{},
		}
	}
	return Prompt{
		Kind:    KindFamilyStatus,
		Options: MainMenu,
		Payload: FamilyStatusPayload{Grouped: true, Group: groupPayload(g)},
	}
}

func (e *Engine) export(ctx context.Context, u *models.User) Prompt {
	st, ok := e.analyzer.Statement(ctx, u.ID)
	if !ok {
		return noData(KindExport)
	}
	data, err := export.StatementPDF(st, u.Preferences.Currency)
	if err != nil {
		e.logger.Error("statement export failed", "user_id", u.ID, "error", err)
		return Prompt{Kind: KindMainMenu, Error: ErrClassInternal, Options: MainMenu}
	}
	e.logger.Info("statement exported", "user_id", u.ID, "records", len(st.Records), "bytes", len(data))
	return Prompt{
		Kind:    KindExport,
		Options: MainMenu,
		Attachment: &Attachment{
			Filename:    export.Filename(st),
			ContentType: export.ContentType,
			Data:        data,
		},
	}
}
