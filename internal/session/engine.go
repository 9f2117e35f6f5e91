// Package session runs one conversation state machine per user. Each event
// is validated against the user's current state, applied to the domain and
// answered with a prompt describing what to show next.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mmynk/finduo/internal/analyzer"
	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/family"
	"github.com/mmynk/finduo/internal/ledger"
	"github.com/mmynk/finduo/internal/metrics"
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/payday"
)

// HistoryLimit is the number of records shown by the history action.
const HistoryLimit = 20

// Deps are the collaborators an Engine drives.
type Deps struct {
	Store    *domain.Store
	Family   *family.Manager
	Payday   *payday.Scheduler
	Analyzer *analyzer.Analyzer
	Ledger   ledger.Ledger
	Logger   *slog.Logger
	Metrics  metrics.Recorder
}

// Engine dispatches events to per-user sessions.
type Engine struct {
	store    *domain.Store
	family   *family.Manager
	payday   *payday.Scheduler
	analyzer *analyzer.Analyzer
	ledger   ledger.Ledger
	logger   *slog.Logger
	metrics  metrics.Recorder

	mu       sync.Mutex
	sessions map[int64]*session
}

// session is the per-user record. Its state is replaced as a whole on
// every transition, so completing or cancelling a flow drops the draft.
type session struct {
	mu    sync.Mutex
	state State
}

// NewEngine creates an Engine.
func NewEngine(deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	return &Engine{
		store:    deps.Store,
		family:   deps.Family,
		payday:   deps.Payday,
		analyzer: deps.Analyzer,
		ledger:   deps.Ledger,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		sessions: make(map[int64]*session),
	}
}

func (e *Engine) session(userID int64) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok {
		s = &session{state: Idle{}}
		e.sessions[userID] = s
	}
	return s
}

// State returns the user's current state. Users without a session are idle.
func (e *Engine) State(userID int64) State {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies ev to the user's session and returns the resulting state
// and prompt. Failures inside a flow are reported in the prompt; the only
// error returned is for an invalid user id.
func (e *Engine) Dispatch(ctx context.Context, userID int64, ev Event) (Result, error) {
	if userID <= 0 {
		return Result{}, models.NewValidationError("user_id", "not_positive")
	}
	ev.Choice = strings.TrimSpace(ev.Choice)
	e.metrics.RecordEvent(ev.Kind())

	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	next, prompt := e.step(ctx, userID, from, ev)
	s.state = next

	e.logger.Debug("session transition",
		"user_id", userID,
		"event", ev.Kind(),
		"from", from.Name(),
		"to", next.Name(),
		"prompt", prompt.Kind,
	)
	return Result{State: next.Name(), Prompt: prompt}, nil
}

func (e *Engine) step(ctx context.Context, userID int64, st State, ev Event) (State, Prompt) {
	switch ev.Choice {
	case ChoiceStart:
		return e.start(ctx, userID)
	case ChoiceCancel:
		return Idle{}, Prompt{Kind: KindCancelled, Options: MainMenu}
	}

	if _, idle := st.(Idle); !idle && isMenuChoice(ev.Choice) {
		// A menu choice abandons the flow in progress.
		return e.idle(ctx, userID, ev)
	}

	switch st := st.(type) {
	case Idle:
		return e.idle(ctx, userID, ev)
	case TypingAmount:
		return e.typingAmount(ctx, userID, st, ev)
	case TypingCategory:
		return e.typingCategory(ctx, userID, st, ev)
	case TypingCustomCategory:
		return e.typingCustomCategory(ctx, userID, st, ev)
	case TypingDescription:
		return e.typingDescription(ctx, userID, st, ev)
	case TypingDueDate:
		return e.typingDueDate(ctx, userID, st, ev)
	case TypingUsername:
		return e.typingUsername(ctx, userID, st, ev)
	case ChoosingRegistrationType:
		return e.choosingRegistrationType(ctx, userID, st, ev)
	case TypingGroupName:
		return e.typingGroupName(ctx, userID, st, ev)
	case TypingInvitationCode:
		return e.typingInvitationCode(ctx, userID, st, ev)
	case SettingPaydayDay:
		return e.settingPaydayDay(ctx, userID, st, ev)
	case SettingPaydayMonth:
		return e.settingPaydayMonth(ctx, userID, st, ev)
	case SettingMonthlyPayday:
		return e.settingMonthlyPayday(ctx, userID, st, ev)
	case SettingGoalName:
		return e.settingGoalName(ctx, userID, st, ev)
	case SettingGoalAmount:
		return e.settingGoalAmount(ctx, userID, st, ev)
	case SettingGoalDate:
		return e.settingGoalDate(ctx, userID, st, ev)
	case ChoosingBudgetCategory:
		return e.choosingBudgetCategory(ctx, userID, st, ev)
	case SettingBudget:
		return e.settingBudget(ctx, userID, st, ev)
	}

	e.logger.Error("session in unknown state", "user_id", userID, "state", st.Name())
	return e.mainMenu(ctx, userID, ErrClassInternal)
}

// start registers the user if needed and either opens registration or
// shows the main menu.
func (e *Engine) start(ctx context.Context, userID int64) (State, Prompt) {
	u, created, err := e.store.RegisterUser(ctx, userID, "")
	if err != nil {
		e.logger.Error("register user failed", "user_id", userID, "error", err)
		return Idle{}, Prompt{Kind: KindMainMenu, Error: errorClass(err), Options: MainMenu}
	}
	if created || !u.IsRegistered() {
		return e.enter(ctx, userID, TypingUsername{})
	}
	return e.mainMenu(ctx, userID, "")
}

func (e *Engine) mainMenu(ctx context.Context, userID int64, errClass string) (State, Prompt) {
	st, p := e.enter(ctx, userID, Idle{})
	p.Error = errClass
	return st, p
}

// enter moves to st and returns its prompt.
func (e *Engine) enter(ctx context.Context, userID int64, st State) (State, Prompt) {
	return st, e.promptFor(ctx, userID, st)
}

// reprompt stays in st and reports err.
func (e *Engine) reprompt(ctx context.Context, userID int64, st State, err error) (State, Prompt) {
	return e.repromptClass(ctx, userID, st, errorClass(err))
}

func (e *Engine) repromptClass(ctx context.Context, userID int64, st State, class string) (State, Prompt) {
	e.metrics.RecordValidationError(class)
	p := e.promptFor(ctx, userID, st)
	p.Error = class
	return st, p
}

// fail returns to idle after an operation failed for a reason other than
// the user's input.
func (e *Engine) fail(ctx context.Context, userID int64, op string, err error) (State, Prompt) {
	e.logger.Error("session operation failed", "user_id", userID, "op", op, "error", err)
	return e.mainMenu(ctx, userID, errorClass(err))
}

func (e *Engine) promptFor(ctx context.Context, userID int64, st State) Prompt {
	switch st := st.(type) {
	case Idle:
		return Prompt{
			Kind:    KindMainMenu,
			Options: MainMenu,
			Payload: MenuPayload{UserName: e.displayName(ctx, userID)},
		}
	case TypingAmount:
		return Prompt{Kind: KindAskAmount, Options: cancelOnly, Payload: TransactionPayload{Type: st.Type}}
	case TypingCategory:
		options := categoryOptions(e.store.UserCategories(ctx, userID, st.Type))
		options = append(options, ChoiceCustomCategory, ChoiceCancel)
		return Prompt{
			Kind:    KindChooseCategory,
			Options: options,
			Payload: TransactionPayload{Type: st.Type, Amount: st.Amount},
		}
	case TypingCustomCategory:
		return Prompt{Kind: KindAskCustomCategory, Options: cancelOnly, Payload: TransactionPayload{Type: st.Type, Amount: st.Amount}}
	case TypingDescription:
		return Prompt{
			Kind:    KindAskDescription,
			Options: cancelOnly,
			Payload: TransactionPayload{Type: st.Type, Amount: st.Amount, Category: st.Category},
		}
	case TypingDueDate:
		return Prompt{
			Kind:    KindAskDueDate,
			Options: cancelOnly,
			Payload: TransactionPayload{Type: st.Type, Amount: st.Amount, Category: st.Category, Description: st.Description},
		}
	case TypingUsername:
		return Prompt{Kind: KindAskUsername}
	case ChoosingRegistrationType:
		return Prompt{
			Kind:    KindChooseRegistrationType,
			Options: []string{ChoiceRegistrationCreate, ChoiceRegistrationJoin, ChoiceRegistrationSolo},
			Payload: MenuPayload{UserName: e.displayName(ctx, userID)},
		}
	case TypingGroupName:
		return Prompt{Kind: KindAskGroupName, Options: cancelOnly}
	case TypingInvitationCode:
		return Prompt{Kind: KindAskInvitationCode, Options: cancelOnly}
	case SettingPaydayDay:
		return Prompt{Kind: KindAskPaydayDay, Options: cancelOnly}
	case SettingPaydayMonth:
		return Prompt{Kind: KindAskPaydayMonth, Options: cancelOnly, Payload: PaydayPayload{Day: st.Day}}
	case SettingMonthlyPayday:
		return Prompt{Kind: KindAskMonthlyPayday, Options: cancelOnly}
	case SettingGoalName:
		return Prompt{Kind: KindAskGoalName, Options: cancelOnly}
	case SettingGoalAmount:
		return Prompt{Kind: KindAskGoalAmount, Options: cancelOnly, Payload: GoalPayload{Name: st.GoalName}}
	case SettingGoalDate:
		return Prompt{Kind: KindAskGoalDate, Options: cancelOnly, Payload: GoalPayload{Name: st.GoalName, TargetAmount: st.Amount}}
	case ChoosingBudgetCategory:
		options := categoryOptions(e.store.UserCategories(ctx, userID, models.RecordExpense))
		return Prompt{Kind: KindChooseBudgetCategory, Options: append(options, ChoiceCancel)}
	case SettingBudget:
		return Prompt{Kind: KindAskBudgetAmount, Options: cancelOnly, Payload: BudgetPayload{Category: st.Category}}
	}
	return Prompt{Kind: KindMainMenu, Options: MainMenu}
}

var cancelOnly = []string{ChoiceCancel}

func (e *Engine) displayName(ctx context.Context, userID int64) string {
	if u := e.store.User(ctx, userID); u != nil {
		return u.DisplayName
	}
	return models.PlaceholderName(userID)
}

func categoryOptions(categories []string) []string {
	out := make([]string, 0, len(categories)+2)
	for _, c := range categories {
		out = append(out, CategoryChoice(c))
	}
	return out
}

// matchCategory resolves a choice or typed label against categories,
// ignoring case. It returns the stored spelling.
func matchCategory(categories []string, ev Event) (string, bool) {
	label := strings.TrimSpace(ev.Text)
	if ev.Choice != "" {
		var ok bool
		if label, ok = categoryFromChoice(ev.Choice); !ok {
			return "", false
		}
	}
	i := slices.IndexFunc(categories, func(c string) bool {
		return strings.EqualFold(c, label)
	})
	if i < 0 {
		return "", false
	}
	return categories[i], true
}

func isMenuChoice(choice string) bool {
	return slices.Contains(MainMenu, choice)
}

// isValidation reports whether err is bad input that should be re-prompted.
func isValidation(err error) bool {
	return errors.Is(err, models.ErrValidation)
}
