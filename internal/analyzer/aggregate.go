package analyzer

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/mmynk/finduo/internal/models"
)

// MonthKey formats the year-month bucket of t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Number of ranked categories in a monthly summary and in each trend month.
const (
	SummaryTopCategories = 5
	TrendTopCategories   = 3
)

// Summary is the aggregate of one calendar month.
type Summary struct {
	Month    string `json:"month"`
	UserName string `json:"user_name,omitempty"`

	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	TotalDebts    float64 `json:"total_debts"`

	// ByCategory sums every record type together.
	ByCategory map[string]float64 `json:"by_category"`

	TransactionCount int     `json:"transaction_count"`
	AvgTransaction   float64 `json:"avg_transaction"`

	// Balance is income minus expenses minus debts.
	Balance float64 `json:"balance"`

	// SavingsRate is Balance as a percentage of income, 0 when there is no income.
	SavingsRate float64 `json:"savings_rate"`

	// TopCategories are the largest categories of the month, largest first.
	TopCategories []string `json:"top_categories"`
}

// Summarize aggregates the records of month. When userName is not empty
// only that user's records count. The boolean is false when nothing matched.
func Summarize(records []models.Record, month time.Time, userName string) (*Summary, bool) {
	key := MonthKey(month)
	s := &Summary{
		Month:      key,
		UserName:   userName,
		ByCategory: make(map[string]float64),
	}

	var total float64
	for _, r := range records {
		if userName != "" && r.UserName != userName {
			continue
		}
		if r.Timestamp.IsZero() || MonthKey(r.Timestamp.In(month.Location())) != key {
			continue
		}

		switch r.Type {
		case models.RecordIncome:
			s.TotalIncome += r.Amount
		case models.RecordExpense:
			s.TotalExpenses += r.Amount
		case models.RecordDebt:
			s.TotalDebts += r.Amount
		}
		s.ByCategory[categoryOf(r)] += r.Amount
		s.TransactionCount++
		total += r.Amount
	}

	if s.TransactionCount == 0 {
		return nil, false
	}

	s.AvgTransaction = total / float64(s.TransactionCount)
	s.Balance = s.TotalIncome - s.TotalExpenses - s.TotalDebts
	if s.TotalIncome > 0 {
		s.SavingsRate = s.Balance / s.TotalIncome * 100
	}
	s.TopCategories = TopCategories(s.ByCategory, SummaryTopCategories)
	return s, true
}

// MonthSpending is the expense total of one month by category.
type MonthSpending struct {
	Month         string             `json:"month"`
	ByCategory    map[string]float64 `json:"by_category"`
	Total         float64            `json:"total"`
	TopCategories []string           `json:"top_categories"`
}

// Trends holds monthly expense buckets in ascending month order.
type Trends struct {
	Months []MonthSpending `json:"months"`
}

// Recent returns at most the last n months. n <= 0 returns every month.
func (t Trends) Recent(n int) []MonthSpending {
	if n <= 0 || n >= len(t.Months) {
		return t.Months
	}
	return t.Months[len(t.Months)-n:]
}

// SpendingTrends buckets expense records by month and category over the
// whole history. Records without a readable timestamp are left out.
func SpendingTrends(records []models.Record, loc *time.Location, userName string) (Trends, bool) {
	buckets := make(map[string]*MonthSpending)
	for _, r := range records {
		if r.Type != models.RecordExpense || r.Timestamp.IsZero() {
			continue
		}
		if userName != "" && r.UserName != userName {
			continue
		}
		key := MonthKey(r.Timestamp.In(loc))
		b, ok := buckets[key]
		if !ok {
			b = &MonthSpending{Month: key, ByCategory: make(map[string]float64)}
			buckets[key] = b
		}
		b.ByCategory[categoryOf(r)] += r.Amount
		b.Total += r.Amount
	}

	if len(buckets) == 0 {
		return Trends{}, false
	}
	var t Trends
	for _, key := range slices.Sorted(maps.Keys(buckets)) {
		b := buckets[key]
		b.TopCategories = TopCategories(b.ByCategory, TrendTopCategories)
		t.Months = append(t.Months, *b)
	}
	return t, true
}

// Budget statuses.
const (
	StatusOver    = "over"
	StatusWarning = "warning"
	StatusGood    = "good"
)

// warningPercentage is the share of a budget above which it is flagged.
const warningPercentage = 80

// BudgetStatus is the state of one budget in the current month.
type BudgetStatus struct {
	Category   string  `json:"category"`
	Budget     float64 `json:"budget"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`
}

// AnalyzeBudgets compares each budget against the user's expenses of month
// in the same category. Results are ordered by category.
func AnalyzeBudgets(records []models.Record, budgets map[string]float64, month time.Time, userName string) []BudgetStatus {
	key := MonthKey(month)
	spent := make(map[string]float64)
	for _, r := range records {
		if r.Type != models.RecordExpense || r.UserName != userName || r.Timestamp.IsZero() {
			continue
		}
		if MonthKey(r.Timestamp.In(month.Location())) != key {
			continue
		}
		spent[categoryOf(r)] += r.Amount
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, category := range slices.Sorted(maps.Keys(budgets)) {
		budget := budgets[category]
		s := BudgetStatus{
			Category:  category,
			Budget:    budget,
			Spent:     spent[category],
			Remaining: budget - spent[category],
		}
		if budget > 0 {
			s.Percentage = s.Spent / budget * 100
		}
		switch {
		case s.Spent > budget:
			s.Status = StatusOver
		case s.Percentage > warningPercentage:
			s.Status = StatusWarning
		default:
			s.Status = StatusGood
		}
		out = append(out, s)
	}
	return out
}

// GoalProgress is the derived state of a savings goal.
type GoalProgress struct {
	Goal            models.Goal
	Remaining       float64
	DaysUntilTarget int

	// DailyRequired is the amount to save per day to reach the target on
	// time. On or after the target date it equals Remaining.
	DailyRequired float64

	// Percentage is SavedAmount as a percentage of TargetAmount, capped at 100.
	Percentage float64
}

// ProgressOf computes a goal's progress on the calendar day of now.
func ProgressOf(g models.Goal, now time.Time) GoalProgress {
	p := GoalProgress{
		Goal:            g,
		Remaining:       max(g.TargetAmount-g.SavedAmount, 0),
		DaysUntilTarget: models.DaysBetween(now, g.TargetDate.In(now.Location())),
	}
	if p.DaysUntilTarget > 0 {
		p.DailyRequired = p.Remaining / float64(p.DaysUntilTarget)
	} else {
		p.DailyRequired = p.Remaining
	}
	if g.TargetAmount > 0 {
		p.Percentage = min(g.SavedAmount/g.TargetAmount*100, 100)
	}
	return p
}

// History returns the user's last limit records, newest first.
func History(records []models.Record, userName string, limit int) []models.Record {
	var mine []models.Record
	for _, r := range records {
		if r.UserName == userName {
			mine = append(mine, r)
		}
	}
	if limit > 0 && len(mine) > limit {
		mine = mine[len(mine)-limit:]
	}
	slices.Reverse(mine)
	return mine
}

// Totals sums records by type.
type Totals struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Debts    float64 `json:"debts"`
	Count    int     `json:"count"`
}

// Balance is income minus expenses minus debts.
func (t Totals) Balance() float64 {
	return t.Income - t.Expenses - t.Debts
}

// TotalsFor sums every record of userName regardless of date.
func TotalsFor(records []models.Record, userName string) Totals {
	var t Totals
	for _, r := range records {
		if r.UserName != userName {
			continue
		}
		switch r.Type {
		case models.RecordIncome:
			t.Income += r.Amount
		case models.RecordExpense:
			t.Expenses += r.Amount
		case models.RecordDebt:
			t.Debts += r.Amount
		}
		t.Count++
	}
	return t
}

// TopCategories returns up to n categories of a month ordered by amount, largest first.
func TopCategories(byCategory map[string]float64, n int) []string {
	keys := slices.Collect(maps.Keys(byCategory))
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(byCategory[b], byCategory[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func categoryOf(r models.Record) string {
	if r.Category == "" {
		return models.UncategorizedLabel
	}
	return r.Category
}
