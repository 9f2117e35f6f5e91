package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// Column layouts of the partitions owned by the domain store. The column
// order is the schema.
var (
	UserColumns = []string{
		"user_id", "user_name", "registered_at", "last_activity",
		"payday_day", "payday_date", "monthly_income", "preferences",
	}
	GroupColumns = []string{
		"group_id", "name", "invitation_code", "creator_id",
		"members", "created_at", "status", "settings",
	}
	BudgetColumns = []string{
		"user_id", "user_name", "category", "amount", "updated_at", "status",
	}
	GoalColumns = []string{
		"user_id", "user_name", "name", "target_amount",
		"saved_amount", "target_date", "created_at", "status",
	}
	CategoryColumns = []string{
		"user_id", "record_type", "category", "created_at",
	}
	PaydayColumns = []string{
		"user_id", "user_name", "day", "month", "next_payday", "updated_at",
	}
)

// Headers maps every domain partition to its column layout.
var Headers = map[string][]string{
	storage.PartitionUsers:      UserColumns,
	storage.PartitionGroups:     GroupColumns,
	storage.PartitionBudgets:    BudgetColumns,
	storage.PartitionGoals:      GoalColumns,
	storage.PartitionCategories: CategoryColumns,
	storage.PartitionPaydays:    PaydayColumns,
}

// Primary key columns used by upsert-by-scan.
var (
	userKey   = []int{0}
	groupKey  = []int{0}
	budgetKey = []int{0, 2}
	paydayKey = []int{0}
)

const rowStatusActive = "active"

// rowParser turns cells into typed values. Key fields fail the row; every
// other field falls back to a default.
type rowParser struct {
	loc *time.Location
	now time.Time
}

func checkWidth(row storage.Row, columns []string) error {
	if len(row) != len(columns) {
		return fmt.Errorf("%w: expected %d cells, got %d", models.ErrDataCorruption, len(columns), len(row))
	}
	return nil
}

func parseKeyID(cell string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad user id %q", models.ErrDataCorruption, cell)
	}
	return id, nil
}

func (p rowParser) timestamp(cell string) time.Time {
	t, err := time.ParseInLocation(models.TimestampLayout, strings.TrimSpace(cell), p.loc)
	if err != nil {
		return p.now
	}
	return t
}

func (p rowParser) date(cell, layout string) time.Time {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(cell), p.loc)
	if err != nil {
		return models.Midnight(p.now)
	}
	return t
}

// parseAmount reads a stored number. Thousands separators written by hand
// into the sheet are tolerated.
func parseAmount(cell string) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func parseInt(cell string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil {
		return 0
	}
	return n
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.TimestampLayout)
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// Users

func userRow(u *models.User) storage.Row {
	prefs, _ := json.Marshal(u.Preferences)
	payday := ""
	if u.PaydayDay > 0 {
		payday = strconv.Itoa(u.PaydayDay)
	}
	return storage.Row{
		formatID(u.ID),
		u.DisplayName,
		formatTimestamp(u.RegisteredAt),
		formatTimestamp(u.LastActivity),
		payday,
		u.PaydayDate,
		formatAmount(u.MonthlyIncome),
		string(prefs),
	}
}

func (p rowParser) user(row storage.Row, defaults models.Preferences) (*models.User, error) {
	if err := checkWidth(row, UserColumns); err != nil {
		return nil, err
	}
	id, err := parseKeyID(row[0])
	if err != nil {
		return nil, err
	}

	prefs := defaults
	if raw := strings.TrimSpace(row[7]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			prefs = defaults
		}
	}

	name := strings.TrimSpace(row[1])
	if name == "" {
		name = models.PlaceholderName(id)
	}
	return &models.User{
		ID:            id,
		DisplayName:   name,
		RegisteredAt:  p.timestamp(row[2]),
		LastActivity:  p.timestamp(row[3]),
		PaydayDay:     parseInt(row[4]),
		PaydayDate:    strings.TrimSpace(row[5]),
		MonthlyIncome: parseAmount(row[6]),
		Preferences:   prefs,
	}, nil
}

// Groups

func groupRow(g *models.FamilyGroup) storage.Row {
	ids := make([]string, len(g.MemberIDs))
	for i, id := range g.MemberIDs {
		ids[i] = formatID(id)
	}
	settings, _ := json.Marshal(g.Settings)
	return storage.Row{
		g.ID,
		g.Name,
		g.InvitationCode,
		formatID(g.CreatorID),
		strings.Join(ids, ","),
		formatTimestamp(g.CreatedAt),
		string(g.Status),
		string(settings),
	}
}

// group parses a group row. Member names are not persisted; the caller
// resolves them from the users partition.
func (p rowParser) group(row storage.Row) (*models.FamilyGroup, error) {
	if err := checkWidth(row, GroupColumns); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(row[0])
	if id == "" {
		return nil, fmt.Errorf("%w: empty group id", models.ErrDataCorruption)
	}
	creator, err := parseKeyID(row[3])
	if err != nil {
		return nil, err
	}

	var members []int64
	for _, cell := range strings.Split(row[4], ",") {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		member, err := parseKeyID(cell)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	settings := models.DefaultGroupSettings()
	if raw := strings.TrimSpace(row[7]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			settings = models.DefaultGroupSettings()
		}
	}

	status := models.GroupStatus(strings.TrimSpace(row[6]))
	if status != models.GroupStatusInactive {
		status = models.GroupStatusActive
	}

	return &models.FamilyGroup{
		ID:             id,
		Name:           row[1],
		InvitationCode: strings.ToUpper(strings.TrimSpace(row[2])),
		CreatorID:      creator,
		MemberIDs:      members,
		CreatedAt:      p.timestamp(row[5]),
		Status:         status,
		Settings:       settings,
	}, nil
}

// Budgets

type budgetEntry struct {
	userID   int64
	category string
	amount   float64
}

func budgetRow(userID int64, userName, category string, amount float64, now time.Time) storage.Row {
	return storage.Row{
		formatID(userID),
		userName,
		category,
		formatAmount(amount),
		formatTimestamp(now),
		rowStatusActive,
	}
}

func (p rowParser) budget(row storage.Row) (budgetEntry, error) {
	if err := checkWidth(row, BudgetColumns); err != nil {
		return budgetEntry{}, err
	}
	id, err := parseKeyID(row[0])
	if err != nil {
		return budgetEntry{}, err
	}
	category := strings.TrimSpace(row[2])
	if category == "" {
		return budgetEntry{}, fmt.Errorf("%w: empty budget category", models.ErrDataCorruption)
	}
	return budgetEntry{userID: id, category: category, amount: parseAmount(row[3])}, nil
}

// Goals

func goalRow(userID int64, userName string, g models.Goal) storage.Row {
	return storage.Row{
		formatID(userID),
		userName,
		g.Name,
		formatAmount(g.TargetAmount),
		formatAmount(g.SavedAmount),
		formatDate(g.TargetDate, models.InputDateLayout),
		formatTimestamp(g.CreatedAt),
		rowStatusActive,
	}
}

func (p rowParser) goal(row storage.Row) (int64, models.Goal, error) {
	if err := checkWidth(row, GoalColumns); err != nil {
		return 0, models.Goal{}, err
	}
	id, err := parseKeyID(row[0])
	if err != nil {
		return 0, models.Goal{}, err
	}
	return id, models.Goal{
		Name:         row[2],
		TargetAmount: parseAmount(row[3]),
		SavedAmount:  parseAmount(row[4]),
		TargetDate:   p.date(row[5], models.InputDateLayout),
		CreatedAt:    p.timestamp(row[6]),
	}, nil
}

// Categories

type categoryEntry struct {
	userID     int64
	recordType models.RecordType
	name       string
}

func categoryRow(userID int64, t models.RecordType, name string, now time.Time) storage.Row {
	return storage.Row{formatID(userID), string(t), name, formatTimestamp(now)}
}

func (p rowParser) category(row storage.Row) (categoryEntry, error) {
	if err := checkWidth(row, CategoryColumns); err != nil {
		return categoryEntry{}, err
	}
	id, err := parseKeyID(row[0])
	if err != nil {
		return categoryEntry{}, err
	}
	t, err := models.ParseRecordType(row[1])
	if err != nil {
		return categoryEntry{}, fmt.Errorf("%w: %v", models.ErrDataCorruption, err)
	}
	name := strings.TrimSpace(row[2])
	if name == "" {
		return categoryEntry{}, fmt.Errorf("%w: empty category", models.ErrDataCorruption)
	}
	return categoryEntry{userID: id, recordType: t, name: name}, nil
}

// Paydays

func paydayRow(p *models.PaydaySchedule, userName string) storage.Row {
	return storage.Row{
		formatID(p.UserID),
		userName,
		strconv.Itoa(p.Day),
		strconv.Itoa(p.Month),
		formatDate(p.NextPayday, models.DateLayout),
		formatTimestamp(p.UpdatedAt),
	}
}

func (p rowParser) payday(row storage.Row) (*models.PaydaySchedule, error) {
	if err := checkWidth(row, PaydayColumns); err != nil {
		return nil, err
	}
	id, err := parseKeyID(row[0])
	if err != nil {
		return nil, err
	}
	day := parseInt(row[2])
	month := parseInt(row[3])
	if day < 1 || day > 31 || month < 0 || month > 12 {
		return nil, fmt.Errorf("%w: payday %d/%d out of range", models.ErrDataCorruption, day, month)
	}

	// A missing or unreadable next payday forces a recompute on first use.
	next, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(row[4]), p.loc)
	if err != nil {
		next = time.Time{}
	}
	return &models.PaydaySchedule{
		UserID:     id,
		Day:        day,
		Month:      month,
		NextPayday: next,
		UpdatedAt:  p.timestamp(row[5]),
	}, nil
}
