package service

import (
	"errors"

	"github.com/mmynk/finduo/internal/analyzer"
	"github.com/mmynk/finduo/internal/session"
)

// Procedures served by the router.
const (
	DispatchProcedure       = "/finduo.v1.SessionService/Dispatch"
	IssueTokenProcedure     = "/finduo.v1.AuthService/IssueToken"
	MonthlySummaryProcedure = "/finduo.v1.ReportService/MonthlySummary"
	SpendingTrendsProcedure = "/finduo.v1.ReportService/SpendingTrends"
	BudgetAnalysisProcedure = "/finduo.v1.ReportService/BudgetAnalysis"
	PullProcedure           = "/finduo.v1.NotificationService/Pull"
)

var (
	errNegativeMonths = errors.New("months must not be negative")
	errNegativeLimit  = errors.New("limit must not be negative")
	errUserRequired   = errors.New("user_id is required")
)

// DispatchRequest carries one inbound chat event.
type DispatchRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text,omitempty"`
	Choice string `json:"choice,omitempty"`
}

// ChatUserID implements middleware.UserScoped.
func (r *DispatchRequest) ChatUserID() int64 { return r.UserID }

type DispatchResponse struct {
	State  string         `json:"state"`
	Prompt session.Prompt `json:"prompt"`
}

type IssueTokenRequest struct {
	BridgeID string `json:"bridge_id"`
	Secret   string `json:"secret"`
}

type IssueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// ReportRequest selects a user. UserID 0 reports on every user where the
// report allows it.
type ReportRequest struct {
	UserID int64 `json:"user_id"`
}

// ChatUserID implements middleware.UserScoped.
func (r *ReportRequest) ChatUserID() int64 { return r.UserID }

type MonthlySummaryResponse struct {
	HasData bool              `json:"has_data"`
	Summary *analyzer.Summary `json:"summary,omitempty"`
}

type SpendingTrendsRequest struct {
	UserID int64 `json:"user_id"`

	// Months is the number of most recent months returned. 0 means all.
	Months int `json:"months"`
}

// ChatUserID implements middleware.UserScoped.
func (r *SpendingTrendsRequest) ChatUserID() int64 { return r.UserID }

type SpendingTrendsResponse struct {
	HasData bool                     `json:"has_data"`
	Months  []analyzer.MonthSpending `json:"months,omitempty"`
}

type BudgetAnalysisResponse struct {
	HasData bool                    `json:"has_data"`
	Budgets []analyzer.BudgetStatus `json:"budgets,omitempty"`
}

type PullRequest struct {
	// Limit caps the number of reminders returned. 0 drains everything.
	Limit int `json:"limit"`
}

type Notification struct {
	UserID int64  `json:"user_id"`
	Kind   string `json:"kind"`
	Date   string `json:"date"`
}

type PullResponse struct {
	Notifications []Notification `json:"notifications"`
}
