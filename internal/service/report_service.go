package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/finduo/internal/analyzer"
)

// ReportService exposes the read-side aggregations. An unreachable ledger
// is reported as no data, not as an error.
type ReportService struct {
	analyzer *analyzer.Analyzer
}

// NewReportService creates a ReportService.
func NewReportService(a *analyzer.Analyzer) *ReportService {
	return &ReportService{analyzer: a}
}

// MonthlySummary aggregates the current month.
func (s *ReportService) MonthlySummary(ctx context.Context, req *connect.Request[ReportRequest]) (*connect.Response[MonthlySummaryResponse], error) {
	summary, ok := s.analyzer.MonthlySummary(ctx, req.Msg.UserID)
	return connect.NewResponse(&MonthlySummaryResponse{HasData: ok, Summary: summary}), nil
}

// SpendingTrends buckets expenses by month and category.
func (s *ReportService) SpendingTrends(ctx context.Context, req *connect.Request[SpendingTrendsRequest]) (*connect.Response[SpendingTrendsResponse], error) {
	if req.Msg.Months < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errNegativeMonths)
	}
	trends, ok := s.analyzer.SpendingTrends(ctx, req.Msg.UserID, req.Msg.Months)
	return connect.NewResponse(&SpendingTrendsResponse{
		HasData: ok,
		Months:  trends.Recent(req.Msg.Months),
	}), nil
}

// BudgetAnalysis compares a user's budgets with this month's expenses.
func (s *ReportService) BudgetAnalysis(ctx context.Context, req *connect.Request[ReportRequest]) (*connect.Response[BudgetAnalysisResponse], error) {
	if req.Msg.UserID <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errUserRequired)
	}
	statuses, ok := s.analyzer.BudgetAnalysis(ctx, req.Msg.UserID)
	return connect.NewResponse(&BudgetAnalysisResponse{HasData: ok, Budgets: statuses}), nil
}
