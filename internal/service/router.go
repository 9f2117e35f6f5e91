package service

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/finduo/internal/auth"
	"github.com/mmynk/finduo/internal/metrics"
	"github.com/mmynk/finduo/internal/middleware"
)

// RouterDeps are the services and cross-cutting pieces the router mounts.
type RouterDeps struct {
	Sessions      *SessionService
	Auth          *AuthService
	Reports       *ReportService
	Notifications *NotificationService

	JWTManager  *auth.JWTManager
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

// NewRouter builds the HTTP handler. The interceptor chain of every RPC is
//
//	LoggingInterceptor → RequireAuth → RateLimiter
//
// IssueToken is the only procedure reachable without a token.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	interceptors := []connect.Interceptor{
		middleware.LoggingInterceptor(deps.Logger),
		middleware.RequireAuth(deps.JWTManager, IssueTokenProcedure),
	}
	if deps.RateLimiter != nil {
		interceptors = append(interceptors, deps.RateLimiter.Interceptor())
	}
	opts := []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(interceptors...),
	}

	mount := func(procedure string, h http.Handler) {
		r.Method(http.MethodPost, procedure, h)
	}
	mount(DispatchProcedure, connect.NewUnaryHandler(DispatchProcedure, deps.Sessions.Dispatch, opts...))
	mount(IssueTokenProcedure, connect.NewUnaryHandler(IssueTokenProcedure, deps.Auth.IssueToken, opts...))
	mount(MonthlySummaryProcedure, connect.NewUnaryHandler(MonthlySummaryProcedure, deps.Reports.MonthlySummary, opts...))
	mount(SpendingTrendsProcedure, connect.NewUnaryHandler(SpendingTrendsProcedure, deps.Reports.SpendingTrends, opts...))
	mount(BudgetAnalysisProcedure, connect.NewUnaryHandler(BudgetAnalysisProcedure, deps.Reports.BudgetAnalysis, opts...))
	mount(PullProcedure, connect.NewUnaryHandler(PullProcedure, deps.Notifications.Pull, opts...))

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
