// Package loans provides the protected 72-hour loan cycle routes.
package loans

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/authctx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/httpx"
	"github.com/swoplabs/swopcredit/internal/services/api/view"
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// LoanService is the loan surface this module depends on.
type LoanService interface {
	QuoteLoan(ctx context.Context, userID string, amount int64) (loanservice.Quote, error)
	RequestLoan(ctx context.Context, userID string, amount int64) (storage.Loan, error)
	RepayLoan(ctx context.Context, userID string, loanID string) (storage.Loan, error)
	ActiveStatus(ctx context.Context, userID string) (loanservice.Status, error)
	History(ctx context.Context, userID string, limit int) ([]storage.Loan, error)
}

// Module provides the protected loan routes.
type Module struct {
	loans LoanService
}

// New returns a loans module with the given dependency.
func New(loans LoanService) Module {
	return Module{loans: loans}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "loans" }

// Mount wires loan route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /app/loans/quote", m.handleQuote)
	mux.HandleFunc(http.MethodPost+" /app/loans/request", m.handleRequest)
	mux.HandleFunc(http.MethodPost+" /app/loans/{id}/repay", m.handleRepay)
	mux.HandleFunc(http.MethodGet+" /app/loans/active", m.handleActive)
	mux.HandleFunc(http.MethodGet+" /app/loans/history", m.handleHistory)
	return module.Mount{Prefix: "/app/loans/", Handler: mux}, nil
}

func (m Module) handleQuote(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("amount")), 10, 64)
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), "amount must be an integer")
		return
	}
	quote, err := m.loans.QuoteLoan(httpx.RequestContext(r), userID, amount)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"amount":         quote.Amount,
		"initiation_fee": quote.InitiationFee,
		"disbursement":   quote.Disbursement,
		"total_due":      quote.TotalDue,
		"cycle_hours":    quote.CycleHours,
	})
}

type requestLoanRequest struct {
	Amount int64 `json:"amount"`
}

func (m Module) handleRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	var req requestLoanRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), err.Error())
		return
	}
	loan, err := m.loans.RequestLoan(httpx.RequestContext(r), userID, req.Amount)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, map[string]any{"loan": view.NewLoan(loan)})
}

func (m Module) handleRepay(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	loanID := strings.TrimSpace(r.PathValue("id"))
	if loanID == "" {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), "loan id is required")
		return
	}
	loan, err := m.loans.RepayLoan(httpx.RequestContext(r), userID, loanID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"loan": view.NewLoan(loan)})
}

func (m Module) handleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	status, err := m.loans.ActiveStatus(httpx.RequestContext(r), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	payload := map[string]any{"has_active": status.HasActive}
	if status.HasActive {
		payload["loan"] = view.NewLoan(status.Loan)
		payload["urgency"] = status.Urgency
		payload["seconds_left"] = int64(status.Remaining.Seconds())
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

func (m Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), "limit must be an integer")
			return
		}
		limit = parsed
	}
	loans, err := m.loans.History(httpx.RequestContext(r), userID, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"loans": view.NewLoans(loans)})
}
