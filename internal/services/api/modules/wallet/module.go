// Package wallet provides the protected $SWOP wallet and ledger routes.
package wallet

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/api/live"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/authctx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/httpx"
	"github.com/swoplabs/swopcredit/internal/services/api/view"
	walletservice "github.com/swoplabs/swopcredit/internal/services/wallet"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// WalletService is the wallet surface this module depends on.
type WalletService interface {
	SendSwop(ctx context.Context, senderID string, recipientUsername string, amount int64) (walletservice.Transfer, error)
	AddFunds(ctx context.Context, userID string, amount int64) (storage.Transaction, int64, error)
	Withdraw(ctx context.Context, userID string, amount int64) (storage.Transaction, int64, error)
	Ledger(ctx context.Context, userID string, filterExpr string, pageSize int, pageToken string) (storage.TransactionPage, error)
}

// Publisher pushes live balance frames to connected clients.
type Publisher interface {
	Publish(userID string, frame live.Frame)
}

// Module provides the protected wallet routes.
type Module struct {
	wallets   WalletService
	publisher Publisher
}

// New returns a wallet module. publisher may be nil when no live stream is
// wired.
func New(wallets WalletService, publisher Publisher) Module {
	return Module{wallets: wallets, publisher: publisher}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "wallet" }

// Mount wires wallet route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" /app/wallet/send", m.handleSend)
	mux.HandleFunc(http.MethodPost+" /app/wallet/add", m.handleAdd)
	mux.HandleFunc(http.MethodPost+" /app/wallet/withdraw", m.handleWithdraw)
	mux.HandleFunc(http.MethodGet+" /app/wallet/ledger", m.handleLedger)
	return module.Mount{Prefix: "/app/wallet/", Handler: mux}, nil
}

type sendRequest struct {
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
}

func (m Module) handleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	var req sendRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), err.Error())
		return
	}
	transfer, err := m.wallets.SendSwop(httpx.RequestContext(r), userID, strings.TrimSpace(req.Username), req.Amount)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	m.publishBalance(userID, transfer.Result.SenderBalance)
	m.publishBalance(transfer.Result.RecipientTransaction.UserID, transfer.Result.RecipientBalance)
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"transaction": view.NewTransaction(transfer.Result.SenderTransaction),
		"recipient":   transfer.RecipientUsername,
		"balance":     transfer.Result.SenderBalance,
	})
}

type adjustRequest struct {
	Amount int64 `json:"amount"`
}

func (m Module) handleAdd(w http.ResponseWriter, r *http.Request) {
	m.handleAdjust(w, r, m.wallets.AddFunds)
}

func (m Module) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	m.handleAdjust(w, r, m.wallets.Withdraw)
}

func (m Module) handleAdjust(w http.ResponseWriter, r *http.Request, adjust func(ctx context.Context, userID string, amount int64) (storage.Transaction, int64, error)) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), err.Error())
		return
	}
	tx, balance, err := adjust(httpx.RequestContext(r), userID, req.Amount)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	m.publishBalance(userID, balance)
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"transaction": view.NewTransaction(tx),
		"balance":     balance,
	})
}

func (m Module) handleLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	query := r.URL.Query()
	pageSize := 0
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), "page_size must be an integer")
			return
		}
		pageSize = parsed
	}
	page, err := m.wallets.Ledger(httpx.RequestContext(r), userID, query.Get("filter"), pageSize, query.Get("page_token"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions":    view.NewTransactions(page.Transactions),
		"next_page_token": page.NextPageToken,
	})
}

func (m Module) publishBalance(userID string, balance int64) {
	if m.publisher == nil || userID == "" {
		return
	}
	m.publisher.Publish(userID, live.Frame{Type: live.FrameBalance, SwopBalance: balance})
}
