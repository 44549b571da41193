package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/api/live"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/authctx"
	walletservice "github.com/swoplabs/swopcredit/internal/services/wallet"
	"github.com/swoplabs/swopcredit/internal/storage"
)

type fakeWallets struct {
	sendErr     error
	ledgerCalls []ledgerCall
}

type ledgerCall struct {
	filter    string
	pageSize  int
	pageToken string
}

func (f *fakeWallets) SendSwop(ctx context.Context, senderID string, recipientUsername string, amount int64) (walletservice.Transfer, error) {
	if f.sendErr != nil {
		return walletservice.Transfer{}, f.sendErr
	}
	return walletservice.Transfer{
		Result: storage.TransferResult{
			SenderTransaction:    storage.Transaction{UserID: senderID, Type: storage.TransactionTypeSwopSend, Amount: -amount},
			RecipientTransaction: storage.Transaction{UserID: "user-2", Type: storage.TransactionTypeSwopReceive, Amount: amount},
			SenderBalance:        100 - amount,
			RecipientBalance:     50 + amount,
		},
		RecipientUsername: recipientUsername,
	}, nil
}

func (f *fakeWallets) AddFunds(ctx context.Context, userID string, amount int64) (storage.Transaction, int64, error) {
	return storage.Transaction{UserID: userID, Type: storage.TransactionTypeSwopAdd, Amount: amount}, 100 + amount, nil
}

func (f *fakeWallets) Withdraw(ctx context.Context, userID string, amount int64) (storage.Transaction, int64, error) {
	return storage.Transaction{UserID: userID, Type: storage.TransactionTypeSwopWithdraw, Amount: -amount}, 100 - amount, nil
}

func (f *fakeWallets) Ledger(ctx context.Context, userID string, filterExpr string, pageSize int, pageToken string) (storage.TransactionPage, error) {
	f.ledgerCalls = append(f.ledgerCalls, ledgerCall{filter: filterExpr, pageSize: pageSize, pageToken: pageToken})
	return storage.TransactionPage{
		Transactions:  []storage.Transaction{{UserID: userID, Type: storage.TransactionTypeSwopAdd, Amount: 10}},
		NextPageToken: "next",
	}, nil
}

func serveAs(t *testing.T, m Module, userID string, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	mount, err := m.Mount()
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if userID != "" {
		req = req.WithContext(authctx.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	mount.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSendPublishesBothBalances(t *testing.T) {
	hub := live.NewHub()
	senderFrames, cancelSender := hub.Subscribe("user-1")
	defer cancelSender()
	recipientFrames, cancelRecipient := hub.Subscribe("user-2")
	defer cancelRecipient()

	m := New(&fakeWallets{}, hub)
	body := `{"username":"thabo","amount":30}`
	rec := serveAs(t, m, "user-1", httptest.NewRequest(http.MethodPost, "/app/wallet/send", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case frame := <-senderFrames:
		if frame.Type != live.FrameBalance || frame.SwopBalance != 70 {
			t.Fatalf("sender frame = %+v", frame)
		}
	default:
		t.Fatal("expected sender balance frame")
	}
	select {
	case frame := <-recipientFrames:
		if frame.SwopBalance != 80 {
			t.Fatalf("recipient frame = %+v", frame)
		}
	default:
		t.Fatal("expected recipient balance frame")
	}
}

func TestSendMapsServiceError(t *testing.T) {
	m := New(&fakeWallets{sendErr: apperrors.New(apperrors.CodeInsufficientBalance, "balance does not cover transfer")}, nil)
	body := `{"username":"thabo","amount":500}`
	rec := serveAs(t, m, "user-1", httptest.NewRequest(http.MethodPost, "/app/wallet/send", strings.NewReader(body)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestAddReturnsBalance(t *testing.T) {
	m := New(&fakeWallets{}, nil)
	rec := serveAs(t, m, "user-1", httptest.NewRequest(http.MethodPost, "/app/wallet/add", strings.NewReader(`{"amount":25}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Balance != 125 {
		t.Fatalf("balance = %d, want 125", payload.Balance)
	}
}

func TestLedgerForwardsQueryParams(t *testing.T) {
	wallets := &fakeWallets{}
	m := New(wallets, nil)
	target := "/app/wallet/ledger?filter=" + "type%20%3D%20%22swop_add%22" + "&page_size=5&page_token=tok"
	rec := serveAs(t, m, "user-1", httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(wallets.ledgerCalls) != 1 {
		t.Fatalf("ledger calls = %d", len(wallets.ledgerCalls))
	}
	call := wallets.ledgerCalls[0]
	if call.filter != `type = "swop_add"` || call.pageSize != 5 || call.pageToken != "tok" {
		t.Fatalf("call = %+v", call)
	}
	var payload struct {
		NextPageToken string `json:"next_page_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.NextPageToken != "next" {
		t.Fatalf("token = %q", payload.NextPageToken)
	}
}

func TestLedgerRejectsBadPageSize(t *testing.T) {
	m := New(&fakeWallets{}, nil)
	rec := serveAs(t, m, "user-1", httptest.NewRequest(http.MethodGet, "/app/wallet/ledger?page_size=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	m := New(&fakeWallets{}, nil)
	rec := serveAs(t, m, "", httptest.NewRequest(http.MethodGet, "/app/wallet/ledger", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
