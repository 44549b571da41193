package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/account"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/sessioncookie"
	"github.com/swoplabs/swopcredit/internal/storage"
)

type fakeAccounts struct {
	signups  []account.SignUpInput
	loginErr error
}

func (f *fakeAccounts) SignUp(ctx context.Context, input account.SignUpInput) (storage.Profile, error) {
	f.signups = append(f.signups, input)
	return storage.Profile{ID: "user-1", Email: input.Email, Username: input.Username}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, email string, password string) (storage.Profile, error) {
	if f.loginErr != nil {
		return storage.Profile{}, f.loginErr
	}
	return storage.Profile{ID: "user-1", Email: email, Username: "ayanda"}, nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(userID string) (string, error) { return "token-for-" + userID, nil }

func mountedHandler(t *testing.T, m Module) http.Handler {
	t.Helper()
	mount, err := m.Mount()
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return mount.Handler
}

func TestSignupCreatesSession(t *testing.T) {
	accounts := &fakeAccounts{}
	handler := mountedHandler(t, New(accounts, fakeIssuer{}))

	body := `{"email":"ayanda@example.com","username":"ayanda","password":"hunter22"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(accounts.signups) != 1 || accounts.signups[0].Username != "ayanda" {
		t.Fatalf("signups = %+v", accounts.signups)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessioncookie.Name || cookies[0].Value != "token-for-user-1" {
		t.Fatalf("cookies = %+v, want session token", cookies)
	}
	var payload struct {
		Profile struct {
			Username string `json:"username"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Profile.Username != "ayanda" {
		t.Fatalf("profile username = %q", payload.Profile.Username)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	accounts := &fakeAccounts{loginErr: apperrors.New(apperrors.CodeBadCredentials, "invalid email or password")}
	handler := mountedHandler(t, New(accounts, fakeIssuer{}))

	body := `{"email":"ayanda@example.com","password":"wrong"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookie expected on failed login")
	}
}

func TestSignupRejectsMalformedBody(t *testing.T) {
	handler := mountedHandler(t, New(&fakeAccounts{}, fakeIssuer{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	handler := mountedHandler(t, New(&fakeAccounts{}, fakeIssuer{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("cookies = %+v, want expired session cookie", cookies)
	}
}
