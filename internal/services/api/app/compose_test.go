package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/authctx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/sessioncookie"
)

type stubModule struct {
	id      string
	prefix  string
	handler http.Handler
}

func (m stubModule) ID() string { return m.id }

func (m stubModule) Mount() (module.Mount, error) {
	return module.Mount{Prefix: m.prefix, Handler: m.handler}, nil
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func allowToken(token string) (string, error) {
	if token == "good" {
		return "user-1", nil
	}
	return "", fmt.Errorf("bad token")
}

func TestComposeMountsPublicModules(t *testing.T) {
	handler, err := Compose(ComposeInput{
		PublicModules: []module.Module{
			stubModule{id: "health", prefix: "/up", handler: okHandler("OK")},
		},
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/up", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestComposeProtectedRequiresSession(t *testing.T) {
	protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := authctx.UserID(r.Context())
		_, _ = w.Write([]byte(userID))
	})
	handler, err := Compose(ComposeInput{
		Authenticate: allowToken,
		ProtectedModules: []module.Module{
			stubModule{id: "wallet", prefix: "/app/wallet/", handler: protected},
		},
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/wallet/ledger", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without cookie = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app/wallet/ledger", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "bad"})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/app/wallet/ledger", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "good"})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "user-1" {
		t.Fatalf("status = %d body = %q, want user id", rec.Code, rec.Body.String())
	}
}

func TestComposeMountsSlashlessAlias(t *testing.T) {
	handler, err := Compose(ComposeInput{
		Authenticate: allowToken,
		ProtectedModules: []module.Module{
			stubModule{id: "profile", prefix: "/app/profile/", handler: okHandler("profile")},
		},
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app/profile", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "good"})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 via slashless alias", rec.Code)
	}
}

func TestComposeRejectsProtectedOutsideAppPrefix(t *testing.T) {
	_, err := Compose(ComposeInput{
		Authenticate: allowToken,
		ProtectedModules: []module.Module{
			stubModule{id: "rogue", prefix: "/rogue/", handler: okHandler("")},
		},
	})
	if err == nil {
		t.Fatal("expected error for protected module outside /app/")
	}
}

func TestComposeRejectsDuplicatePrefixes(t *testing.T) {
	_, err := Compose(ComposeInput{
		PublicModules: []module.Module{
			stubModule{id: "a", prefix: "/up", handler: okHandler("")},
			stubModule{id: "b", prefix: "/up", handler: okHandler("")},
		},
	})
	if err == nil {
		t.Fatal("expected error for duplicate prefix")
	}
}

func TestComposeRejectsProtectedWithoutAuthenticator(t *testing.T) {
	_, err := Compose(ComposeInput{
		ProtectedModules: []module.Module{
			stubModule{id: "wallet", prefix: "/app/wallet/", handler: okHandler("")},
		},
	})
	if err == nil {
		t.Fatal("expected error when authenticator is missing")
	}
}

func TestComposeInvalidSessionClearsCookie(t *testing.T) {
	handler, err := Compose(ComposeInput{
		Authenticate: allowToken,
		ProtectedModules: []module.Module{
			stubModule{id: "wallet", prefix: "/app/wallet/", handler: okHandler("")},
		},
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app/wallet/ledger", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "expired"})
	handler.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("cookies = %+v, want one expired session cookie", cookies)
	}
}
