package app

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/authctx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/httpx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/sessioncookie"
)

// AppPrefix is the route prefix all session-protected modules mount under.
const AppPrefix = "/app/"

// Authenticator resolves a session token to a user id.
type Authenticator func(token string) (string, error)

// ComposeInput carries module groups and the shared session contract.
type ComposeInput struct {
	Authenticate     Authenticator
	PublicModules    []module.Module
	ProtectedModules []module.Module
}

// Compose builds a root HTTP handler from module groups. Protected modules
// mount under AppPrefix behind session verification.
func Compose(input ComposeInput) (http.Handler, error) {
	root := http.NewServeMux()
	seen := make(map[string]string)

	for _, feature := range input.PublicModules {
		mount, prefix, err := resolveMount(feature)
		if err != nil {
			return nil, err
		}
		if err := mountAt(root, feature.ID(), prefix, mount.Handler, seen); err != nil {
			return nil, err
		}
	}

	if len(input.ProtectedModules) > 0 && input.Authenticate == nil {
		return nil, fmt.Errorf("protected modules require an authenticator")
	}
	wrap := requireSession(input.Authenticate)
	for _, feature := range input.ProtectedModules {
		mount, prefix, err := resolveMount(feature)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(prefix, AppPrefix) {
			return nil, fmt.Errorf("module %q must mount under %s, got %q", feature.ID(), AppPrefix, prefix)
		}
		handler := wrap(mount.Handler)
		if err := mountAt(root, feature.ID(), prefix, handler, seen); err != nil {
			return nil, err
		}
		// Also claim the slashless form so /app/wallet reaches the wallet module.
		if alias := strings.TrimSuffix(prefix, "/"); alias != prefix && alias != strings.TrimSuffix(AppPrefix, "/") {
			if err := mountAt(root, feature.ID(), alias, handler, seen); err != nil {
				return nil, err
			}
		}
	}

	return root, nil
}

func mountAt(root *http.ServeMux, featureID string, prefix string, handler http.Handler, seen map[string]string) error {
	if previous, ok := seen[prefix]; ok {
		return fmt.Errorf("module %q duplicates prefix %q owned by module %q", featureID, prefix, previous)
	}
	seen[prefix] = featureID
	root.Handle(prefix, handler)
	return nil
}

func resolveMount(feature module.Module) (module.Mount, string, error) {
	if feature == nil {
		return module.Mount{}, "", fmt.Errorf("module is nil")
	}
	mount, err := feature.Mount()
	if err != nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q: %w", feature.ID(), err)
	}
	prefix := strings.TrimSpace(mount.Prefix)
	if prefix == "" {
		return module.Mount{}, "", fmt.Errorf("module %q has an empty mount prefix", feature.ID())
	}
	if mount.Handler == nil {
		return module.Mount{}, "", fmt.Errorf("module %q has a nil mount handler", feature.ID())
	}
	return mount, prefix, nil
}

// requireSession verifies the session cookie and injects the user id into the
// request context.
func requireSession(authenticate Authenticator) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessioncookie.Read(r)
			if !ok {
				_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
				return
			}
			userID, err := authenticate(token)
			if err != nil || userID == "" {
				sessioncookie.Clear(w, r)
				_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "session is invalid or expired")
				return
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithUserID(r.Context(), userID)))
		})
	}
}
