// Package health provides the liveness route.
package health

import (
	"net/http"

	module "github.com/swoplabs/swopcredit/internal/services/api/module"
)

// Module provides the public liveness route.
type Module struct{}

// New returns the health module.
func New() Module { return Module{} }

// ID returns a stable module identifier.
func (Module) ID() string { return "health" }

// Mount wires the liveness handler.
func (Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return module.Mount{Prefix: "/up", Handler: mux}, nil
}
