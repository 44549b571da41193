// Package module defines the composition contract for API feature modules.
package module

import "net/http"

// Mount describes where a module's routes attach to the root mux.
type Mount struct {
	Prefix  string
	Handler http.Handler
}

// Module is one mountable feature surface.
type Module interface {
	ID() string
	Mount() (Mount, error)
}
