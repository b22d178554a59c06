package app

import (
	"net/http"

	"github.com/advdv/bfilter"
)

// Mux is an alias for bfilter.ServeMux.
type Mux = bfilter.ServeMux

// NewMux creates a new Mux whose routes are served behind f.
func NewMux(f *bfilter.Filter) *Mux {
	return bfilter.NewServeMuxWith(f, http.NewServeMux())
}
