package apptest

import (
	"net/http"
	"net/http/httptest"

	"github.com/advdv/bfilter"
)

// CallHandler invokes a [bfilter.HandlerFunc] with a captured response and returns the
// recorded response. It handles the boilerplate of wrapping [httptest.ResponseRecorder]
// in a [bfilter.Capture] and finalizing it afterward. The request does not pass through a
// filter, so no trace id is resolved.
func CallHandler(handler bfilter.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()

	w := bfilter.NewCapture(rec, bfilter.CaptureOptions{})
	defer w.Free()

	if err := handler(req.Context(), w, req); err != nil {
		panic("apptest: handler returned error: " + err.Error())
	}

	if err := w.Finalize(""); err != nil {
		panic("apptest: Finalize failed: " + err.Error())
	}

	return rec
}
