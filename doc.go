// Package bfilter provides HTTP interception middleware: every request gets its query
// encoding detected and its trace identity resolved, and every response is buffered,
// optionally gzip compressed, and finalized in one go.
//
// # Overview
//
// A [Filter] sits in front of error-returning handlers. For each request it:
//
//   - passes static resources (by path suffix) straight through
//   - detects whether the raw query is GBK or UTF-8 percent-encoded, see package charset
//   - resolves the trace id, step id, sampling color and bot flag, see package trace
//   - hands the handler a [ResponseWriter] that holds the response back
//   - finalizes the response with a normalized Content-Type and an X-Trace-Id header
//   - publishes an access record for sampled requests and counts the outcome
//
// A minimal example:
//
//	mux := bfilter.NewServeMux()
//	mux.HandleFunc("GET /items/{id}", func(ctx context.Context, w bfilter.ResponseWriter, r *http.Request) error {
//	    item, err := db.GetItem(r.PathValue("id"))
//	    if err != nil {
//	        return bfilter.NewError(bfilter.CodeNotFound, err)
//	    }
//	    return json.NewEncoder(w).Encode(item)
//	})
//
// # Captured Response
//
// Handlers write to a [ResponseWriter]. Nothing reaches the client until the filter
// finalizes it, which allows a handler or middleware to:
//
//   - replace the response entirely when an error occurs mid-handler
//   - [ResponseWriter.Redirect] or [ResponseWriter.SendError] after writing
//   - write text through [ResponseWriter.TextWriter] in the response's charset
//
// A response is finalized exactly once. Redirects carry no body. Error pages are always
// UTF-8 HTML. Bodies are sent with their exact length. A handler that streams through
// http.ResponseController commits the response early, after which it cannot be reset.
//
// # Error Handling
//
// A handler that returns an [*Error] gets an error page with the error's code. Any other
// error, or a panic, results in a 500 and is reported to the [Logger]:
//
//	return bfilter.NewError(bfilter.CodeBadRequest, errors.New("invalid input"))
//
// # Middleware
//
// [Middleware] wraps [BareHandler] values and is registered with [ServeMux.Use]. It runs
// behind the filter, so the request state is available through [FromContext]:
//
//	func auth(next bfilter.BareHandler) bfilter.BareHandler {
//	    return bfilter.BareHandlerFunc(func(w bfilter.ResponseWriter, r *http.Request) error {
//	        bfilter.SetUserID(r.Context(), userFrom(r))
//	        return next.ServeBareBFilter(w, r)
//	    })
//	}
//
// # Reporting
//
// The filter takes a [StatusRecorder], usually an aggregator.Aggregator, and a report.Sink
// for access records. Both are optional.
package bfilter
