// Package app runs a filtered HTTP service with dependency injection.
//
// [NewApp] wires, with go.uber.org/fx, everything a service behind a bfilter.Filter needs:
// the environment (see [BaseEnvironment]), a zap logger, OpenTelemetry tracing, the AWS
// SDK configuration, a record sink chosen by BF_SINK, a Prometheus registry served on
// /metrics, the status aggregator and the HTTP server. The aggregator sweeps every
// BF_REPORT_INTERVAL and one last time when the app stops.
//
//	type Env struct {
//	    app.BaseEnvironment
//	}
//
//	func main() {
//	    app.NewApp[Env](func(m *app.Mux) {
//	        m.HandleFunc("GET /hello", func(ctx context.Context, w bfilter.ResponseWriter, r *http.Request) error {
//	            app.Log(ctx).Info("saying hello")
//	            _, err := fmt.Fprint(w, "hello")
//	            return err
//	        })
//	    }).Run()
//	}
//
// Handlers log through [Log], which adds the request's trace id, step id and span to
// every entry.
package app
