// Package observability configures structured logging and OpenTelemetry
// tracing for clausegraph.
//
// Loggers are plain *slog.Logger values passed explicitly to the pool, store
// and pipeline. WithTrace adds trace_id and span_id from the active span so
// log lines can be joined to traces:
//
//	logger := observability.NewLogger(os.Stderr, cfg.Logging)
//	tp, err := observability.InitTracing(ctx, cfg.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer observability.ShutdownTracing(ctx, tp)
//
// When tracing is disabled InitTracing returns an SDK provider with no
// exporter, so spans are created but never leave the process.
package observability
