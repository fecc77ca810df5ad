// Package observability provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the Harbor user tools.
//
// # Logging
//
// All commands log through logrus to stderr so that the results printed on
// stdout stay machine readable:
//
//	logger := observability.NewLogger("info", observability.FormatText, nil)
//	logger.WithField("username", "alice").Info("user created")
//
// # Metrics
//
// The tools are short lived batch jobs, so metrics are not served over HTTP.
// They are collected in a private registry and written in the Prometheus text
// format for the node-exporter textfile collector:
//
//	metrics := observability.NewMetrics(nil)
//	metrics.RecordResult("OK")
//	_ = metrics.WriteTextfile("/var/lib/node_exporter/harbor_usertools.prom")
//
// # Tracing
//
// Every Harbor API call and every provisioned row becomes a span when tracing
// is enabled:
//
//	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "harbor-usertools",
//		Insecure:    true,
//	}, logger)
//	defer shutdown(ctx)
//
// # Shutdown
//
// ShutdownManager runs cleanup (trace flush, metrics textfile) once a command
// finishes, and SignalContext stops a run on SIGINT or SIGTERM.
package observability
