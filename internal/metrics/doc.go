/*
Package metrics records FUSE operation metrics and exports them for
Prometheus.

A Collector is handed to fuse2.Mounter as its MetricsRecorder. Every
dispatched operation produces one RecordOperation call and, when it fails,
one RecordError call carrying the error number. The collector keeps
per-operation totals in memory and maintains these series:

	<namespace>_operations_total{operation,status}
	<namespace>_operation_duration_seconds{operation}
	<namespace>_operation_size_bytes{operation}
	<namespace>_errors_total{operation,errno}
	<namespace>_active_mounts

Start serves the registry over HTTP:

	/metrics            Prometheus exposition (OpenMetrics when negotiated)
	/health             static liveness answer
	/debug/operations   plain text per-operation summary

Example:

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Address:   ":9090",
		Path:      "/metrics",
		Namespace: "fuse2go",
	}, logger)
	if err != nil {
		return err
	}
	if err := collector.Start(ctx); err != nil {
		return err
	}
	mounter := &fuse2.Mounter{Logger: logger, Metrics: collector}

A disabled collector still keeps the in-memory totals but registers and
serves nothing.
*/
package metrics
