// Package observability provides OpenTelemetry tracing and metrics for
// plugin compute calls.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("kindflow"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("kindflow"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewStreamMetrics(observability.Meter("kindflow"))
//
// Compute calls:
//
//	ctx, cc := observability.StartCompute(ctx, metrics, "peaks", "peaks", 3)
//	out, err := compute(ctx)
//	cc.End(ctx, out.Len(), err)
package observability
