/*
Package observability turns engine lifecycle hooks into telemetry.

Metrics exports Prometheus counters and histograms for node executions, run
outcomes and tool latency. LoggingHooks writes the same events to a
structured logger. Both return domain.LifecycleHooks, which compose with
domain.Combine.
*/
package observability
