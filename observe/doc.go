// Package observe provides observability primitives for ARM operations.
//
// It is a pure instrumentation library: structured logging, OpenTelemetry
// metrics and tracing, plus a Middleware that wraps a single operation with
// all three. Libraries default to NopLogger; the CLI installs a zap backed
// logger from its configuration.
package observe
