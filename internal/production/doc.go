// Package production provides production integrations for storex stores:
// snapshot persistence (files, SQL, S3), Prometheus metrics, OpenTelemetry
// tracing, change publishing and visualization.
package production
