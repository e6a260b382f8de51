// Package middleware provides the HTTP middleware chain: W3C extended
// format request logging, Prometheus instrumentation, and gzip
// compression for the JSON API.
package middleware
