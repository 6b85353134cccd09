// Package gocommon provides shared types and utilities for the detector
// services.
//
// This package contains:
//   - JSON schemas for health, readiness and error responses
//   - Prometheus metrics setup
//   - Fiber middleware for metrics collection
package gocommon

// Version of the gocommon package
const Version = "0.2.0"
