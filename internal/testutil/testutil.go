// Package testutil provides shared test helpers: an in-memory Redis for
// watermark-cache tests (miniredis.go), with no Docker requirement.
package testutil
