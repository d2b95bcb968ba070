// Package integration runs the cached pipeline against Redis in a container.
// Run with: go test -tags integration ./tests/integration/...
package integration
