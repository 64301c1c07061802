// Package ports defines interfaces for external dependencies of the updater:
// logging, progress reporting, process control and command execution.
// Domain-specific ports (the host plugin registry) live next to their domain
// package to avoid import cycles.
package ports
