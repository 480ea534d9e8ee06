// Package logging provides structured logging for autoconnectd.
//
// This package wraps a global zap logger with convenience functions for
// the events the daemon cares about: state transitions, scans and
// storage access.
//
// # Log Levels
//
//   - Debug: scan results, storage reads and writes, DNS queries
//   - Info: state transitions, portal start and stop, connections
//   - Warn: failed connection attempts, evictions, collaborator errors
//   - Error: startup failures
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// With an empty level the AUTOCONNECT_LOG_LEVEL environment variable is
// consulted; when that is unset too, logging is silent. InitializeWithFile
// additionally tees output into a size-rotated file, which is how the
// daemon logs when it runs as an OS service.
//
// Components that take a *zap.Logger should be handed GetLogger() or a
// Named child of it.
package logging
