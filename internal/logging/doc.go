// Package logging constructs the process-wide slog logger and provides
// attribute helpers shared by every component.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for log shippers. Components attach themselves
// with NewComponentLogger so the console handler can prefix messages with
// the originating subsystem.
package logging
