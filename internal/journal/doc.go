// Package journal persists throttled per-session analysis checkpoints
// to SQLite, so a monitoring session leaves an auditable trail after the
// streams stop.
package journal
