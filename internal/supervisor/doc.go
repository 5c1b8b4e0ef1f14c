// Package supervisor owns the per-stream ingestion workers: a registry
// keyed by stream name, a video worker with reconnect/backoff, and an
// optional parallel audio worker. Decoded media flows into the analysis
// sinks, the PPG detector, the latest-state cache, the broadcast hub,
// and the checkpoint journal.
package supervisor
