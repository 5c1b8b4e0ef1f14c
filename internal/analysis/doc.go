// Package analysis defines the sink interfaces the ingestion workers
// feed decoded media into, plus the HTTP implementation that forwards
// frames and audio windows to an external emotion classifier service.
package analysis
