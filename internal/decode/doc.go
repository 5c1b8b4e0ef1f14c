// Package decode launches ffmpeg subprocesses and exposes their raw
// output pipes as typed readers: RGB24 frames for video and s16le PCM
// windows for audio. Reconnect policy lives with the callers; decode
// only reports read failures and guarantees subprocess cleanup.
package decode
