// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Info: the normalized facts engines rely on (duration, size, resolution,
//     frame rate, audio presence)
//   - Prober: runs ffprobe as an orchestrated job and returns Info
//
// Probes go through the orchestrator like any other job, so they count
// against the concurrency cap and can be driven by a fake executor in tests.
package ffprobe
