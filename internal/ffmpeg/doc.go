// Package ffmpeg builds ffmpeg argument lists.
//
// Every engine starts from the same preamble (overwrite, quiet stderr,
// machine readable progress on stdout) and finishes with the orchestrator
// output placeholder, so the process always writes into its job work
// directory. Encoder carries the codec settings shared by re-encoding jobs.
package ffmpeg
