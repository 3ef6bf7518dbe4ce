// Package services defines shared utilities consumed by the composition
// engines and the process orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, job kinds, and correlation
//     identifiers for logging and tracing.
//   - The failure taxonomy (ErrorKind) and the Error type every engine returns
//     so callers can branch on a stable kind instead of parsing messages.
//   - Diagnostic classification that maps ffmpeg stderr onto that taxonomy.
//
// Use these helpers when wiring new job kinds so operational behaviour (error
// handling, observability, cleanup) stays uniform across engines.
package services
