// Package orchestrator runs external media processes under a system-wide
// concurrency cap.
//
// Jobs are admitted in submission order. At most Config.MaxConcurrent jobs run
// at once; the rest wait in a FIFO queue and start as slots free up. Every job
// gets its own work directory, an optional deadline, and a single terminal
// Result. A job succeeds only when the process exits 0 and its output file
// exists and is non-empty; the finished file is then moved from the work
// directory to the declared destination. Every other outcome removes partial
// output and temp artifacts and carries a services.ErrorKind plus the tail of
// the process stderr.
//
// Processes are spawned through the Executor interface so tests can drive the
// orchestrator without ffmpeg installed.
package orchestrator
