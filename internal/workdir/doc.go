// Package workdir names and maintains the per-job directories the
// orchestrator creates under the configured work root.
//
// Every job runs inside its own job-<id>-<correlation> directory, which the
// orchestrator removes when the job finishes. A process that is killed before
// that cleanup leaves the directory behind; Sweep removes such leftovers once
// they exceed the configured age, and List reports what is on disk for the
// status command.
package workdir
