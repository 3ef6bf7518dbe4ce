// Package composer is the in-process entry point to the media composition
// engine. A Composer owns one orchestrator and wires the transcode, concat,
// mix, probe, and generator engines onto it together with the optional job
// history ledger.
//
// Every operation comes in two forms: a synchronous call that returns the
// terminal result, and a Submit variant that returns an orchestrator handle
// immediately. Both share the orchestrator's FIFO queue and concurrency cap.
package composer
