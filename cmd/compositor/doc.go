// Command compositor is the command-line host for the media composition
// engine. Each operation command runs one job through an in-process composer
// and prints its terminal result; the jobs and status commands read the
// history ledger and check the configured ffmpeg installation.
package main
