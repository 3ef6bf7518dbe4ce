// Package media holds the declarative job model shared by the composition
// engines: clips, audio tracks, resolutions, the per-engine specs callers
// submit, and the JobResult every engine returns.
//
// Values in this package are plain data. Specs are treated as immutable once
// submitted; engines copy what they need and never mutate caller slices.
package media
