// Package filtergraph models ffmpeg filter graphs as a small typed AST and
// renders them to the -filter_complex syntax.
//
// Filters are values (Delay, Volume, Mix, Scale, ...) rather than strings, so
// ordering rules such as "delay before volume" are fixed by the types that
// assemble chains (TrackChain) instead of by convention at every call site.
// Option values are escaped by the renderer.
//
// Everything here is pure: no I/O, no processes. BuildMix and BuildConcat are
// the two graph builders used by the audiomix and concat engines.
package filtergraph
