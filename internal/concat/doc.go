// Package concat joins an ordered list of clips into one output.
//
// Every clip is normalized to the target resolution, square pixels, frame
// rate, and pixel format inside a single filter_complex concat, so sources
// of different shapes can be mixed. Declared clip durations are
// authoritative: each input is bounded with -t so the output runs exactly
// the sum of the declared durations. Strict mode re-probes every clip before
// anything is spawned.
package concat
