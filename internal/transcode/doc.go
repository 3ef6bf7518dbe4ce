// Package transcode re-encodes a single input to a target size, frame rate,
// and quality.
//
// Quality follows a fixed precedence: an explicit TranscodeSpec.Quality wins,
// then the named preset's distribution quality, then the configured default.
// Every output is written with a fixed pixel format and the MP4 fast-start
// flag so it can be streamed as soon as it lands.
package transcode
