// Package audiomix layers audio tracks under a video.
//
// The video is input 0 and supplies the picture, copied without re-encoding.
// Tracks are inputs 1..N in declaration order; each is trimmed, delayed to
// its start time, and scaled by its volume before the tracks are summed. The
// video's own audio is dropped: a caller that wants to keep it adds the video
// file again as an explicit track.
//
// The video defines the output length. Mixed audio is padded with silence
// and cut at the end of the picture, so long tracks are truncated and short
// ones leave silence; nothing is re-timed.
//
// Ducking is accepted but not applied. A spec that asks for it is mixed at
// the declared static volumes and the result carries a "ducking ignored"
// warning.
package audiomix
