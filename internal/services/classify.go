package services

import "regexp"

// Pre-compiled patterns for classifying ffmpeg stderr. Checked in order by
// ClassifyDiagnostic; the first match wins.
var (
	reMissingInput = regexp.MustCompile(
		`(?i)No such file or directory|does not exist`)

	reResourceExhausted = regexp.MustCompile(
		`(?i)No space left on device|Cannot allocate memory|Disk quota exceeded|Too many open files`)

	reDecodeIssue = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`moov atom not found|` +
			`could not find codec parameters|` +
			`Error while decoding stream|` +
			`EBML header parsing failed|` +
			`Unknown input format|` +
			`Invalid NAL unit size|` +
			`corrupt (input|decoded frame|packet)|` +
			`Failed to read frame size|` +
			`Decoder .* not found`)
)

// ClassifyDiagnostic maps the stderr of a failed ffmpeg run onto an
// ErrorKind. Anything not recognised as an input, decode, or resource problem
// is an EncodeFailed.
func ClassifyDiagnostic(stderr string) ErrorKind {
	switch {
	case reResourceExhausted.MatchString(stderr):
		return KindResourceExhausted
	case reDecodeIssue.MatchString(stderr):
		return KindDecodeFailed
	case reMissingInput.MatchString(stderr):
		return KindInputNotFound
	default:
		return KindEncodeFailed
	}
}
