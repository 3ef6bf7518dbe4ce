package filtergraph

import (
	"errors"
	"fmt"
)

// Default labels produced by BuildConcat.
const (
	DefaultConcatVideo Label = "vout"
	DefaultConcatAudio Label = "aout"
)

// ConcatSegment is one clip of a concatenation.
type ConcatSegment struct {
	// Input is the ffmpeg input index holding the clip.
	Input int
	// Duration bounds synthesized silence for clips without audio.
	Duration float64
	// HasAudio reports whether the clip carries an audio stream.
	HasAudio bool
}

// NormalizeTarget is the common format every segment is converted to.
type NormalizeTarget struct {
	Width         int
	Height        int
	FPS           float64
	PixelFormat   string
	SampleRate    int
	ChannelLayout string
	// Audio includes an audio stream in the output. Segments without audio
	// get silence of their own duration.
	Audio bool
}

// BuildConcat normalizes every segment to target and joins them in order.
// It returns the graph plus the video and audio output labels; the audio
// label is empty when target.Audio is false.
func BuildConcat(segments []ConcatSegment, target NormalizeTarget) (Graph, Label, Label, error) {
	if len(segments) == 0 {
		return Graph{}, "", "", errors.New("concat requires at least one segment")
	}
	if target.Width <= 0 || target.Height <= 0 {
		return Graph{}, "", "", fmt.Errorf("invalid target resolution %dx%d", target.Width, target.Height)
	}
	if target.FPS <= 0 {
		return Graph{}, "", "", fmt.Errorf("invalid target frame rate %v", target.FPS)
	}
	pixFmt := target.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}
	sampleRate := target.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	layout := target.ChannelLayout
	if layout == "" {
		layout = "stereo"
	}

	var graph Graph
	joinInputs := make([]Label, 0, len(segments)*2)
	for i, seg := range segments {
		video := Label(fmt.Sprintf("v%d", i))
		graph.Chains = append(graph.Chains, Chain{
			Inputs: []Label{InputVideo(seg.Input)},
			Filters: []Filter{
				Scale{Width: target.Width, Height: target.Height, Fit: true},
				Pad{Width: target.Width, Height: target.Height, Color: "black"},
				SetSAR{},
				FPS{Rate: target.FPS},
				Format{PixelFormat: pixFmt},
				SetPTS{},
			},
			Outputs: []Label{video},
		})
		joinInputs = append(joinInputs, video)
		if !target.Audio {
			continue
		}

		audio := Label(fmt.Sprintf("a%d", i))
		if seg.HasAudio {
			graph.Chains = append(graph.Chains, Chain{
				Inputs: []Label{InputAudio(seg.Input)},
				Filters: []Filter{
					AResample{SampleRate: sampleRate},
					AFormat{ChannelLayout: layout},
					ASetPTS{},
				},
				Outputs: []Label{audio},
			})
		} else {
			if seg.Duration <= 0 {
				return Graph{}, "", "", fmt.Errorf("segment %d has no audio and no duration", i)
			}
			graph.Chains = append(graph.Chains, Chain{
				Filters: []Filter{
					ANullSrc{SampleRate: sampleRate, ChannelLayout: layout},
					ATrim{Duration: seg.Duration},
				},
				Outputs: []Label{audio},
			})
		}
		joinInputs = append(joinInputs, audio)
	}

	concat := Concat{Segments: len(segments), Video: 1}
	outputs := []Label{DefaultConcatVideo}
	audioOut := Label("")
	if target.Audio {
		concat.Audio = 1
		audioOut = DefaultConcatAudio
		outputs = append(outputs, audioOut)
	}
	graph.Chains = append(graph.Chains, Chain{
		Inputs:  joinInputs,
		Filters: []Filter{concat},
		Outputs: outputs,
	})
	return graph, DefaultConcatVideo, audioOut, nil
}
