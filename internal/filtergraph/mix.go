package filtergraph

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMixOutput is the label BuildMix assigns to the mixed stream.
const DefaultMixOutput Label = "aout"

// TrackChain is the per-track processing run: trim, then delay, then volume.
// Absent stages are omitted.
type TrackChain struct {
	Trim   *ATrim
	Delay  *Delay
	Volume *Volume
}

// Filters returns the stages in their fixed order.
func (t TrackChain) Filters() []Filter {
	var filters []Filter
	if t.Trim != nil {
		filters = append(filters, *t.Trim)
	}
	if t.Delay != nil {
		filters = append(filters, *t.Delay)
	}
	if t.Volume != nil {
		filters = append(filters, *t.Volume)
	}
	return filters
}

// MixTrack describes one audio input of a mix graph.
type MixTrack struct {
	// Input is the ffmpeg input index holding the track.
	Input int
	// StartTime is the offset in seconds on the output timeline.
	StartTime float64
	// Duration, when set, trims the track to that many seconds.
	Duration *float64
	// Volume, when set, is rendered exactly as given.
	Volume *float64
}

// MixOptions controls how the track streams are joined.
type MixOptions struct {
	Duration MixDuration
	// Pad appends apad after the join so the output can be cut to the video
	// length with -shortest.
	Pad    bool
	Output Label
}

// BuildMix assembles a graph that applies each track's chain and joins the
// results with amix. It returns the graph and the label of the mixed stream.
func BuildMix(tracks []MixTrack, opts MixOptions) (Graph, Label, error) {
	if len(tracks) == 0 {
		return Graph{}, "", errors.New("mix requires at least one track")
	}
	output := opts.Output
	if output == "" {
		output = DefaultMixOutput
	}

	var graph Graph
	joinInputs := make([]Label, 0, len(tracks))
	for i, track := range tracks {
		chain, err := trackChain(track)
		if err != nil {
			return Graph{}, "", fmt.Errorf("track %d: %w", i, err)
		}
		filters := chain.Filters()
		if len(filters) == 0 {
			joinInputs = append(joinInputs, InputAudio(track.Input))
			continue
		}
		label := Label(fmt.Sprintf("t%d", i))
		graph.Chains = append(graph.Chains, Chain{
			Inputs:  []Label{InputAudio(track.Input)},
			Filters: filters,
			Outputs: []Label{label},
		})
		joinInputs = append(joinInputs, label)
	}

	var join []Filter
	if len(joinInputs) > 1 {
		join = append(join, Mix{Inputs: len(joinInputs), Duration: opts.Duration})
	}
	if opts.Pad {
		join = append(join, APad{})
	}
	if len(join) == 0 {
		join = append(join, ANull{})
	}
	graph.Chains = append(graph.Chains, Chain{
		Inputs:  joinInputs,
		Filters: join,
		Outputs: []Label{output},
	})
	return graph, output, nil
}

func trackChain(track MixTrack) (TrackChain, error) {
	var chain TrackChain
	if track.StartTime < 0 || math.IsNaN(track.StartTime) || math.IsInf(track.StartTime, 0) {
		return chain, fmt.Errorf("start time %v is not a non-negative number", track.StartTime)
	}
	if track.Duration != nil {
		if *track.Duration <= 0 {
			return chain, fmt.Errorf("duration %v must be positive", *track.Duration)
		}
		chain.Trim = &ATrim{Duration: *track.Duration}
	}
	if delay := DelayFromSeconds(track.StartTime); delay.Millis > 0 {
		chain.Delay = &delay
	}
	if track.Volume != nil {
		chain.Volume = &Volume{Gain: *track.Volume}
	}
	return chain, nil
}
