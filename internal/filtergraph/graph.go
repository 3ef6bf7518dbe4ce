package filtergraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Label names a stream pad inside a graph, rendered as [label].
type Label string

// InputAudio labels the first audio stream of ffmpeg input index.
func InputAudio(index int) Label {
	return Label(strconv.Itoa(index) + ":a")
}

// InputVideo labels the first video stream of ffmpeg input index.
func InputVideo(index int) Label {
	return Label(strconv.Itoa(index) + ":v")
}

func (l Label) String() string {
	return "[" + string(l) + "]"
}

// Chain is a linear run of filters with labelled inputs and outputs.
type Chain struct {
	Inputs  []Label
	Filters []Filter
	Outputs []Label
}

// Render returns the chain in [in]f1,f2[out] form.
func (c Chain) Render() string {
	var b strings.Builder
	for _, in := range c.Inputs {
		b.WriteString(in.String())
	}
	for i, f := range c.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Render(f))
	}
	for _, out := range c.Outputs {
		b.WriteString(out.String())
	}
	return b.String()
}

// Graph is an ordered list of chains.
type Graph struct {
	Chains []Chain
}

// Empty reports whether the graph has no chains.
func (g Graph) Empty() bool {
	return len(g.Chains) == 0
}

// Render joins the chains with ';'. Rendering is deterministic.
func (g Graph) Render() string {
	parts := make([]string, 0, len(g.Chains))
	for _, c := range g.Chains {
		parts = append(parts, c.Render())
	}
	return strings.Join(parts, ";")
}

// Validate checks that every chain has filters and that each output label is
// produced once and consumed at most once. Labels never produced inside the
// graph are treated as ffmpeg input references.
func (g Graph) Validate() error {
	produced := make(map[Label]bool)
	consumed := make(map[Label]bool)
	for i, c := range g.Chains {
		if len(c.Filters) == 0 {
			return fmt.Errorf("chain %d has no filters", i)
		}
		for _, in := range c.Inputs {
			if in == "" {
				return fmt.Errorf("chain %d has an empty input label", i)
			}
			if consumed[in] && !isInputReference(in) {
				return fmt.Errorf("label %s consumed twice", in)
			}
			consumed[in] = true
		}
		for _, out := range c.Outputs {
			if out == "" {
				return fmt.Errorf("chain %d has an empty output label", i)
			}
			if produced[out] {
				return fmt.Errorf("label %s produced twice", out)
			}
			produced[out] = true
		}
	}
	for label := range consumed {
		if isInputReference(label) {
			continue
		}
		if !produced[label] {
			return fmt.Errorf("label %s consumed but never produced", label)
		}
	}
	if len(g.Chains) == 0 {
		return errors.New("graph has no chains")
	}
	return nil
}

func isInputReference(l Label) bool {
	idx := strings.IndexByte(string(l), ':')
	if idx <= 0 {
		return false
	}
	_, err := strconv.Atoi(string(l[:idx]))
	return err == nil
}
