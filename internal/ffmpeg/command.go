package ffmpeg

import (
	"strconv"

	"compositor/internal/filtergraph"
	"compositor/internal/orchestrator"
)

// Preamble returns the flags every invocation starts with.
func Preamble() []string {
	return []string{
		"-y", "-hide_banner", "-nostdin",
		"-loglevel", "error",
		"-progress", "pipe:1", "-nostats",
	}
}

// Command accumulates arguments in ffmpeg order: inputs, graph, maps, codecs.
type Command struct {
	args   []string
	inputs int
}

// NewCommand starts a command with Preamble.
func NewCommand() *Command {
	return &Command{args: Preamble()}
}

// Input adds an input file. Options such as -t or -f are placed before -i.
// It returns the input index.
func (c *Command) Input(path string, options ...string) int {
	c.args = append(c.args, options...)
	c.args = append(c.args, "-i", path)
	c.inputs++
	return c.inputs - 1
}

// Inputs reports how many inputs were added.
func (c *Command) Inputs() int {
	return c.inputs
}

// FilterComplex adds a -filter_complex graph.
func (c *Command) FilterComplex(graph filtergraph.Graph) {
	c.args = append(c.args, "-filter_complex", graph.Render())
}

// VideoFilter adds a -vf chain. An empty chain is skipped.
func (c *Command) VideoFilter(filters ...filtergraph.Filter) {
	if len(filters) == 0 {
		return
	}
	c.args = append(c.args, "-vf", filtergraph.Chain{Filters: filters}.Render())
}

// Map selects a stream for the output. Graph labels are bracketed.
func (c *Command) Map(label filtergraph.Label) {
	c.args = append(c.args, "-map", label.String())
}

// MapStream selects a stream by specifier, such as "0:v:0" or "0:a?".
func (c *Command) MapStream(specifier string) {
	c.args = append(c.args, "-map", specifier)
}

// Arg appends raw arguments.
func (c *Command) Arg(args ...string) {
	c.args = append(c.args, args...)
}

// Args returns the arguments terminated by the output placeholder.
func (c *Command) Args() []string {
	out := make([]string, 0, len(c.args)+1)
	out = append(out, c.args...)
	return append(out, orchestrator.OutputPlaceholder)
}

// FastStart moves the MP4 index to the front of the file.
func FastStart() []string {
	return []string{"-movflags", "+faststart"}
}

// Seconds renders a duration in seconds without rounding.
func Seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
