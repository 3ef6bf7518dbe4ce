// Package deps checks the external binaries the compositor shells out to:
// whether they resolve, which version they report, and whether ffmpeg was
// built with every filter the graph builder emits.
package deps
