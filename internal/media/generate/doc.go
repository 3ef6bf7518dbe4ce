// Package generate produces derived media that has no source clip of its own:
// still thumbnails taken from an input, and blank placeholder clips built from
// lavfi sources.
//
// Both job kinds run through the orchestrator like every other encode, so
// they share its queue, deadlines, and staging rules.
package generate
