package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"compositor/internal/media"
)

// parseClip reads "PATH=SECONDS". The last '=' separates the duration so
// paths may contain '='.
func parseClip(value string, position int) (media.Clip, error) {
	idx := strings.LastIndex(value, "=")
	if idx <= 0 || idx == len(value)-1 {
		return media.Clip{}, fmt.Errorf("clip %q: want PATH=SECONDS", value)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(value[idx+1:]), 64)
	if err != nil {
		return media.Clip{}, fmt.Errorf("clip %q: invalid duration: %w", value, err)
	}
	return media.Clip{Path: strings.TrimSpace(value[:idx]), Duration: duration, Position: position}, nil
}

// parseTrack reads "KIND=PATH[,start=S][,volume=V][,duration=D]".
func parseTrack(value string) (media.AudioTrack, error) {
	parts := strings.Split(value, ",")
	kindText, path, ok := strings.Cut(parts[0], "=")
	if !ok || strings.TrimSpace(path) == "" {
		return media.AudioTrack{}, fmt.Errorf("track %q: want KIND=PATH[,start=S][,volume=V][,duration=D]", value)
	}
	kind, err := media.ParseTrackKind(kindText)
	if err != nil {
		return media.AudioTrack{}, fmt.Errorf("track %q: %w", value, err)
	}
	track := media.AudioTrack{Path: strings.TrimSpace(path), Kind: kind}
	for _, part := range parts[1:] {
		key, raw, ok := strings.Cut(part, "=")
		if !ok {
			return media.AudioTrack{}, fmt.Errorf("track %q: option %q needs a value", value, part)
		}
		number, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return media.AudioTrack{}, fmt.Errorf("track %q: option %s: %w", value, key, err)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "start":
			track.StartTime = number
		case "volume":
			track.Volume = &number
		case "duration":
			track.Duration = &number
		default:
			return media.AudioTrack{}, fmt.Errorf("track %q: unknown option %q", value, key)
		}
	}
	return track, nil
}

// loadSpec decodes a JSON spec file into dst.
func loadSpec(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read spec: %w", err)
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("parse spec %s: %w", path, err)
	}
	return nil
}
