package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"compositor/internal/composer"
	"compositor/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE...",
		Short: "Report duration, dimensions, frame rate, and streams of media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComposer(func(c *composer.Composer) error {
				infos := make([]ffprobe.Info, 0, len(args))
				for _, path := range args {
					info, err := c.Probe(cmd.Context(), path)
					if err != nil {
						return err
					}
					infos = append(infos, info)
				}
				if ctx.jsonOutput() {
					if len(infos) == 1 {
						return writeJSON(cmd, infos[0])
					}
					return writeJSON(cmd, infos)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderProbeTable(infos))
				return nil
			})
		},
	}
}

func renderProbeTable(infos []ffprobe.Info) string {
	headers := []string{"File", "Duration", "Size", "Resolution", "FPS", "Video", "Audio"}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		audio := "none"
		if info.HasAudio {
			audio = info.AudioCodec
		}
		rows = append(rows, []string{
			info.Path,
			formatSeconds(info.DurationSeconds),
			formatSize(info.SizeBytes),
			fmt.Sprintf("%dx%d", info.Width, info.Height),
			strconv.FormatFloat(info.FrameRate, 'f', -1, 64),
			info.VideoCodec,
			audio,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight})
}
