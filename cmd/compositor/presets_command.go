package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"compositor/internal/transcode"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "presets",
		Short:       "List delivery presets",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := transcode.Profiles()
			if ctx.jsonOutput() {
				return writeJSON(cmd, profiles)
			}
			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				fps := "source"
				if p.FPS > 0 {
					fps = strconv.FormatFloat(p.FPS, 'f', -1, 64)
				}
				rows = append(rows, []string{string(p.Name), strconv.Itoa(p.Quality), fps, p.AudioBitrate})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Quality", "FPS", "Audio"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
