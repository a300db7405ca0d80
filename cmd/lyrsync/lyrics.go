package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrsync/internal/config"
	"karolbroda.com/lyrsync/internal/provider"
	"karolbroda.com/lyrsync/internal/timeline"
	"karolbroda.com/lyrsync/internal/track"
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics lookup utilities",
	Long:  `look lyrics up on lrclib and inspect how they parse, without starting the viewer.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "check lyrics availability for a track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, status, warnings, err := lookupAndParse(args[0], args[1])
		if err != nil {
			if provider.IsNotFound(err) {
				fmt.Printf("no lyrics found for %s - %s\n", args[0], args[1])
				return nil
			}
			return err
		}

		fmt.Printf("status: %s\n", status)
		fmt.Printf("lines:  %d\n", len(lines))
		if len(warnings) > 0 {
			fmt.Printf("skipped %d malformed timestamp tag(s)\n", len(warnings))
		}

		return nil
	},
}

var lyricsShowCmd = &cobra.Command{
	Use:   "show <artist> <title>",
	Short: "print the parsed timeline for a track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, status, _, err := lookupAndParse(args[0], args[1])
		if err != nil {
			if provider.IsNotFound(err) {
				fmt.Printf("no lyrics found for %s - %s\n", args[0], args[1])
				return nil
			}
			return err
		}

		if status == timeline.StatusNotFound {
			fmt.Println("lyrics entry exists but is empty")
			return nil
		}

		for _, line := range lines {
			if status == timeline.StatusSynced {
				fmt.Printf("[%s] %s\n", formatDuration(line.TimestampMs), line.Text)
			} else {
				fmt.Println(line.Text)
			}
		}

		return nil
	},
}

func lookupAndParse(artist, title string) ([]timeline.Line, timeline.Status, []timeline.Warning, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, 0, nil, err
	}
	if lrclibURL != "" {
		cfg.LrclibURL = lrclibURL
	}

	gateway, err := provider.NewLrclib(cfg.LrclibURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, 0, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raw, err := gateway.Lookup(ctx, &track.Info{Artist: artist, Title: title})
	if err != nil {
		return nil, 0, nil, err
	}

	lines, status, warnings := timeline.Parse(raw)
	return lines, status, warnings, nil
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsShowCmd)
}
