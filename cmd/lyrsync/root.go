package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// global flags
	playerName     string
	playerPriority []string
	windowSize     int
	cacheSize      int
	pollInterval   time.Duration
	lrclibURL      string
	logFile        string
	hideHeader     bool
)

var rootCmd = &cobra.Command{
	Use:   "lyrsync",
	Short: "terminal-based synchronized lyrics viewer",
	Long: `lyrsync shows time-synced lyrics in the terminal for whatever mpris
player is currently playing, with a sliding window centered on the
active line.

when run without a subcommand, it starts the interactive viewer.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&playerName, "player", "p", "", "pin to a specific player (e.g. spotify), no fallback")
	rootCmd.PersistentFlags().StringSliceVar(&playerPriority, "player-priority", nil, "preference order when several players are playing")
	rootCmd.PersistentFlags().IntVar(&windowSize, "window", 0, "lyrics window size (default 8)")
	rootCmd.PersistentFlags().IntVar(&cacheSize, "cache-size", 0, "max cached timelines (default 100)")
	rootCmd.PersistentFlags().DurationVar(&pollInterval, "poll-interval", 0, "player poll cadence (default 1s)")
	rootCmd.PersistentFlags().StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "error log path")
	rootCmd.PersistentFlags().BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
