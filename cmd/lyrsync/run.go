package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyrsync/internal/cache"
	"karolbroda.com/lyrsync/internal/config"
	"karolbroda.com/lyrsync/internal/logging"
	"karolbroda.com/lyrsync/internal/player"
	"karolbroda.com/lyrsync/internal/provider"
	"karolbroda.com/lyrsync/internal/sched"
	"karolbroda.com/lyrsync/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive lyrics viewer",
	Long:  `starts the terminal viewer tracking the active player's position in real time.`,
	RunE:  runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// loadConfig resolves configuration with flag overrides applied on top of
// file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if playerName != "" {
		cfg.Player = playerName
	}
	if len(playerPriority) > 0 {
		cfg.PlayerPriority = playerPriority
	}
	if cmd.Flags().Changed("window") {
		cfg.WindowSize = windowSize
	}
	if cmd.Flags().Changed("cache-size") {
		cfg.CacheSize = cacheSize
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval = pollInterval
	}
	if lrclibURL != "" {
		cfg.LrclibURL = lrclibURL
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if cmd.Flags().Changed("hide-header") {
		cfg.HideHeader = hideHeader
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, logSink, err := logging.Setup(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logSink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	lister, err := player.NewMprisLister(bus)
	if err != nil {
		return err
	}

	monitor := player.NewMonitor(lister, logger,
		player.WithPinned(cfg.Player),
		player.WithPriority(cfg.PlayerPriority),
		player.WithInterval(cfg.PollInterval),
	)
	go monitor.Run(ctx)

	// dbus change signals shorten reaction time between polls
	watcher, err := player.NewWatcher(bus, monitor.Kick)
	if err == nil {
		if watchErr := watcher.Start(); watchErr != nil {
			logger.Warn().Err(watchErr).Msg("could not set up dbus signals, polling only")
		} else {
			defer watcher.Stop()
		}
	}

	gateway, err := provider.NewLrclib(cfg.LrclibURL, cfg.HTTPTimeout)
	if err != nil {
		return err
	}

	lyricsCache, err := cache.New(gateway, cfg.CacheSize, logger)
	if err != nil {
		return err
	}

	model := ui.NewModel(ui.ModelConfig{
		Monitor:        monitor,
		Cache:          lyricsCache,
		Scheduler:      sched.New(cfg.WindowSize),
		Log:            logger,
		RenderInterval: cfg.RenderInterval,
		HideHeader:     cfg.HideHeader,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		select {
		case <-sigChan:
			cancel()
			p.Quit()
		case <-ctx.Done():
			p.Quit()
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}

	return nil
}
