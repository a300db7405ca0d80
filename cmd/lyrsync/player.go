package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"karolbroda.com/lyrsync/internal/player"
)

var (
	// flag for player test
	testPlayer string
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  `discover and inspect mpris-compatible music players on your system.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently running on the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		lister, err := player.NewMprisLister(bus)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		backends, err := lister.List(ctx)
		if err != nil {
			return err
		}

		if len(backends) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(backends))
		for _, b := range backends {
			identity := lister.Identity("org.mpris.MediaPlayer2." + b.Name())
			if identity != "" {
				fmt.Printf("  %s (%s)\n", b.Name(), identity)
			} else {
				fmt.Printf("  %s\n", b.Name())
			}
		}

		fmt.Println("\nuse --player to pin the viewer to one of them")

		return nil
	},
}

var playerTestCmd = &cobra.Command{
	Use:   "test",
	Short: "test connection to an mpris player",
	Long:  `connects to a player and checks that a playback snapshot can be read from it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		lister, err := player.NewMprisLister(bus)
		if err != nil {
			return err
		}

		// flag if provided, otherwise the global --player pin
		name := testPlayer
		if name == "" {
			name = playerName
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return testPlayerConnection(ctx, lister, name, cmd.OutOrStdout())
	},
}

// testPlayerConnection picks the named player (or the first one found) and
// reports whether a snapshot can be taken from it.
func testPlayerConnection(ctx context.Context, lister player.Lister, name string, out io.Writer) error {
	backends, err := lister.List(ctx)
	if err != nil {
		return err
	}
	if len(backends) == 0 {
		fmt.Fprintln(out, "no mpris players found")
		return nil
	}

	var backend player.Backend
	if name == "" {
		backend = backends[0]
	} else {
		for _, b := range backends {
			if b.Name() == name {
				backend = b
				break
			}
		}
		if backend == nil {
			return fmt.Errorf("player %q not found", name)
		}
	}

	fmt.Fprintf(out, "testing connection to: %s\n\n", backend.Name())

	snap, err := backend.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read player state: %w", err)
	}

	fmt.Fprintln(out, "status: connected ✓")

	if snap.Track.IsValid() {
		fmt.Fprintln(out, "\ncurrent track:")
		fmt.Fprintf(out, "  title:  %s\n", snap.Track.Title)
		fmt.Fprintf(out, "  artist: %s\n", snap.Track.Artist)
		if snap.Track.Album != "" {
			fmt.Fprintf(out, "  album:  %s\n", snap.Track.Album)
		}
		fmt.Fprintf(out, "  state:  %s\n", snap.Status)
	} else {
		fmt.Fprintln(out, "\nno track currently playing")
	}

	return nil
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show the player the viewer would track",
	Long:  `runs one selection cycle and prints the chosen player's current state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		lister, err := player.NewMprisLister(bus)
		if err != nil {
			return err
		}

		monitor := player.NewMonitor(lister, zerolog.Nop(),
			player.WithPinned(playerName),
			player.WithPriority(playerPriority),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		snap := monitor.Poll(ctx)
		if snap.Status == player.StatusUnavailable || snap.Track == nil {
			fmt.Println("no usable player found")
			return nil
		}

		fmt.Printf("title:    %s\n", snap.Track.Title)
		fmt.Printf("artist:   %s\n", snap.Track.Artist)
		if snap.Track.Album != "" {
			fmt.Printf("album:    %s\n", snap.Track.Album)
		}
		if snap.Track.DurationMs > 0 {
			fmt.Printf("duration: %s\n", formatDuration(snap.Track.DurationMs))
		}
		fmt.Printf("state:    %s\n", snap.Status)
		fmt.Printf("position: %s\n", formatDuration(snap.PositionMs))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerTestCmd)
	playerCmd.AddCommand(playerCurrentCmd)

	playerTestCmd.Flags().StringVar(&testPlayer, "name", "", "player to test (default: first found)")
}

func formatDuration(ms int64) string {
	if ms < 0 {
		return "0:00"
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
