package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/espelita/portfolio/backend/internal/model/profile"
	"github.com/espelita/portfolio/backend/internal/reveal"
)

func newHeroCmd(a *app) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "hero",
		Short: "Play the hero intro in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			p := profile.Seed()
			hero, err := reveal.NewHero(reveal.RealClock(), a.cfg.Hero.Options(p.Name, p.Prefix, p.Roles))
			if err != nil {
				return err
			}
			return playHero(ctx, cmd.OutOrStdout(), hero)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}

// playHero redraws the two hero lines on every change until ctx ends.
func playHero(ctx context.Context, out io.Writer, hero *reveal.Hero) error {
	runErr := make(chan error, 1)
	go func() { runErr <- hero.Run(ctx) }()

	drawn := false
	draw := func() {
		lines := heroLines(hero.Snapshot())
		if drawn {
			fmt.Fprint(out, "\033[2A")
		}
		fmt.Fprintf(out, "\r\033[K%s\n\r\033[K%s\n", lines[0], lines[1])
		drawn = true
	}

	draw()
	for {
		select {
		case <-hero.Changes():
			draw()
		case err := <-runErr:
			draw()
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
