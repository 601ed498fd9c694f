package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/config"
	"github.com/espelita/portfolio/backend/internal/logging"
	"github.com/espelita/portfolio/backend/internal/service/session"
)

type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	sessionFile string
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "portfolioctl",
		Short:         "Terminal companion for the portfolio backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.sessionFile, "session-file", "", "session id file (default: <user config dir>/portfolio/session.json)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newHeroCmd(a), newAskCmd(a), newSessionCmd(a))
	return root
}

func (a *app) init() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	} else if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) fileScope() (*session.FileScope, error) {
	path := a.sessionFile
	if path == "" {
		var err error
		if path, err = session.DefaultFilePath(); err != nil {
			return nil, fmt.Errorf("locate session file: %w", err)
		}
	}
	return session.NewFileScope(path), nil
}
