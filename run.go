package main

import (
	"dosgo/btSerial/comm"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runExchange(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, closeDir, err := openDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDir()

	factory, err := newFactory(cfg, dir)
	if err != nil {
		return err
	}
	pick, err := newPicker(cfg, dir)
	if err != nil {
		return err
	}
	id, _ := cfg.ServiceID()
	mode, _ := comm.ParseCacheMode(cfg.CacheMode)

	ctrl := comm.NewController(pick, dir, factory, comm.ControllerOptions{
		ServiceID:   id,
		CacheMode:   mode,
		ReadTimeout: cfg.ReadTimeout,
		Logger:      logger,
	})
	logger.WithFields(logrus.Fields{
		"transport": cfg.Transport,
		"service":   id.String(),
		"interval":  cfg.TickInterval,
	}).Debug("Starting")
	return ctrl.Run(ctx, cfg.TickInterval)
}
