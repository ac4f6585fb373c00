package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prophetable/prophetable/pkg/config"
	"github.com/prophetable/prophetable/pkg/logger"
)

// initDeps loads the environment config and builds the logger shared by
// all commands. Pipeline settings come separately from --config.
func initDeps() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	return cfg, log, nil
}

func requireConfigFlag() error {
	if configFile == "" {
		return errors.New("--config is required")
	}
	return nil
}
