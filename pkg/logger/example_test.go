package logger_test

import (
	"errors"

	"github.com/wonny/diamond/pkg/config"
	"github.com/wonny/diamond/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Info("Strategy run started")
	log.Infof("Universe loaded: %d symbols", 200)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg).WithModule("regime")

	log.WithFields(map[string]interface{}{
		"leader":     "BANK",
		"laggard":    "IT",
		"dispersion": 18.4,
	}).Info("Regime detected")

	log.WithError(errors.New("delivery archive unavailable")).Warn("Using default delivery")
}
