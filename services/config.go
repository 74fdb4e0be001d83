package services

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/config"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/logging"
)

var DefaultConfig = sync.OnceValue(func() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		panic("invalid fingraph configuration: " + err.Error())
	}
	return cfg
})

var DefaultLogger = sync.OnceValue(func() *logrus.Logger {
	cfg := DefaultConfig()
	// stdout carries the MCP protocol, so logs go to stderr
	logger, err := logging.NewWithOutput(os.Stderr, cfg.Logging.Level, "json")
	if err != nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.WithError(err).Warn("Falling back to info logging")
	}
	return logger
})
