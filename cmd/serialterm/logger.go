package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger logs to stderr, or to cfg.LogFile when set. Only warnings and
// errors are shown unless --debug is given, since the terminal is shared with
// the device output.
func newLogger(cfg Config, stderr io.Writer) (*logrus.Logger, func(), error) {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if cfg.LogFile == "" {
		return logger, func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger.SetOutput(f)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger, func() { f.Close() }, nil
}
