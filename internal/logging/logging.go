package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. APP_ENV=development switches to the console
// encoder; LOG_LEVEL overrides the default info level.
func New(service string) (*zap.Logger, error) {
	return build(service, nil)
}

// NewFile is New writing to path instead of stderr. The terminal UI owns
// the screen, so it logs here.
func NewFile(service, path string) (*zap.Logger, error) {
	return build(service, []string{path})
}

func build(service string, paths []string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(os.Getenv("APP_ENV"), "development") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	if len(paths) > 0 {
		cfg.OutputPaths = paths
		cfg.ErrorOutputPaths = paths
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", service)), nil
}

// Must is New for main packages
func Must(service string) *zap.Logger {
	logger, err := New(service)
	if err != nil {
		panic(err)
	}
	return logger
}
