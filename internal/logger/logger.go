package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the logger flavour. Empty fields follow the environment.
type Config struct {
	Level  string
	Format string
}

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev/docker use colored console output.
// Logs always go to stderr so CLI output on stdout stays clean.
func NewLogger(env string, cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	switch env {
	case "prod":
		zc = zap.NewProductionConfig()
	case "local", "dev", "docker":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
	zc.OutputPaths = []string{"stderr"}

	switch cfg.Format {
	case "":
	case FormatJSON:
		zc.Encoding = FormatJSON
		zc.EncoderConfig = zap.NewProductionEncoderConfig()
	case FormatConsole:
		zc.Encoding = FormatConsole
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// Component names a sub-logger after the component that owns it.
func Component(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name)
}
