package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-inspector/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const ServiceName = "webhook-inspector"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

/* Setup installs the global zerolog logger and returns the service logger
 * handed to httplog. httplog always runs in JSON mode here: console
 * formatting is done by our own writer so file output is kept either way.
 * The returned Closer flushes the rotating log file, if any.
 */
func Setup(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	writer, closer, err := NewWriter(cfg, os.Stdout)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Caller().Logger()

	logger := httplog.NewLogger(ServiceName, httplog.Options{
		JSON:     true,
		LogLevel: strings.ToLower(cfg.LogLevel),
		Concise:  cfg.Env == "development",
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})

	logger.Info().
		Str("level", cfg.LogLevel).
		Str("format", cfg.LogFormat).
		Str("output", cfg.LogOutput).
		Msg("logger initialized")

	return logger, closer, nil
}

// NewWriter builds the log sink described by cfg; stdout is where console output goes
func NewWriter(cfg *config.Config, stdout io.Writer) (io.Writer, io.Closer, error) {
	console := consoleWriter(cfg, stdout)

	switch strings.ToLower(cfg.LogOutput) {
	case "stdout":
		return console, nopCloser{}, nil
	case "file":
		file, err := fileWriter(cfg)
		if err != nil {
			return nil, nil, err
		}
		return file, file, nil
	case "both":
		file, err := fileWriter(cfg)
		if err != nil {
			return nil, nil, err
		}
		return zerolog.MultiLevelWriter(console, file), file, nil
	default:
		return nil, nil, fmt.Errorf("invalid log output %q", cfg.LogOutput)
	}
}

func consoleWriter(cfg *config.Config, stdout io.Writer) io.Writer {
	if strings.ToLower(cfg.LogFormat) == "console" {
		return zerolog.ConsoleWriter{
			Out:        stdout,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}
	return stdout
}

func fileWriter(cfg *config.Config) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileBackups,
		MaxAge:     cfg.LogFileMaxAge,
		Compress:   cfg.LogFileCompress,
		LocalTime:  true,
	}, nil
}
