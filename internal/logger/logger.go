package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	RotateMaxSize    = 30 // MB
	RotateMaxAge     = 90 // days
	RotateMaxBackups = 10
)

// Config describes where and how verbosely to log.
type Config struct {
	Level string
	// File enables rotated file output next to stdout when set.
	File string
	JSON bool
}

// New builds a logger from cfg. An unknown level falls back to info.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    RotateMaxSize,
			MaxAge:     RotateMaxAge,
			MaxBackups: RotateMaxBackups,
			LocalTime:  true,
			Compress:   true,
		})
	}
	log.SetOutput(out)
	if err != nil && cfg.Level != "" {
		log.Warnf("unknown log level %q, using info", cfg.Level)
	}
	return log
}

// Discard returns a logger that writes nowhere.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Component derives an entry tagged with module and scope fields. A nil
// logger yields a discarding entry.
func Component(log *logrus.Logger, module, scope string) *logrus.Entry {
	if log == nil {
		log = Discard()
	}
	return log.WithFields(logrus.Fields{
		"module": module,
		"scope":  scope,
	})
}
