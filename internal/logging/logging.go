package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with a rotating file sink and a helper for attaching
// the correlation id as a structured field.
type Logger struct {
	*logrus.Logger
}

// New builds a Logger writing to stdout and a rotating file under dir.
func New(dir, level string) (*Logger, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	l.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   filepath.Join(dir, "report-service.log"),
		MaxSize:    50, // MB
		MaxBackups: 7,
		MaxAge:     28, // days
		Compress:   true,
	}))

	return &Logger{Logger: l}, nil
}

// WithCorrelation returns an entry carrying the correlation id. An empty id
// yields a plain entry so callers do not have to branch.
func (l *Logger) WithCorrelation(id string) *logrus.Entry {
	if id == "" {
		return logrus.NewEntry(l.Logger)
	}
	return l.WithField("correlation_id", id)
}
