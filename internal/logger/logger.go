package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init configures the shared logger. format is "text" or "json".
func Init(level, format string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.Warnf("[Logger] Unknown level %q, keeping %s", level, log.GetLevel())
	}

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// L returns the shared logger
func L() *logrus.Logger {
	return log
}

// WithComponent tags entries with the subsystem that produced them
func WithComponent(name string) *logrus.Entry {
	return log.WithField("component", name)
}
