package logging

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// gormWriter adapts zap to gorm's logger.Writer.
type gormWriter struct {
	log *zap.SugaredLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(strings.TrimSpace(format), args...)
}

// Gorm returns a gorm logger that reports slow queries and errors through l.
func Gorm(l *zap.Logger) logger.Interface {
	return logger.New(
		gormWriter{log: l.Named("gorm").WithOptions(zap.AddCallerSkip(3)).Sugar()},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
