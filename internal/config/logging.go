package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

var logg *logrus.Logger

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.InfoLevel)
	logg.SetOutput(os.Stdout)

	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "")); err == nil {
		logg.SetLevel(lvl)
	}
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, err error) {
	logger.WithFields(logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}).Error(err.Error())
}

// LogOp records the outcome and duration of a timed connector operation.
func LogOp(logger *logrus.Logger, moduleName string, op string, started time.Time, err error) {
	fields := logrus.Fields{
		"module":      moduleName,
		"op":          op,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("operation failed")
		return
	}
	logger.WithFields(fields).Info("operation completed")
}
