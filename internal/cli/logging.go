package cli

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shanekizito/Thinkly/internal/config"
)

func setupLogging(cfg config.Config) {
	logrus.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.Log.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
