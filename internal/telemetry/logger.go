package telemetry

import (
	log "github.com/sirupsen/logrus"
)

// InitLogger は JSON 形式の構造化ログにする
func InitLogger(level string) {
	log.SetFormatter(&log.JSONFormatter{})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
