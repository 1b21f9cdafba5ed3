package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dingo-bridge/dingo-bridge-node/internal/auditlog"
)

// InitLogger configures the package-level logrus logger and attaches
// the rotated append-only audit-log hook (spec §7, §4.12) so every
// Error/Fatal entry lands in both places without a second call site.
// Grounded on wpokt-validator's app/logger.go level-from-string switch.
func InitLogger(level string, auditLogPath string) error {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	hook, err := auditlog.NewHook(auditLogPath)
	if err != nil {
		return err
	}
	log.AddHook(hook)
	return nil
}
