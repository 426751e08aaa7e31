package httpserver

import (
	"time"

	"github.com/videotube/backend/internal/config"
)

// DefaultShutdownTimeout is used when no drain period is configured.
const DefaultShutdownTimeout = 10 * time.Second

// ShutdownTimeout returns how long a graceful shutdown may wait for in-flight requests.
func ShutdownTimeout(cfg config.HTTPConfig) time.Duration {
	if cfg.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return cfg.ShutdownTimeout
}
