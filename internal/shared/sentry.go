package shared

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures the global sentry client. It is a no-op returning false when no DSN is configured.
func InitSentry(cfg SentryConfig, release string) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          release,
		AttachStacktrace: true,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return false, fmt.Errorf("%w: sentry: %v", ErrInvalidConfig, err)
	}
	return true, nil
}

// FlushSentry waits up to two seconds for buffered events to be delivered.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
