package realtime

import (
	"context"
	"log"
	"time"

	"github.com/saeid-a/CoachSync/internal/observability"
)

// restartDelay is swapped out by tests.
var restartDelay = backoff

// Supervise keeps run alive until ctx is cancelled, restarting it with
// backoff. Every restart is followed by a broker resync.
func Supervise(ctx context.Context, source string, broker *Broker, run func(ctx context.Context) error) {
	for attempt := 0; ; attempt++ {
		started := time.Now()
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > time.Minute {
			attempt = 0
		}

		delay := restartDelay(attempt)
		log.Printf("%s change feed stopped: %v (restarting in %s)", source, err, delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		observability.IncFeedReconnect(source)
		broker.Resync(ctx)
	}
}
