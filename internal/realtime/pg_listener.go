package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachSync/internal/observability"
)

const sourcePostgres = "postgres"

// PGListener turns Postgres NOTIFY payloads emitted by the change feed
// triggers into broker events.
type PGListener struct {
	pool    *pgxpool.Pool
	channel string
	broker  *Broker
}

func NewPGListener(pool *pgxpool.Pool, channel string, broker *Broker) *PGListener {
	return &PGListener{pool: pool, channel: channel, broker: broker}
}

// Run listens until ctx is cancelled. Dropped connections are re-established
// with backoff and followed by a broker resync.
func (l *PGListener) Run(ctx context.Context) error {
	attempt := 0
	connectedBefore := false
	for {
		err := l.listen(ctx, func() {
			if connectedBefore {
				observability.IncFeedReconnect(sourcePostgres)
				l.broker.Resync(ctx)
			}
			connectedBefore = true
			attempt = 0
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := backoff(attempt)
		attempt++
		log.Printf("change feed listener: %v (retrying in %s)", err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (l *PGListener) listen(ctx context.Context, onListening func()) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	onListening()

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// The connection may be unusable; make sure the pool discards it.
			_ = conn.Conn().Close(context.Background())
			return fmt.Errorf("wait for notification: %w", err)
		}

		event, err := ParseChangeEvent([]byte(notification.Payload))
		if err != nil {
			log.Printf("change feed listener: %v", err)
			continue
		}
		observability.IncFeedEvent(event.Table, sourcePostgres)
		_ = l.broker.Publish(ctx, event)
	}
}
