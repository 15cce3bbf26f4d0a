package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedChannelSetting is the session setting the change feed triggers read
// their NOTIFY channel from. Writers that never set it notify on
// DefaultFeedChannel.
const (
	FeedChannelSetting = "app.feed_channel"
	DefaultFeedChannel = "table_changes"
)

// Connect opens the shared pool. Live sessions, the change feed listener and
// request handlers all draw from it, so MaxConns leaves room for one
// long-lived LISTEN connection. Every connection is tagged with feedChannel so
// rows written through the pool are announced where the listener waits.
func Connect(ctx context.Context, dbURL string, feedChannel string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	config.MaxConns = 12
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	if feedChannel == "" {
		feedChannel = DefaultFeedChannel
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SELECT set_config($1, $2, false)", FeedChannelSetting, feedChannel)
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Connected to PostgreSQL (max_conns=%d, feed_channel=%s)", config.MaxConns, feedChannel)
	return pool, nil
}
