package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

func testDBURL(t *testing.T) string {
	t.Helper()
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("..", "..", ".env"))

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		t.Skip("skipping integration test: DB_URL is not set")
	}
	return dbURL
}

func TestConnectTagsConnectionsWithFeedChannel(t *testing.T) {
	dbURL := testDBURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const channel = "coachsync_feed_test"
	pool, err := Connect(ctx, dbURL, channel)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pool.Close()

	var setting string
	if err := pool.QueryRow(ctx, "SELECT current_setting($1, true)", FeedChannelSetting).Scan(&setting); err != nil {
		t.Fatalf("read setting: %v", err)
	}
	if setting != channel {
		t.Fatalf("expected %s, got %q", channel, setting)
	}

	var resolved string
	if err := pool.QueryRow(ctx, "SELECT change_feed_channel()").Scan(&resolved); err != nil {
		t.Skipf("skipping: change feed migrations not applied: %v", err)
	}
	if resolved != channel {
		t.Fatalf("triggers would notify %q, want %q", resolved, channel)
	}

	listener, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer listener.Release()
	if _, err := listener.Exec(ctx, "LISTEN "+channel); err != nil {
		t.Fatalf("LISTEN: %v", err)
	}

	if _, err := pool.Exec(ctx, "SELECT pg_notify(change_feed_channel(), 'ping')"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	notification, err := listener.Conn().WaitForNotification(ctx)
	if err != nil {
		t.Fatalf("WaitForNotification: %v", err)
	}
	if notification.Channel != channel || notification.Payload != "ping" {
		t.Fatalf("unexpected notification %+v", notification)
	}
}
