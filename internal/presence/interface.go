package presence

import (
	"context"
	"time"
)

// Connection is the per-connection value stored under a user's entry.
type Connection struct {
	InstanceID  string    `json:"instance_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Registry tracks which users are online and which gateway instance
// holds each connection. Entries self-expire: a client that stops
// refreshing and never disconnects cleanly vanishes after the TTL, so
// no reaper process is needed. Registry failures must never block
// connect, disconnect or message delivery; callers log and move on.
type Registry interface {
	// SetOnline records a connection under the user's entry and resets
	// the entry-wide freshness deadline.
	SetOnline(ctx context.Context, userID, instanceID, connID string) error

	// SetOffline removes a single connection. When it was the user's
	// last one the whole entry is deleted outright, so the user reads
	// as offline immediately rather than after TTL expiry.
	SetOffline(ctx context.Context, userID, connID string) error

	// RefreshTTL extends the freshness deadline; invoked on each client
	// heartbeat.
	RefreshTTL(ctx context.Context, userID string) error

	// IsOnline is an existence check only.
	IsOnline(ctx context.Context, userID string) (bool, error)

	Close() error
}
