package kafka

import "context"

// Publisher publishes a value under a partition key and reports the
// broker's delivery result. Every publish has an observable outcome:
// a nil return means the broker acknowledged the write.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}
