package worker

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageIDGenerator assigns ULIDs to messages at persistence time.
// Monotonic entropy keeps ids strictly increasing within a process even
// when several are drawn in the same millisecond, which is what makes
// per-room id order match the order the worker observed events in.
type MessageIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewMessageIDGenerator() *MessageIDGenerator {
	return &MessageIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *MessageIDGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate message id: %w", err)
	}
	return id.String(), nil
}
