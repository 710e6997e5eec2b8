// Package session owns conversation state for the assistant.
//
// All state is process-lifetime only: a Store is a map from
// conversation id to history plus metadata. There is no persistence
// layer.
//
// Concurrency: the Store guards map membership with its own mutex and
// every conversation carries a dedicated mutex for history mutation, so
// unrelated conversations never serialize against each other. Callers
// must still not issue overlapping chat calls against the same
// conversation id; within one conversation, turns are appended strictly
// in arrival order.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// ErrNotFound indicates the requested conversation does not exist or
// has been ended or swept.
var ErrNotFound = errors.New("conversation not found")

// DefaultIdleTimeout is how long a conversation may stay inactive
// before the sweeper removes it.
const DefaultIdleTimeout = 2 * time.Hour

// DefaultSweepInterval is how often the background sweeper runs.
const DefaultSweepInterval = 5 * time.Minute

// Stats is a read-only snapshot of one conversation's metadata.
type Stats struct {
	ID           uuid.UUID
	UserID       string
	CreatedAt    time.Time
	LastActiveAt time.Time
	MessageCount int
	Topic        string
}

// conversation is the internal mutable record. Its mutex serializes all
// history and metadata mutation for this one id.
type conversation struct {
	mu sync.Mutex

	id           uuid.UUID
	userID       string
	createdAt    time.Time
	lastActiveAt time.Time
	topic        string
	messages     []*ai.Message
}

func (c *conversation) snapshot() Stats {
	return Stats{
		ID:           c.id,
		UserID:       c.userID,
		CreatedAt:    c.createdAt,
		LastActiveAt: c.lastActiveAt,
		MessageCount: len(c.messages),
		Topic:        c.topic,
	}
}
