package session

import (
	"context"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/seekerhq/seeker/internal/log"
)

// Store holds all live conversations.
type Store struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*conversation

	idleTimeout time.Duration
	logger      log.Logger
	now         func() time.Time
}

// Config configures a Store.
type Config struct {
	// IdleTimeout is the inactivity threshold for the sweeper.
	// Zero uses DefaultIdleTimeout.
	IdleTimeout time.Duration

	// Logger is required.
	Logger log.Logger
}

// NewStore creates an empty conversation store.
func NewStore(cfg Config) *Store {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		conversations: make(map[uuid.UUID]*conversation),
		idleTimeout:   idle,
		logger:        logger,
		now:           time.Now,
	}
}

// Start allocates a new conversation with empty history and returns its
// id. userID may be empty for anonymous sessions.
func (s *Store) Start(userID string) uuid.UUID {
	id := uuid.New()
	now := s.now()

	s.mu.Lock()
	s.conversations[id] = &conversation{
		id:           id,
		userID:       userID,
		createdAt:    now,
		lastActiveAt: now,
	}
	s.mu.Unlock()

	s.logger.Debug("conversation started", "conversation_id", id, "user_id", userID)
	return id
}

// get looks up the live record for id.
func (s *Store) get(id uuid.UUID) (*conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// History returns a copy of the conversation's messages in arrival
// order. The copy is safe to hand to the model while other turns are
// appended.
func (s *Store) History(id uuid.UUID) ([]*ai.Message, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]*ai.Message, len(c.messages))
	copy(msgs, c.messages)
	return msgs, nil
}

// Append adds messages to the conversation history in order and bumps
// the last-active timestamp.
func (s *Store) Append(id uuid.UUID, msgs ...*ai.Message) error {
	c, err := s.get(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
	c.lastActiveAt = s.now()
	return nil
}

// AppendTurn records one complete user/assistant exchange.
func (s *Store) AppendTurn(id uuid.UUID, userInput, assistantResponse string) error {
	return s.Append(id,
		ai.NewUserMessage(ai.NewTextPart(userInput)),
		ai.NewModelMessage(ai.NewTextPart(assistantResponse)),
	)
}

// Touch bumps the last-active timestamp without mutating history.
func (s *Store) Touch(id uuid.UUID) error {
	c, err := s.get(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.lastActiveAt = s.now()
	c.mu.Unlock()
	return nil
}

// SetTopic records the current conversation topic.
func (s *Store) SetTopic(id uuid.UUID, topic string) error {
	c, err := s.get(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
	return nil
}

// Stats returns a metadata snapshot for the conversation.
func (s *Store) Stats(id uuid.UUID) (Stats, error) {
	c, err := s.get(id)
	if err != nil {
		return Stats{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(), nil
}

// End removes the conversation. Returns ErrNotFound if id is unknown;
// callers that want end-if-present semantics check with errors.Is.
func (s *Store) End(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	s.logger.Debug("conversation ended", "conversation_id", id)
	return nil
}

// Len reports the number of live conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Sweep removes conversations idle past the configured threshold and
// returns how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.conversations {
		c.mu.Lock()
		idle := c.lastActiveAt.Before(cutoff)
		c.mu.Unlock()
		if idle {
			delete(s.conversations, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("swept idle conversations", "removed", removed, "remaining", len(s.conversations))
	}
	return removed
}

// RunSweeper periodically sweeps idle conversations until ctx is
// cancelled. Intended to run in its own goroutine.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
