package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"caixamisteriosa/internal/domain"
)

// NotificationKind tells subscribers what happened to the live round
type NotificationKind string

const (
	KindWritten     NotificationKind = "written"
	KindCleared     NotificationKind = "cleared"
	KindDrawStarted NotificationKind = "draw_started"
)

// Notification is a change made by another producer
type Notification struct {
	Kind   NotificationKind `json:"kind"`
	Origin string           `json:"origin"`
	Round  *domain.Round    `json:"round,omitempty"`
	Draw   *domain.Draw     `json:"draw,omitempty"`
}

// Unsubscribe stops the delivery of notifications
type Unsubscribe func()

// GameStateStore is the single source of truth for the live round of one room.
// Every write is a full replace; concurrent producers resolve as last write wins.
type GameStateStore struct {
	backend Backend
	room    string
	origin  string
	logger  *slog.Logger
}

// NewGameStateStore creates a store for a room with a fresh producer identity
func NewGameStateStore(backend Backend, room string, logger *slog.Logger) *GameStateStore {
	return &GameStateStore{
		backend: backend,
		room:    room,
		origin:  uuid.NewString(),
		logger:  logger.With("room", room),
	}
}

// Origin returns the producer identity stamped on every notification
func (s *GameStateStore) Origin() string {
	return s.origin
}

// Room returns the room this store belongs to
func (s *GameStateStore) Room() string {
	return s.room
}

// Read returns the persisted round, or nil if there is none or it cannot be decoded
func (s *GameStateStore) Read(ctx context.Context) *domain.Round {
	key := LiveGameKey(s.room)

	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to read live game", "error", err)
		}
		return nil
	}

	var round domain.Round
	if err := json.Unmarshal(data, &round); err != nil {
		s.logger.Warn("discarding corrupted live game", "error", err)
		if err := s.backend.Del(ctx, key); err != nil {
			s.logger.Debug("failed to drop corrupted live game", "error", err)
		}
		return nil
	}

	return &round
}

// Write persists the full round and notifies the other producers.
// Writing nil is the same as Clear.
func (s *GameStateStore) Write(ctx context.Context, round *domain.Round) error {
	if round == nil {
		return s.Clear(ctx)
	}

	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("encode live game: %w", err)
	}

	if err := s.backend.Set(ctx, LiveGameKey(s.room), data, 0); err != nil {
		return fmt.Errorf("persist live game: %w", err)
	}

	return s.publish(ctx, &Notification{Kind: KindWritten, Round: round})
}

// Clear removes the persisted round and signals that it was destroyed
func (s *GameStateStore) Clear(ctx context.Context) error {
	if err := s.backend.Del(ctx, LiveGameKey(s.room)); err != nil {
		return fmt.Errorf("delete live game: %w", err)
	}

	return s.publish(ctx, &Notification{Kind: KindCleared})
}

// AnnounceDraw tells the other producers which spin to animate
func (s *GameStateStore) AnnounceDraw(ctx context.Context, draw *domain.Draw) error {
	return s.publish(ctx, &Notification{Kind: KindDrawStarted, Draw: draw})
}

// Subscribe calls fn for every notification published by another producer.
// Notifications of one producer arrive in the order they were published.
func (s *GameStateStore) Subscribe(ctx context.Context, fn func(Notification)) (Unsubscribe, error) {
	sub, err := s.backend.Subscribe(ctx, EventsChannel(s.room))
	if err != nil {
		return nil, fmt.Errorf("subscribe live game: %w", err)
	}

	go func() {
		for payload := range sub.Messages() {
			var n Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				s.logger.Warn("dropping malformed notification", "error", err)
				continue
			}
			if n.Origin == s.origin {
				continue
			}
			fn(n)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Close(); err != nil {
				s.logger.Debug("failed to close subscription", "error", err)
			}
		})
	}, nil
}

func (s *GameStateStore) publish(ctx context.Context, n *Notification) error {
	n.Origin = s.origin

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	if err := s.backend.Publish(ctx, EventsChannel(s.room), data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
