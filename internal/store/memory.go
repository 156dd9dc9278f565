package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const memorySubscriptionBuffer = 256

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryBackend is an in-process backend for a single server instance
type MemoryBackend struct {
	mu          sync.Mutex
	data        map[string]memoryEntry
	subscribers map[string]map[*memorySubscription]struct{}
	logger      *slog.Logger
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:        make(map[string]memoryEntry),
		subscribers: make(map[string]map[*memorySubscription]struct{}),
		logger:      slog.Default(),
	}
}

// WithLogger sets the logger that reports lost notifications
func (b *MemoryBackend) WithLogger(logger *slog.Logger) *MemoryBackend {
	if logger != nil {
		b.logger = logger
	}
	return b
}

func (b *MemoryBackend) getLocked(key string) (memoryEntry, bool) {
	entry, ok := b.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(time.Now()) {
		delete(b.data, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func newEntry(value []byte, ttl time.Duration) memoryEntry {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	return entry
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.getLocked(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[key] = newEntry(value, ttl)
	return nil
}

func (b *MemoryBackend) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.getLocked(key); ok {
		return false, nil
	}
	b.data[key] = newEntry(value, ttl)
	return true, nil
}

func (b *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.getLocked(key)
	return ok, nil
}

func (b *MemoryBackend) Del(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		delete(b.data, key)
	}
	return nil
}

// Publish hands the payload to every subscriber of the channel.
// A subscriber whose buffer is full misses the message.
func (b *MemoryBackend) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers[channel] {
		select {
		case sub.messages <- append([]byte(nil), payload...):
		default:
			b.logger.Warn("subscriber buffer full, dropping notification", "channel", channel)
		}
	}
	return nil
}

func (b *MemoryBackend) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &memorySubscription{
		backend:  b,
		channel:  channel,
		messages: make(chan []byte, memorySubscriptionBuffer),
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[*memorySubscription]struct{})
	}
	b.subscribers[channel][sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subs := range b.subscribers {
		for sub := range subs {
			if !sub.closed {
				sub.closed = true
				close(sub.messages)
			}
		}
		delete(b.subscribers, channel)
	}
	return nil
}

type memorySubscription struct {
	backend  *MemoryBackend
	channel  string
	messages chan []byte
	closed   bool // guarded by backend.mu
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *memorySubscription) Close() error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	delete(s.backend.subscribers[s.channel], s)
	close(s.messages)
	return nil
}
