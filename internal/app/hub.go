package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/store"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = 6

	// DefaultSessionTimeout is how long an empty session stays open on this server
	DefaultSessionTimeout = 30 * time.Minute

	// roomTTL is how long a room code stays reserved in the shared backend
	roomTTL = 24 * time.Hour
)

// RoomCodeChars are characters used for room codes (no ambiguous chars)
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Options wires the dependencies shared by every session
type Options struct {
	Backend        store.Backend
	Catalog        Catalog
	Profiles       *store.ProfileStore
	DrawSettings   domain.DrawSettings
	SubmissionTTL  time.Duration
	RoomCodeLength int
	SessionTimeout time.Duration

	// NewRandom seeds the draw of each session; a time-seeded source is used when nil
	NewRandom func() domain.Random
}

func (o Options) newRandom() domain.Random {
	if o.NewRandom != nil {
		return o.NewRandom()
	}
	return mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
}

// GameHub manages the rooms served by this server
type GameHub struct {
	sessions map[string]*GameSession
	mu       sync.RWMutex
	opts     Options
	logger   *slog.Logger
	done     chan struct{}
}

// NewGameHub creates a new game hub
func NewGameHub(opts Options, logger *slog.Logger) *GameHub {
	if opts.RoomCodeLength <= 0 {
		opts.RoomCodeLength = DefaultRoomCodeLength
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = DefaultSessionTimeout
	}
	if opts.DrawSettings == (domain.DrawSettings{}) {
		opts.DrawSettings = domain.DefaultDrawSettings()
	}

	hub := &GameHub{
		sessions: make(map[string]*GameSession),
		opts:     opts,
		logger:   logger,
		done:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go hub.cleanupLoop()

	return hub
}

// CreateGame reserves a new room code and returns its session
func (h *GameHub) CreateGame(ctx context.Context) (*GameSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for attempts := 0; attempts < 10; attempts++ {
		roomCode, err := h.generateRoomCode()
		if err != nil {
			return nil, err
		}
		if _, exists := h.sessions[roomCode]; exists {
			continue
		}

		// Room codes are shared by every server on the same backend
		reserved, err := h.opts.Backend.SetNX(ctx, store.RoomKey(roomCode), []byte(time.Now().UTC().Format(time.RFC3339)), roomTTL)
		if err != nil {
			return nil, fmt.Errorf("reserve room code: %w", err)
		}
		if !reserved {
			continue
		}

		session, err := NewGameSession(ctx, roomCode, h.opts, h.logger)
		if err != nil {
			return nil, err
		}
		h.sessions[roomCode] = session

		h.logger.Info("game created", "roomCode", roomCode)
		return session, nil
	}

	return nil, fmt.Errorf("failed to generate unique room code")
}

// GetSession returns a session served by this server
func (h *GameHub) GetSession(roomCode string) (*GameSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[NormalizeRoomCode(roomCode)]
	if !ok {
		return nil, domain.ErrGameNotFound
	}

	return session, nil
}

// JoinSession returns the session of a room, opening it on this server when the room
// was created elsewhere or the session was reaped
func (h *GameHub) JoinSession(ctx context.Context, roomCode string) (*GameSession, error) {
	roomCode = NormalizeRoomCode(roomCode)
	if session, err := h.GetSession(roomCode); err == nil {
		return session, nil
	}

	exists, err := h.RoomExists(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrGameNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[roomCode]; ok {
		return session, nil
	}

	session, err := NewGameSession(ctx, roomCode, h.opts, h.logger)
	if err != nil {
		return nil, err
	}
	h.sessions[roomCode] = session

	h.logger.Info("game opened", "roomCode", roomCode)
	return session, nil
}

// RoomExists reports whether a room code is known to any server
func (h *GameHub) RoomExists(ctx context.Context, roomCode string) (bool, error) {
	roomCode = NormalizeRoomCode(roomCode)

	h.mu.RLock()
	_, local := h.sessions[roomCode]
	h.mu.RUnlock()
	if local {
		return true, nil
	}

	reserved, err := h.opts.Backend.Exists(ctx, store.RoomKey(roomCode))
	if err != nil || reserved {
		return reserved, err
	}
	return h.opts.Backend.Exists(ctx, store.LiveGameKey(roomCode))
}

// DeleteSession closes the session of a room on this server
func (h *GameHub) DeleteSession(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomCode = NormalizeRoomCode(roomCode)
	if session, ok := h.sessions[roomCode]; ok {
		session.Close()
		delete(h.sessions, roomCode)
		h.logger.Info("game deleted", "roomCode", roomCode)
	}
}

// GetSessionCount returns the number of active sessions
func (h *GameHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalClientCount returns the number of connected clients across all sessions
func (h *GameHub) GetTotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.GetClientCount()
	}
	return total
}

// Close shuts down the hub and all sessions
func (h *GameHub) Close() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*GameSession)
}

// NormalizeRoomCode upper-cases a room code typed by a user
func NormalizeRoomCode(roomCode string) string {
	return strings.ToUpper(strings.TrimSpace(roomCode))
}

// generateRoomCode generates a random room code
func (h *GameHub) generateRoomCode() (string, error) {
	alphabet := big.NewInt(int64(len(RoomCodeChars)))

	code := make([]byte, h.opts.RoomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		code[i] = RoomCodeChars[n.Int64()]
	}

	return string(code), nil
}

// cleanupLoop periodically closes idle sessions
func (h *GameHub) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStaleGames(time.Now())
		}
	}
}

// cleanupStaleGames closes sessions with no clients and no recent activity.
// The round stays in the store so the room can be reopened.
func (h *GameHub) cleanupStaleGames(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stale := make([]string, 0)

	for roomCode, session := range h.sessions {
		if session.GetClientCount() == 0 && !session.DrawPending() && now.Sub(session.GetLastActivity()) > h.opts.SessionTimeout {
			stale = append(stale, roomCode)
		}
	}

	for _, roomCode := range stale {
		if session, ok := h.sessions[roomCode]; ok {
			session.Close()
			delete(h.sessions, roomCode)
			h.logger.Info("stale game cleaned up", "roomCode", roomCode)
		}
	}
}
