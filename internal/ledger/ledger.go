// Package ledger records guesses in a round and enforces one submission per client per round.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/store"
)

// DefaultFlagTTL bounds how long submission flags outlive their round
const DefaultFlagTTL = 24 * time.Hour

// Ledger is the append-only submission record of a room.
// The duplicate check is claimed atomically in the shared backend, keyed by round ID.
type Ledger struct {
	backend store.Backend
	room    string
	flagTTL time.Duration
}

// New creates a ledger for a room
func New(backend store.Backend, room string) *Ledger {
	return &Ledger{
		backend: backend,
		room:    room,
		flagTTL: DefaultFlagTTL,
	}
}

// WithFlagTTL overrides how long submission flags are kept; non-positive values are ignored
func (l *Ledger) WithFlagTTL(ttl time.Duration) *Ledger {
	if ttl > 0 {
		l.flagTTL = ttl
	}
	return l
}

// Append records a submission for a client. It returns the new round when accepted,
// ErrRoundNotAccepting when the round is not open, or ErrAlreadySubmitted when the
// client already has a guess in this round.
func (l *Ledger) Append(ctx context.Context, round *domain.Round, clientID string, submission domain.Submission) (*domain.Round, error) {
	if !domain.StatusOf(round).AcceptsSubmissions() {
		return round, domain.ErrRoundNotAccepting
	}

	claimed, err := l.backend.SetNX(ctx, store.SubmittedKey(l.room, round.ID, clientID), []byte("true"), l.flagTTL)
	if err != nil {
		return round, fmt.Errorf("claim submission flag: %w", err)
	}
	if !claimed {
		return round, domain.ErrAlreadySubmitted
	}

	next, err := domain.Reduce(round, &domain.AppendSubmissionAction{Submission: submission})
	if err != nil {
		// The flag stays claimed; the round refused the guess, so the client has no second try either
		return round, err
	}

	// The product flag is a read-only view; the round flag above is authoritative
	productKey := store.ProductSubmittedKey(l.room, normalizeProduct(round.Giveaway.ProductName), clientID)
	_ = l.backend.Set(ctx, productKey, []byte("true"), l.flagTTL)

	return next, nil
}

// Release gives a client its submission back after the round holding it could not be saved
func (l *Ledger) Release(ctx context.Context, roundID, productName, clientID string) error {
	return l.backend.Del(ctx,
		store.SubmittedKey(l.room, roundID, clientID),
		store.ProductSubmittedKey(l.room, normalizeProduct(productName), clientID),
	)
}

// HasSubmitted reports whether a client already has a guess in the round
func (l *Ledger) HasSubmitted(ctx context.Context, roundID, clientID string) (bool, error) {
	if roundID == "" || clientID == "" {
		return false, nil
	}
	return l.backend.Exists(ctx, store.SubmittedKey(l.room, roundID, clientID))
}

// HasSubmittedProduct reports whether a client ever guessed in a round for this product
func (l *Ledger) HasSubmittedProduct(ctx context.Context, productName, clientID string) (bool, error) {
	return l.backend.Exists(ctx, store.ProductSubmittedKey(l.room, normalizeProduct(productName), clientID))
}

func normalizeProduct(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
