package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"caixamisteriosa/internal/domain"
)

// ProfileStore keeps the last identity a client typed, to prefill its forms
type ProfileStore struct {
	backend Backend
	logger  *slog.Logger
}

// NewProfileStore creates a profile store
func NewProfileStore(backend Backend, logger *slog.Logger) *ProfileStore {
	return &ProfileStore{backend: backend, logger: logger}
}

// Save stores the profile of a client for a role
func (p *ProfileStore) Save(ctx context.Context, role domain.Role, clientID string, profile domain.Participant) error {
	data, err := json.Marshal(profile.Normalize())
	if err != nil {
		return err
	}
	return p.backend.Set(ctx, ProfileKey(role.String(), clientID), data, 0)
}

// Load returns the stored profile; a missing or unreadable record reports false
func (p *ProfileStore) Load(ctx context.Context, role domain.Role, clientID string) (domain.Participant, bool) {
	var profile domain.Participant

	data, err := p.backend.Get(ctx, ProfileKey(role.String(), clientID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("failed to read profile", "clientID", clientID, "error", err)
		}
		return profile, false
	}

	if err := json.Unmarshal(data, &profile); err != nil {
		p.logger.Warn("discarding corrupted profile", "clientID", clientID, "error", err)
		return domain.Participant{}, false
	}
	return profile, true
}
