// Package store persists the live round of each room and broadcasts every change
// to the other producers sharing the same backend.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a backend when a key does not exist
var ErrNotFound = errors.New("key not found")

// Backend is the shared key/value and pub/sub primitive every producer talks to
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error

	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	Close() error
}

// Subscription delivers published payloads in publish order until closed
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// RoomKey marks a room code as taken across producers
func RoomKey(room string) string {
	return "room:" + room
}

// LiveGameKey is the key holding the serialized round of a room
func LiveGameKey(room string) string {
	return "liveGame:" + room
}

// EventsChannel is the pub/sub channel carrying notifications of a room
func EventsChannel(room string) string {
	return "liveGame:" + room + ":events"
}

// SubmittedKey is the at-most-one-submission flag of a client in a round
func SubmittedKey(room, roundID, clientID string) string {
	return "submitted:" + room + ":" + roundID + ":" + clientID
}

// ProductSubmittedKey is the legacy flag keyed by product name
func ProductSubmittedKey(room, productName, clientID string) string {
	return "submitted:" + room + ":product:" + productName + ":" + clientID
}

// ProfileKey holds the form-prefill identity of a client for a role
func ProfileKey(role, clientID string) string {
	return "profile:" + role + ":" + clientID
}
