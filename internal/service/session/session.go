package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// StorageKey is the single key a scope holds.
const StorageKey = "flowise-session-id"

var ErrEmptySessionID = errors.New("stored session id is empty")

// Scope is one persisted key-value space, the server-side analogue of a
// browser profile's local storage.
type Scope interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// SetIfAbsent stores value unless key already exists and returns
	// whatever is stored afterwards.
	SetIfAbsent(ctx context.Context, key, value string) (string, error)
}

// Scopes hands out the scope owned by a visitor.
type Scopes interface {
	Scope(visitorID string) Scope
}

// NewID generates a fresh session identifier.
func NewID() string {
	return "session-" + ulid.Make().String()
}

// Accessor resolves the session id of one scope, creating it on first use.
type Accessor struct {
	scope Scope
	newID func() string
}

// NewAccessor binds an Accessor to scope.
func NewAccessor(scope Scope) *Accessor {
	return &Accessor{scope: scope, newID: NewID}
}

// SessionID returns the persisted id, generating and storing one if absent.
// Once stored the value never changes for the lifetime of the scope.
func (a *Accessor) SessionID(ctx context.Context) (string, error) {
	stored, ok, err := a.scope.Get(ctx, StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read session id: %w", err)
	}
	if ok {
		if stored == "" {
			return "", ErrEmptySessionID
		}
		return stored, nil
	}

	id, err := a.scope.SetIfAbsent(ctx, StorageKey, a.newID())
	if err != nil {
		return "", fmt.Errorf("failed to persist session id: %w", err)
	}
	return id, nil
}
