package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the subset of the redis client the manager needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// Manager tracks handled event IDs per processor using Redis SETNX with a TTL.
// Keys follow the `bp:idempotency:evt:processed:<processor>:<event_id>` pattern.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a guard that marks events as handled for the given TTL.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkProcessed returns true if the event was already handled and
// otherwise marks it with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, processor string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(processor, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete releases a mark so the event can be handled again.
func (m *Manager) Delete(ctx context.Context, processor string, eventID uuid.UUID) error {
	key, err := m.processedKey(processor, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) processedKey(processor string, eventID uuid.UUID) (string, error) {
	if processor == "" {
		return "", errors.New("processor name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:processed:%s", processor)
	return m.store.IdempotencyKey(scope, eventID.String()), nil
}
