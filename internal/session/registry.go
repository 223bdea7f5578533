package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/google/uuid"
)

const sweepJob = "session_sweep"

const OutcomeExpired = "expired"

type outcomeRecorder interface {
	IncOutcome(kind, outcome string)
}

type jobRecorder interface {
	ObserveRun(job string, took time.Duration, affected int, err error)
}

// RegistryOptions wires the in-memory session store.
type RegistryOptions struct {
	IdleTTL  time.Duration
	Outcomes outcomeRecorder
	Jobs     jobRecorder
	Logger   *logger.Logger
	Now      func() time.Time
}

// Registry owns live sessions. Each session has its own lock so unrelated
// carts never contend.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*slot
	idleTTL  time.Duration
	outcomes outcomeRecorder
	jobs     jobRecorder
	logg     *logger.Logger
	now      func() time.Time
}

type slot struct {
	mu      sync.Mutex
	sess    *Session
	touched time.Time
}

func NewRegistry(opts RegistryOptions) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		sessions: map[uuid.UUID]*slot{},
		idleTTL:  opts.IdleTTL,
		outcomes: opts.Outcomes,
		jobs:     opts.Jobs,
		logg:     opts.Logger,
		now:      now,
	}
}

// Add registers a new session.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("session %s already exists", s.ID()))
	}
	r.sessions[s.ID()] = &slot{sess: s, touched: r.now()}
	return nil
}

// Do runs fn with exclusive access to the session.
func (r *Registry) Do(id uuid.UUID, fn func(*Session) error) error {
	sl, err := r.slot(id)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.touched = r.now()
	return fn(sl.sess)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep abandons sessions idle past the TTL and forgets terminal sessions
// once they have aged out. It returns how many sessions were touched.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTTL <= 0 {
		return 0
	}
	start := r.now()
	cutoff := start.Add(-r.idleTTL)

	r.mu.Lock()
	candidates := make(map[uuid.UUID]*slot, len(r.sessions))
	for id, sl := range r.sessions {
		candidates[id] = sl
	}
	r.mu.Unlock()

	affected := 0
	for id, sl := range candidates {
		sl.mu.Lock()
		idle := sl.touched.Before(cutoff)
		status := sl.sess.Status()
		kind := sl.sess.Config().Kind
		if idle && !status.IsTerminal() {
			if err := sl.sess.Abandon(); err == nil {
				r.recordOutcome(kind, OutcomeExpired)
				status = enums.SessionStatusAbandoned
			}
		}
		sl.mu.Unlock()

		if idle && status.IsTerminal() {
			r.mu.Lock()
			delete(r.sessions, id)
			r.mu.Unlock()
			affected++
		}
	}

	if r.jobs != nil {
		r.jobs.ObserveRun(sweepJob, r.now().Sub(start), affected, nil)
	}
	if affected > 0 && r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{"job": sweepJob, "swept": affected})
		r.logg.Info(logCtx, "idle sessions swept")
	}
	return affected
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry) slot(id uuid.UUID) (*slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, ok := r.sessions[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("session %s not found", id))
	}
	return sl, nil
}

func (r *Registry) recordOutcome(kind enums.SessionKind, outcome string) {
	if r.outcomes != nil {
		r.outcomes.IncOutcome(kind.String(), outcome)
	}
}
