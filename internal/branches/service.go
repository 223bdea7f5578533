package branches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/angelmondragon/branchpos-backend/pkg/redis"
	"github.com/google/uuid"
)

type repository interface {
	FindBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	ListUnits(ctx context.Context, storeID uuid.UUID) ([]models.Unit, error)
}

// Service resolves branch configuration and unit catalogs, read-through
// cached in Redis.
type Service interface {
	Branch(ctx context.Context, id uuid.UUID) (*Branch, error)
	Catalog(ctx context.Context, storeID uuid.UUID) (*units.Catalog, error)
}

type ServiceParams struct {
	Repo   repository
	Cache  redis.Cache
	TTL    time.Duration
	Logger *logger.Logger
}

type service struct {
	repo  repository
	cache redis.Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("branch repository required")
	}
	return &service{
		repo:  params.Repo,
		cache: params.Cache,
		ttl:   params.TTL,
		logg:  params.Logger,
	}, nil
}

func (s *service) Branch(ctx context.Context, id uuid.UUID) (*Branch, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}
	if raw, ok := s.cached(ctx, s.branchKey(id)); ok {
		b, err := decodeBranch(raw)
		if err == nil {
			return b, nil
		}
		s.evict(ctx, s.branchKey(id), err)
	}

	m, err := s.repo.FindBranch(ctx, id)
	if err != nil {
		return nil, err
	}
	b := branchFromModel(m)
	if raw, err := encodeBranch(b); err == nil {
		s.store(ctx, s.branchKey(id), raw)
	}
	return b, nil
}

// Catalog never substitutes defaults: a cache problem falls back to the
// database, a database problem is returned.
func (s *service) Catalog(ctx context.Context, storeID uuid.UUID) (*units.Catalog, error) {
	if raw, ok := s.cached(ctx, s.catalogKey(storeID)); ok {
		c, err := decodeCatalog(raw)
		if err == nil {
			return c, nil
		}
		s.evict(ctx, s.catalogKey(storeID), err)
	}

	rows, err := s.repo.ListUnits(ctx, storeID)
	if err != nil {
		return nil, err
	}
	list := make([]units.Unit, 0, len(rows))
	for _, row := range rows {
		list = append(list, unitFromModel(row))
	}
	catalog, err := units.NewCatalog(list)
	if err != nil {
		return nil, err
	}
	if raw, err := encodeCatalog(catalog.Units()); err == nil {
		s.store(ctx, s.catalogKey(storeID), raw)
	}
	return catalog, nil
}

func (s *service) branchKey(id uuid.UUID) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.BranchKey(id.String())
}

func (s *service) catalogKey(id uuid.UUID) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.CatalogKey(id.String())
}

func (s *service) cached(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.GetBytes(ctx, key)
	if err != nil {
		if !redis.IsMiss(err) {
			s.warn(ctx, key, "branch cache read failed", err)
		}
		return nil, false
	}
	return raw, true
}

func (s *service) store(ctx context.Context, key string, raw []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.warn(ctx, key, "branch cache write failed", err)
	}
}

func (s *service) evict(ctx context.Context, key string, cause error) {
	s.warn(ctx, key, "branch cache payload unreadable", cause)
	if err := s.cache.Del(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
		s.warn(ctx, key, "branch cache evict failed", err)
	}
}

func (s *service) warn(ctx context.Context, key, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()})
	s.logg.Warn(ctx, msg)
}
