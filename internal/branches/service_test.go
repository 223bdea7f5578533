package branches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/branchpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	branch     *models.Branch
	units      []models.Unit
	err        error
	branchHits int
	unitHits   int
}

func (s *stubRepo) FindBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	s.branchHits++
	if s.err != nil {
		return nil, s.err
	}
	return s.branch, nil
}

func (s *stubRepo) ListUnits(ctx context.Context, storeID uuid.UUID) ([]models.Unit, error) {
	s.unitHits++
	if s.err != nil {
		return nil, s.err
	}
	return s.units, nil
}

type memCache struct {
	data    map[string][]byte
	ttl     map[string]time.Duration
	readErr error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (m *memCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.([]byte)
	m.ttl[key] = ttl
	return nil
}

func (m *memCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memCache) CatalogKey(storeID string) string { return "catalog:" + storeID }
func (m *memCache) BranchKey(branchID string) string { return "branch:" + branchID }

func fixtureRepo() *stubRepo {
	storeID := uuid.New()
	return &stubRepo{
		branch: &models.Branch{
			ID:               uuid.New(),
			StoreID:          storeID,
			Name:             "Centro",
			PricingMode:      enums.PricingModeAutomatic,
			RetailEnabled:    true,
			WholesaleEnabled: true,
			StockMode:        enums.StockModeAutomatic,
		},
		units: []models.Unit{
			{ID: uuid.New(), StoreID: storeID, Name: "Piece", BaseQuantity: decimal.NewFromInt(1)},
			{ID: uuid.New(), StoreID: storeID, Name: "Case", BaseQuantity: decimal.NewFromInt(24)},
		},
	}
}

func TestCatalogReadThroughCache(t *testing.T) {
	repo := fixtureRepo()
	cache := newMemCache()
	svc, err := NewService(ServiceParams{Repo: repo, Cache: cache, TTL: 10 * time.Minute})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Catalog(ctx, repo.branch.StoreID)
	require.NoError(t, err)
	second, err := svc.Catalog(ctx, repo.branch.StoreID)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.unitHits, "second read should come from cache")
	assert.Equal(t, 10*time.Minute, cache.ttl["catalog:"+repo.branch.StoreID.String()])
	require.Equal(t, first.Len(), second.Len())
	for i, u := range first.Units() {
		assert.Equal(t, u.ID, second.Units()[i].ID)
		assert.True(t, u.BaseQuantity.Equal(second.Units()[i].BaseQuantity))
	}

	box, err := second.Resolve(repo.units[1].ID.String())
	require.NoError(t, err)
	assert.True(t, box.BaseQuantity.Equal(decimal.NewFromInt(24)))
}

func TestCatalogFallsBackToDatabaseOnCacheFailure(t *testing.T) {
	repo := fixtureRepo()
	cache := newMemCache()
	cache.readErr = errors.New("connection refused")
	svc, err := NewService(ServiceParams{Repo: repo, Cache: cache})
	require.NoError(t, err)

	catalog, err := svc.Catalog(context.Background(), repo.branch.StoreID)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
	assert.Equal(t, 1, repo.unitHits)
}

func TestCatalogEvictsCorruptPayload(t *testing.T) {
	repo := fixtureRepo()
	cache := newMemCache()
	key := "catalog:" + repo.branch.StoreID.String()
	cache.data[key] = []byte{0xc1}
	svc, err := NewService(ServiceParams{Repo: repo, Cache: cache})
	require.NoError(t, err)

	catalog, err := svc.Catalog(context.Background(), repo.branch.StoreID)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
	assert.NotEqual(t, []byte{0xc1}, cache.data[key], "corrupt payload should be replaced")
}

func TestCatalogRejectsInvalidStoredUnit(t *testing.T) {
	repo := fixtureRepo()
	repo.units[1].BaseQuantity = decimal.Zero
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	_, err = svc.Catalog(context.Background(), repo.branch.StoreID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidQuantity), "got %v", err)
}

func TestBranchServedFromCache(t *testing.T) {
	repo := fixtureRepo()
	cache := newMemCache()
	svc, err := NewService(ServiceParams{Repo: repo, Cache: cache})
	require.NoError(t, err)

	ctx := context.Background()
	b, err := svc.Branch(ctx, repo.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PricingModeAutomatic, b.PricingMode)
	assert.Equal(t, []enums.SellingChannel{enums.SellingChannelRetail, enums.SellingChannelWholesale}, b.EnabledChannels())

	_, err = svc.Branch(ctx, repo.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.branchHits)

	require.NoError(t, cache.Del(ctx, cache.BranchKey(repo.branch.ID.String())))
	_, err = svc.Branch(ctx, repo.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.branchHits)
}

func TestBranchRequiresID(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: fixtureRepo()})
	require.NoError(t, err)
	_, err = svc.Branch(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestDefaultChannel(t *testing.T) {
	b := Branch{PricingMode: enums.PricingModeAutomatic, WholesaleEnabled: true}
	assert.Equal(t, enums.SellingChannelWholesale, b.DefaultChannel())
	assert.False(t, b.ChannelEnabled(enums.SellingChannelRetail))

	b.PricingMode = enums.PricingModeManual
	assert.Equal(t, enums.SellingChannel(""), b.DefaultChannel())
}

func TestRepositoryAgainstSQLite(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	storeID := uuid.New()
	branch := &models.Branch{
		StoreID:       storeID,
		Name:          "Norte",
		PricingMode:   enums.PricingModeManual,
		RetailEnabled: true,
		StockMode:     enums.StockModeManual,
	}
	require.NoError(t, repo.CreateBranch(ctx, branch))
	require.NotEqual(t, uuid.Nil, branch.ID)

	for i, u := range []struct {
		name string
		bq   string
	}{{"Case", "24"}, {"Piece", "1"}, {"Half kilo", "0.5"}} {
		require.NoError(t, repo.CreateUnit(ctx, &models.Unit{
			StoreID:      storeID,
			Name:         u.name,
			BaseQuantity: decimal.RequireFromString(u.bq),
			Position:     i,
		}))
	}
	require.NoError(t, repo.CreateUnit(ctx, &models.Unit{StoreID: uuid.New(), Name: "Other store", BaseQuantity: decimal.NewFromInt(1)}))

	found, err := repo.FindBranch(ctx, branch.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PricingModeManual, found.PricingMode)
	assert.False(t, found.WholesaleEnabled)

	list, err := repo.ListUnits(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Case", list[0].Name)
	assert.True(t, list[2].BaseQuantity.Equal(decimal.RequireFromString("0.5")))

	_, err = repo.FindBranch(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
