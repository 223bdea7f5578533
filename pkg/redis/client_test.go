package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/branchpos-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetGetBytesRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	payload := []byte{0x82, 0xa2, 'i', 'd'}
	if err := client.Set(ctx, client.CatalogKey("store-1"), payload, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.GetBytes(ctx, client.CatalogKey("store-1"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected payload to round trip, got %v", got)
	}
	if mock.ttls[client.CatalogKey("store-1")] != time.Minute {
		t.Fatalf("expected ttl to be forwarded")
	}

	if err := client.Del(ctx, client.CatalogKey("store-1")); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.GetBytes(ctx, client.CatalogKey("store-1")); !IsMiss(err) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.IdempotencyKey("checkout", "abc")

	ok, err := client.SetNX(ctx, key, "pending", time.Hour)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "pending", time.Hour)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.GetBytes(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil raw client should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "bp:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.CatalogKey("store"); got != "bp:catalog:store" {
		t.Fatalf("unexpected catalog key %s", got)
	}
	if got := client.BranchKey("branch"); got != "bp:branch:branch" {
		t.Fatalf("unexpected branch key %s", got)
	}
	if got := client.IdempotencyKey("scope", ""); got != "bp:idempotency:scope" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@cache.internal:6380/2",
		PoolSize:    15,
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Fatalf("url not honoured: %+v", opts)
	}
	if opts.PoolSize != 15 || opts.DialTimeout != 3*time.Second {
		t.Fatalf("config fallbacks not applied: pool=%d dial=%s", opts.PoolSize, opts.DialTimeout)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 4 {
		t.Fatalf("address config not honoured: %+v", opts)
	}
}

func TestXAddAppendsToStream(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	id, err := client.XAdd(ctx, "branchpos.sales", 1000, map[string]any{"event_type": "sale.completed"})
	if err != nil {
		t.Fatalf("xadd failed: %v", err)
	}
	if id != "1-0" {
		t.Fatalf("unexpected entry id %q", id)
	}
	entries := mock.streams["branchpos.sales"]
	if len(entries) != 1 || entries[0].MaxLen != 1000 || !entries[0].Approx {
		t.Fatalf("expected trimmed append, got %+v", entries)
	}

	if _, err := client.XAdd(ctx, " ", 0, nil); err == nil {
		t.Fatalf("expected blank stream to be rejected")
	}
}

type mockCmdable struct {
	data    map[string]string
	ttls    map[string]time.Duration
	streams map[string][]*redis.XAddArgs
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:    make(map[string]string),
		ttls:    make(map[string]time.Duration),
		streams: make(map[string][]*redis.XAddArgs),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = encode(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = encode(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	m.streams[args.Stream] = append(m.streams[args.Stream], args)
	return redis.NewStringResult(fmt.Sprintf("%d-0", len(m.streams[args.Stream])), nil)
}

func encode(value any) string {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(value)
}
