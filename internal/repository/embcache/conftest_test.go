package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/db"
)

type mockEncoder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEncoder) EncodeText(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	return m.vector, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func newTestCachedEncoder(t *testing.T, inner *mockEncoder) (*CachedEncoder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, "carlens:", nil, zap.NewNop())
	return ce, ms
}
