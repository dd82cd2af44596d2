package schema

import (
	"context"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	listFn   func(ctx context.Context) ([]string, error)
	sampleFn func(ctx context.Context, collection string, limit int64) ([]map[string]any, error)
	countFn  func(ctx context.Context, collection string) (int64, error)
	valuesFn func(ctx context.Context, collection, field string, limit int64) ([]string, error)
}

func (m *mockStore) ListCollectionNames(ctx context.Context) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) SampleDocuments(ctx context.Context, collection string, limit int64) ([]map[string]any, error) {
	if m.sampleFn != nil {
		return m.sampleFn(ctx, collection, limit)
	}
	return nil, nil
}

func (m *mockStore) CountDocuments(ctx context.Context, collection string) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, collection)
	}
	return 0, nil
}

func (m *mockStore) SampleFieldValues(ctx context.Context, collection, field string, limit int64) ([]string, error) {
	if m.valuesFn != nil {
		return m.valuesFn(ctx, collection, field, limit)
	}
	return nil, nil
}
