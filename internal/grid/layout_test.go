package grid

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zimablue/zima-blue/cache"
)

// mapCache 测试用内存缓存
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *mapCache) Close() error { return nil }
func (m *mapCache) Name() string { return "map" }

func record(id uint, pathname string) LayoutRecord {
	return LayoutRecord{ID: id, Pathname: pathname}
}

func allExist(ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func TestApplySnapshotFiltersPendingDeletes(t *testing.T) {
	store := NewStore(nil, nil)
	store.ApplySnapshot([]LayoutRecord{record(1, "a/original.png"), record(2, "b/original.png")})

	_, _, found := store.MarkPendingDelete(2)
	assert.True(t, found)

	// 慢速刷新带回已标记删除的 id，不应复活
	store.ApplySnapshot([]LayoutRecord{record(1, "a/original.png"), record(2, "b/original.png"), record(3, "c/original.png")})

	snapshot := store.Snapshot()
	ids := make([]uint, 0, len(snapshot))
	for _, r := range snapshot {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint{1, 3}, ids)
	assert.True(t, store.IsPendingDelete(2))
}

func TestDeleteRollbackRestoresExactPosition(t *testing.T) {
	store := NewStore(nil, nil)
	store.ApplySnapshot([]LayoutRecord{record(1, "a"), record(2, "b"), record(3, "c")})

	removed, index, found := store.MarkPendingDelete(2)
	require.True(t, found)
	assert.Equal(t, 1, index)
	assert.Len(t, store.Snapshot(), 2)

	store.FailDelete(2, removed, index)

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, uint(2), snapshot[1].ID)
	assert.False(t, store.IsPendingDelete(2))
}

func TestCompleteDeleteClearsPending(t *testing.T) {
	store := NewStore(nil, nil)
	store.ApplySnapshot([]LayoutRecord{record(1, "a")})

	store.MarkPendingDelete(1)
	store.CompleteDelete(1)

	assert.False(t, store.IsPendingDelete(1))
	assert.Empty(t, store.Snapshot())
}

func TestPlaceholderLifecycle(t *testing.T) {
	store := NewStore(nil, nil)

	index := store.InsertPlaceholder(LayoutRecord{Pathname: "data:image/png;base64,xxx"})
	require.Len(t, store.Snapshot(), 1)
	assert.True(t, store.Snapshot()[0].IsLocalPreview())

	committed := store.CommitPlaceholder(index, record(7, "real/original.png"))
	assert.True(t, committed)
	assert.Equal(t, uint(7), store.Snapshot()[0].ID)

	index2 := store.InsertPlaceholder(LayoutRecord{Pathname: "data:image/png;base64,yyy"})
	store.RemovePlaceholder(index2)
	assert.Len(t, store.Snapshot(), 1)
}

func TestReplaceRollbackRestoresPriorPathname(t *testing.T) {
	store := NewStore(nil, nil)
	store.ApplySnapshot([]LayoutRecord{record(1, "old/original.png")})

	prior, found := store.BeginReplace(1, "data:image/png;base64,preview")
	require.True(t, found)
	assert.Equal(t, "old/original.png", prior)
	assert.True(t, store.Snapshot()[0].IsLocalPreview())

	store.RollbackReplace(1, prior)
	assert.Equal(t, "old/original.png", store.Snapshot()[0].Pathname)
}

func TestPersistRecordsFiltersPreviewsAndMissingIDs(t *testing.T) {
	mc := newMapCache()
	exists := func(ids []uint) (map[uint]bool, error) {
		// 只有 id 1 真实存在
		return map[uint]bool{1: true}, nil
	}
	store := NewStore(mc, exists)
	ctx := context.Background()

	err := store.PersistRecords(ctx, []LayoutRecord{
		record(1, "a/original.png"),
		record(2, "gone/original.png"),
		{ID: 0, Pathname: "data:image/png;base64,preview"},
	})
	require.NoError(t, err)

	var persisted []LayoutRecord
	require.NoError(t, mc.Get(ctx, cache.GridLayoutKey(), &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, uint(1), persisted[0].ID)
}

func TestPersistRecordsWritesEmptyLayout(t *testing.T) {
	mc := newMapCache()
	store := NewStore(mc, allExist)
	ctx := context.Background()

	require.NoError(t, store.PersistRecords(ctx, []LayoutRecord{record(1, "a")}))
	require.NoError(t, store.PersistRecords(ctx, nil))

	var persisted []LayoutRecord
	require.NoError(t, mc.Get(ctx, cache.GridLayoutKey(), &persisted))
	assert.Empty(t, persisted)
}

func TestAppendToCacheDeduplicates(t *testing.T) {
	mc := newMapCache()
	store := NewStore(mc, allExist)
	ctx := context.Background()

	require.NoError(t, store.AppendToCache(ctx, record(1, "a")))
	require.NoError(t, store.AppendToCache(ctx, record(1, "a")))
	require.NoError(t, store.AppendToCache(ctx, record(2, "b")))

	var persisted []LayoutRecord
	require.NoError(t, mc.Get(ctx, cache.GridLayoutKey(), &persisted))
	assert.Len(t, persisted, 2)
}

func TestRemoveFromCacheSingleRewrite(t *testing.T) {
	mc := newMapCache()
	store := NewStore(mc, allExist)
	ctx := context.Background()

	require.NoError(t, store.AppendToCache(ctx, record(1, "a")))
	require.NoError(t, store.AppendToCache(ctx, record(2, "b")))
	require.NoError(t, store.AppendToCache(ctx, record(3, "c")))

	require.NoError(t, store.RemoveFromCache(ctx, []uint{1, 3}))

	var persisted []LayoutRecord
	require.NoError(t, mc.Get(ctx, cache.GridLayoutKey(), &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, uint(2), persisted[0].ID)
}

func TestUpdateCachedEntry(t *testing.T) {
	mc := newMapCache()
	store := NewStore(mc, allExist)
	ctx := context.Background()

	require.NoError(t, store.AppendToCache(ctx, record(1, "old/original.png")))
	require.NoError(t, store.UpdateCachedEntry(ctx, 1, func(r *LayoutRecord) {
		r.Pathname = "new/original.png"
	}))

	var persisted []LayoutRecord
	require.NoError(t, mc.Get(ctx, cache.GridLayoutKey(), &persisted))
	assert.Equal(t, "new/original.png", persisted[0].Pathname)
}

func TestLoadFromCacheMissYieldsEmptyLayout(t *testing.T) {
	store := NewStore(newMapCache(), allExist)

	records, err := store.LoadFromCache(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSortByPlacement(t *testing.T) {
	records := []LayoutRecord{
		{ID: 3, X: 2, Y: 2},
		{ID: 1, X: 0, Y: 0},
		{ID: 2, X: 1, Y: 0},
		{ID: 4, X: 0, Y: 1},
	}
	SortByPlacement(records)

	ids := make([]uint, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	// 投影相同 (x+y=1) 时按 id 稳定排序
	assert.Equal(t, []uint{1, 2, 4, 3}, ids)
}
