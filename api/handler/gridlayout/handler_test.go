package gridlayout

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zimablue/zima-blue/cache"
	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/internal/grid"
)

// memCache 测试用内存缓存
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memCache) Close() error { return nil }
func (m *memCache) Name() string { return "mem" }

type testFixture struct {
	router *gin.Engine
	repo   *images.Repository
	cache  *memCache
	store  *grid.Store
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Image{}, &models.Tag{}, &models.CollectionImage{}))

	repo := images.NewRepository(db)
	mc := newMemCache()
	store := grid.NewStore(mc, repo.ExistingIDs)
	handler := NewHandler(store, repo)

	router := gin.New()
	router.GET("/api/grid", handler.GetGrid)
	router.POST("/api/grid/save", handler.SaveGrid)

	return &testFixture{router: router, repo: repo, cache: mc, store: store}
}

func (f *testFixture) seedImage(t *testing.T, slug string, x, y int) *models.Image {
	t.Helper()
	img := &models.Image{
		Name:     slug,
		Slug:     slug,
		Pathname: slug + "-ab12c",
		X:        x,
		Y:        y,
		W:        1,
		H:        1,
	}
	require.NoError(t, f.repo.Create(img))
	return img
}

// TestSaveGrid_InvalidBody 缺少 layout 字段时返回 400
func TestSaveGrid_InvalidBody(t *testing.T) {
	fixture := newTestFixture(t)

	for _, body := range []string{`{}`, `not json`, `{"layout": null}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/grid/save", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		fixture.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

// TestSaveGrid_PersistsPlacements 保存布局写回数据库行并重写缓存文档
func TestSaveGrid_PersistsPlacements(t *testing.T) {
	fixture := newTestFixture(t)
	img := fixture.seedImage(t, "moved", 0, 0)

	payload := map[string]interface{}{
		"layout": []map[string]interface{}{
			{"id": img.ID, "pathname": img.Pathname, "x": 3, "y": 1, "w": 2, "h": 2},
			// 本地预览条目与未知 id 不应进入缓存
			{"id": 0, "pathname": "data:image/png;base64,xxx", "x": 0, "y": 0, "w": 1, "h": 1},
			{"id": 9999, "pathname": "ghost-ab12c", "x": 5, "y": 5, "w": 1, "h": 1},
		},
	}
	body, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/grid/save", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	fixture.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Grid layout saved", resp["message"])

	got, err := fixture.repo.GetByID(img.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.X)
	assert.Equal(t, 1, got.Y)
	assert.Equal(t, 2, got.W)
	assert.Equal(t, 4, got.Sum)

	var persisted []grid.LayoutRecord
	require.NoError(t, fixture.cache.Get(context.Background(), cache.GridLayoutKey(), &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, img.ID, persisted[0].ID)
}

// TestGetGrid_RebuildsFromDatabase 缓存为空时从数据库重建并按占位排序
func TestGetGrid_RebuildsFromDatabase(t *testing.T) {
	fixture := newTestFixture(t)
	far := fixture.seedImage(t, "far", 4, 4)
	near := fixture.seedImage(t, "near", 0, 0)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/grid", nil)
	fixture.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// 响应体是裸的记录数组，没有包裹结构
	var records []grid.LayoutRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, near.ID, records[0].ID)
	assert.Equal(t, far.ID, records[1].ID)

	// 重建结果应回填缓存
	exists, err := fixture.cache.Exists(context.Background(), cache.GridLayoutKey())
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestGetGrid_EmptyLayout 空库返回空数组而不是 null
func TestGetGrid_EmptyLayout(t *testing.T) {
	fixture := newTestFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/grid", nil)
	fixture.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

// TestGetGrid_ServesCachedDocument 缓存命中时直接返回文档
func TestGetGrid_ServesCachedDocument(t *testing.T) {
	fixture := newTestFixture(t)
	img := fixture.seedImage(t, "cached", 0, 0)

	cached := []grid.LayoutRecord{{ID: img.ID, Pathname: img.Pathname, X: 7, Y: 7}}
	require.NoError(t, fixture.cache.Set(context.Background(), cache.GridLayoutKey(), cached, 0))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/grid", nil)
	fixture.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var records []grid.LayoutRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, 7, records[0].X)
}
