package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
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
	imagerepo "github.com/zimablue/zima-blue/database/repo/images"
	tagrepo "github.com/zimablue/zima-blue/database/repo/tags"
	"github.com/zimablue/zima-blue/internal/grid"
	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/internal/variants"
)

// memStore 测试用内存存储
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) SaveWithContext(ctx context.Context, pathname string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[pathname] = data
	return nil
}

func (m *memStore) GetWithContext(ctx context.Context, pathname string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[pathname]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) DeleteWithContext(ctx context.Context, pathname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, pathname)
	return nil
}

func (m *memStore) Exists(ctx context.Context, pathname string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[pathname]
	return ok, nil
}

func (m *memStore) ListPrefixes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var prefixes []string
	for pathname := range m.blobs {
		if i := strings.IndexByte(pathname, '/'); i > 0 && !seen[pathname[:i]] {
			seen[pathname[:i]] = true
			prefixes = append(prefixes, pathname[:i])
		}
	}
	return prefixes, nil
}

func (m *memStore) Health(ctx context.Context) error { return nil }
func (m *memStore) Name() string                     { return "mem" }

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

type handlerFixture struct {
	router  *gin.Engine
	repo    *imagerepo.Repository
	service *imagesvc.Service
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库绑定单连接，避免每个连接各自一份空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Image{}, &models.Tag{}, &models.CollectionImage{}))

	repo := imagerepo.NewRepository(db)
	store := newMemStore()
	gridStore := grid.NewStore(newMemCache(), repo.ExistingIDs)
	service := imagesvc.NewService(repo, variants.NewGenerator(store), store, gridStore)

	handler := NewHandler(service, repo, tagrepo.NewRepository(db), gridStore, store, grid.NewSessionTracker())

	router := gin.New()
	router.POST("/api/images/id/:id/replace", handler.ReplaceImage)

	return &handlerFixture{router: router, repo: repo, service: service}
}

func pngData(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func multipartFile(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// TestReplaceImage_MissingImageReturns404 替换不存在的图片返回 404 而不是 500
func TestReplaceImage_MissingImageReturns404(t *testing.T) {
	fixture := newHandlerFixture(t)

	body, contentType := multipartFile(t, "file", "new.png", pngData(t, 100, 100))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/images/id/9999/replace", body)
	req.Header.Set("Content-Type", contentType)
	fixture.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Image not found")
}

// TestReplaceImage_KeepsIdentity 替换成功返回同一 id 的记录
func TestReplaceImage_KeepsIdentity(t *testing.T) {
	fixture := newHandlerFixture(t)

	img, err := fixture.service.Upload(context.Background(), imagesvc.UploadInput{
		Data:     pngData(t, 200, 200),
		FileName: "swap.png",
		MimeType: "image/png",
		W:        1,
		H:        1,
	})
	require.NoError(t, err)

	body, contentType := multipartFile(t, "file", "swap2.png", pngData(t, 300, 100))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/images/id/%d/replace", img.ID), body)
	req.Header.Set("Content-Type", contentType)
	fixture.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Results []grid.LayoutRecord `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, img.ID, resp.Results[0].ID)
}
