package variants

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zimablue/zima-blue/database/models"
)

// memStorage 测试用内存存储
type memStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// failOn 指定路径写入时返回错误，用于模拟中途失败
	failOn string
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (m *memStorage) SaveWithContext(ctx context.Context, pathname string, file io.Reader) error {
	if m.failOn != "" && pathname == m.failOn {
		return errors.New("storage write failed")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[pathname] = data
	return nil
}

func (m *memStorage) GetWithContext(ctx context.Context, pathname string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[pathname]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) DeleteWithContext(ctx context.Context, pathname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, pathname)
	return nil
}

func (m *memStorage) Exists(ctx context.Context, pathname string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[pathname]
	return ok, nil
}

func (m *memStorage) ListPrefixes(ctx context.Context) ([]string, error) {
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

func (m *memStorage) Health(ctx context.Context) error { return nil }
func (m *memStorage) Name() string                     { return "mem" }

func pngData(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestGenerateLadder(t *testing.T) {
	store := newMemStorage()
	gen := NewGenerator(store)
	data := pngData(t, 2400, 1200)

	variants, err := gen.Generate(context.Background(), data, "image/png", "red-ab12c")
	require.NoError(t, err)
	require.Len(t, variants, len(models.VariantLadder)+1)

	// original 在首位，保留源尺寸与原始字节
	assert.Equal(t, models.VariantOriginal, variants[0].Size)
	assert.Equal(t, 2400, variants[0].Width)
	assert.Equal(t, 1200, variants[0].Height)
	assert.Equal(t, "red-ab12c/original.png", variants[0].Pathname)
	assert.Equal(t, data, store.blobs["red-ab12c/original.png"])

	// 后续各档按宽度升序，路径确定
	for i, step := range models.VariantLadder {
		v := variants[i+1]
		assert.Equal(t, step.Name, v.Size)
		assert.Equal(t, step.Width, v.Width)
		assert.Equal(t, "red-ab12c/"+step.Name+".png", v.Pathname)
		assert.Contains(t, store.blobs, v.Pathname)
	}
}

func TestGenerateNoUpscale(t *testing.T) {
	store := newMemStorage()
	gen := NewGenerator(store)
	data := pngData(t, 500, 250)

	variants, err := gen.Generate(context.Background(), data, "image/png", "tiny-ab12c")
	require.NoError(t, err)

	// 原宽 500：sm(640) 以上各档都封顶到 500
	for _, v := range variants {
		assert.LessOrEqual(t, v.Width, 500, v.Size)
	}
}

func TestGenerateRejectsUnsupportedMime(t *testing.T) {
	gen := NewGenerator(newMemStorage())

	_, err := gen.Generate(context.Background(), pngData(t, 10, 10), "image/webp", "x-ab12c")
	assert.Error(t, err)
}

// hugePNGHeader 构造一个头部声明超大尺寸的 PNG，只含合法的 IHDR 块
func hugePNGHeader(t *testing.T, width, height uint32) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8  // bit depth
	ihdr[9] = 6  // RGBA
	ihdr[10] = 0 // compression
	ihdr[11] = 0 // filter
	ihdr[12] = 0 // interlace

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], 13)
	buf.Write(length[:])
	buf.WriteString("IHDR")
	buf.Write(ihdr)

	crc := crc32.NewIEEE()
	crc.Write([]byte("IHDR"))
	crc.Write(ihdr)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	buf.Write(sum[:])

	return buf.Bytes()
}

func TestGenerateRejectsOversizedDimensions(t *testing.T) {
	store := newMemStorage()
	gen := NewGenerator(store)

	_, err := gen.Generate(context.Background(), hugePNGHeader(t, 20000, 20000), "image/png", "bomb-ab12c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode limit")
	assert.Empty(t, store.blobs)
}

func TestGenerateDecodeFailureWritesNothing(t *testing.T) {
	store := newMemStorage()
	gen := NewGenerator(store)

	_, err := gen.Generate(context.Background(), []byte("not an image"), "image/png", "bad-ab12c")
	assert.Error(t, err)
	assert.Empty(t, store.blobs)
}

func TestGenerateCleanupOnMidLadderFailure(t *testing.T) {
	store := newMemStorage()
	store.failOn = "mid-ab12c/sm.png"
	gen := NewGenerator(store)

	_, err := gen.Generate(context.Background(), pngData(t, 2400, 1200), "image/png", "mid-ab12c")
	require.Error(t, err)

	// 失败前写入的 original/xxs/xs 都应被清理
	assert.Empty(t, store.blobs)
}

func TestRegeneratePreservesPathnames(t *testing.T) {
	store := newMemStorage()
	gen := NewGenerator(store)
	ctx := context.Background()

	original, err := gen.Generate(ctx, pngData(t, 2400, 1200), "image/png", "keep-ab12c")
	require.NoError(t, err)

	regenerated, err := gen.Regenerate(ctx, pngData(t, 1600, 800), "image/png", "keep-ab12c", original)
	require.NoError(t, err)
	require.Len(t, regenerated, len(original))

	// 已发布的路径原地覆盖
	for i := range original {
		assert.Equal(t, original[i].Pathname, regenerated[i].Pathname)
	}
	assert.Equal(t, 1600, regenerated[0].Width)
}
