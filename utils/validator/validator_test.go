package validator

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

// TestIsAllowedMimeType 测试 MIME 白名单
func TestIsAllowedMimeType(t *testing.T) {
	for _, mime := range []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff"} {
		assert.True(t, IsAllowedMimeType(mime), mime)
	}
	assert.False(t, IsAllowedMimeType("image/webp"))
	assert.False(t, IsAllowedMimeType("text/html"))
	assert.False(t, IsAllowedMimeType(""))
}

// TestIsImageBytes 测试内容嗅探
func TestIsImageBytes(t *testing.T) {
	ok, mime := IsImageBytes(pngBytes(t))
	assert.True(t, ok)
	assert.Equal(t, "image/png", mime)

	ok, mime = IsImageBytes([]byte("<html><body>nope</body></html>"))
	assert.False(t, ok)
	assert.NotEqual(t, "image/png", mime)
}

// TestIsImage 测试 reader 嗅探后复位
func TestIsImage(t *testing.T) {
	data := pngBytes(t)
	reader := bytes.NewReader(data)

	ok, err := IsImage(reader)
	require.NoError(t, err)
	assert.True(t, ok)

	// 读取位置应复位到开头
	first := make([]byte, 4)
	_, err = reader.Read(first)
	require.NoError(t, err)
	assert.Equal(t, data[:4], first)
}

// TestExtensionForMimeType 测试扩展名映射
func TestExtensionForMimeType(t *testing.T) {
	assert.Equal(t, "jpg", ExtensionForMimeType("image/jpeg"))
	assert.Equal(t, "png", ExtensionForMimeType("image/png"))
	assert.Equal(t, "", ExtensionForMimeType("image/webp"))
}
