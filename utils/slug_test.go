package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSlugify 测试显示名称到 slug 的转换
func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Red Square", "red-square"},
		{"already slug", "red-square", "red-square"},
		{"mixed punctuation", "Hello, World!", "hello-world"},
		{"consecutive separators", "a  __  b", "a-b"},
		{"leading and trailing junk", "--my photo--", "my-photo"},
		{"digits kept", "IMG 2024 01", "img-2024-01"},
		{"non ascii dropped", "日本語 photo", "photo"},
		{"empty falls back", "", "image"},
		{"only junk falls back", "!!!", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

// TestTrimExtension 测试扩展名剥离
func TestTrimExtension(t *testing.T) {
	assert.Equal(t, "photo", TrimExtension("photo.png"))
	assert.Equal(t, "archive.tar", TrimExtension("archive.tar.gz"))
	assert.Equal(t, "noext", TrimExtension("noext"))
	// 隐藏文件不把前导点当扩展名分隔符
	assert.Equal(t, ".hidden", TrimExtension(".hidden"))
}

// TestRandomSuffix 测试后缀长度与字符集
func TestRandomSuffix(t *testing.T) {
	for _, length := range []int{5, 10} {
		s := RandomSuffix(length)
		assert.Len(t, s, length)
		for _, r := range s {
			assert.Contains(t, suffixAlphabet, string(r))
		}
	}
}
