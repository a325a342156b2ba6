package utils

import (
	"strings"
	"unicode"
)

// Slugify 将任意显示名称转换为 URL 安全的 slug
// "Red Square.png" -> "red-square-png" 之前先去掉扩展名，由调用方决定
func Slugify(name string) string {
	var sb strings.Builder
	lastDash := true // 避免以 '-' 开头

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r):
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = "image"
	}
	return slug
}

// TrimExtension 去掉文件名扩展名
func TrimExtension(filename string) string {
	if idx := strings.LastIndexByte(filename, '.'); idx > 0 {
		return filename[:idx]
	}
	return filename
}
