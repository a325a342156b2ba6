package validator

import (
	"io"
	"net/http"
)

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// IsAllowedMimeType 检查声明的 MIME 类型是否在允许列表中
func IsAllowedMimeType(mimeType string) bool {
	return allowedImageMimeTypes[mimeType]
}

// IsImageBytes 根据文件头内容检测是否为允许的图片类型
func IsImageBytes(header []byte) (bool, string) {
	mimeType := http.DetectContentType(header)
	if allowedImageMimeTypes[mimeType] {
		return true, mimeType
	}
	return false, mimeType
}

// IsImage Verify if the file content is an allowed image type.
func IsImage(file io.ReadSeeker) (bool, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return false, err
	}

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return false, err
	}

	ok, _ := IsImageBytes(buffer[:n])
	return ok, nil
}

// ExtensionForMimeType 返回 MIME 类型对应的文件扩展名（不含点）
func ExtensionForMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	default:
		return ""
	}
}
