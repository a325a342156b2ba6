package variants

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/storage"
	"github.com/zimablue/zima-blue/utils"
	"github.com/zimablue/zima-blue/utils/generator"
	"github.com/zimablue/zima-blue/utils/validator"
)

// maxDecodePixels 解码像素上限，拒绝头部声明超大尺寸的解压炸弹
const maxDecodePixels = 100_000_000

// Generator 变体生成器
// 对一张原始图片解码一次，按固定阶梯派生缩放版本并写入存储
type Generator struct {
	storage storage.Provider
	pathGen *generator.PathGenerator
}

// NewGenerator 创建变体生成器
func NewGenerator(store storage.Provider) *Generator {
	return &Generator{
		storage: store,
		pathGen: generator.NewPathGenerator(),
	}
}

// formatForMimeType 按源 MIME 类型选择重编码格式
func formatForMimeType(mimeType string) (imaging.Format, error) {
	switch mimeType {
	case "image/jpeg":
		return imaging.JPEG, nil
	case "image/png":
		return imaging.PNG, nil
	case "image/gif":
		return imaging.GIF, nil
	case "image/bmp":
		return imaging.BMP, nil
	case "image/tiff":
		return imaging.TIFF, nil
	default:
		return 0, fmt.Errorf("unsupported mime type: %s", mimeType)
	}
}

// Generate 生成完整的变体阶梯并写入存储
// 返回的序列以 original 开头，之后按目标宽度升序
// 解码失败时不写入任何 blob；后续步骤失败时尽力清理已写入的路径
func (g *Generator) Generate(ctx context.Context, data []byte, mimeType, prefix string) ([]models.Variant, error) {
	return g.generate(ctx, data, mimeType, prefix, nil)
}

// Regenerate 重建变体阶梯，已有路径原地覆盖以保持已发布的 URL 不变
func (g *Generator) Regenerate(ctx context.Context, data []byte, mimeType, prefix string, existing []models.Variant) ([]models.Variant, error) {
	existingPaths := make(map[string]string, len(existing))
	for _, v := range existing {
		existingPaths[v.Size] = v.Pathname
	}
	return g.generate(ctx, data, mimeType, prefix, existingPaths)
}

func (g *Generator) generate(ctx context.Context, data []byte, mimeType, prefix string, existingPaths map[string]string) ([]models.Variant, error) {
	if !validator.IsAllowedMimeType(mimeType) {
		return nil, fmt.Errorf("unsupported mime type: %s", mimeType)
	}

	format, err := formatForMimeType(mimeType)
	if err != nil {
		return nil, err
	}
	ext := validator.ExtensionForMimeType(mimeType)

	// 先读头部尺寸，超限时整张图都不解码
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width*cfg.Height > maxDecodePixels {
		return nil, fmt.Errorf("image dimensions %dx%d exceed decode limit", cfg.Width, cfg.Height)
	}

	// 解码一次，所有缩放共用同一份位图
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	var written []string
	cleanup := func() {
		for _, pathname := range written {
			if err := g.storage.DeleteWithContext(ctx, pathname); err != nil {
				utils.LogIfDevf("[Variants] Failed to clean up blob %s: %v", pathname, err)
			}
		}
	}

	pathFor := func(size string) string {
		if pathname, ok := existingPaths[size]; ok {
			return pathname
		}
		return g.pathGen.VariantPath(prefix, size, ext)
	}

	// original 保留上传的原始字节，不重编码
	originalPath := pathFor(models.VariantOriginal)
	if err := g.storage.SaveWithContext(ctx, originalPath, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to store original: %w", err)
	}
	written = append(written, originalPath)

	result := make([]models.Variant, 0, len(models.VariantLadder)+1)
	result = append(result, models.Variant{
		Size:     models.VariantOriginal,
		Width:    origWidth,
		Height:   origHeight,
		Pathname: originalPath,
	})

	for _, step := range models.VariantLadder {
		// 不放大：目标宽度超过原图时按原宽输出
		targetWidth := step.Width
		if targetWidth > origWidth {
			targetWidth = origWidth
		}

		resized := imaging.Resize(img, targetWidth, 0, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to encode %s variant: %w", step.Name, err)
		}

		pathname := pathFor(step.Name)
		if err := g.storage.SaveWithContext(ctx, pathname, bytes.NewReader(buf.Bytes())); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to store %s variant: %w", step.Name, err)
		}
		written = append(written, pathname)

		rb := resized.Bounds()
		result = append(result, models.Variant{
			Size:     step.Name,
			Width:    rb.Dx(),
			Height:   rb.Dy(),
			Pathname: pathname,
		})
	}

	return result, nil
}
