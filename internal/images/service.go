package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zimablue/zima-blue/database/models"
	imagerepo "github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/internal/grid"
	"github.com/zimablue/zima-blue/internal/variants"
	"github.com/zimablue/zima-blue/storage"
	"github.com/zimablue/zima-blue/utils"
	"github.com/zimablue/zima-blue/utils/generator"
	"github.com/zimablue/zima-blue/utils/validator"
)

// 唯一性重试上限，最后一次尝试改用更宽的后缀空间
const maxUniqueAttempts = 8

// ErrUnsupportedMimeType 上传类型不在允许列表中
var ErrUnsupportedMimeType = errors.New("unsupported mime type")

// Service 图片编排服务
// 衔接 multipart 输入、变体生成器、数据库与网格缓存
type Service struct {
	repo      *imagerepo.Repository
	generator *variants.Generator
	storage   storage.Provider
	grid      *grid.Store
	pathGen   *generator.PathGenerator
}

// NewService 创建图片编排服务
func NewService(repo *imagerepo.Repository, gen *variants.Generator, store storage.Provider, gridStore *grid.Store) *Service {
	return &Service{
		repo:      repo,
		generator: gen,
		storage:   store,
		grid:      gridStore,
		pathGen:   generator.NewPathGenerator(),
	}
}

// UploadInput 创建路径的输入
type UploadInput struct {
	Data     []byte
	FileName string
	MimeType string
	X, Y     int
	W, H     int
	UserID   uint
}

// Upload 创建路径：生成唯一前缀与 slug，产出整组变体并落库
// 变体全部写入成功之后才插入数据库行，行永远不会引用缺失的 blob
func (s *Service) Upload(ctx context.Context, input UploadInput) (*models.Image, error) {
	if !validator.IsAllowedMimeType(input.MimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMimeType, input.MimeType)
	}
	if len(input.Data) == 0 {
		return nil, errors.New("empty file")
	}

	prefix, err := s.uniquePrefix(input.FileName)
	if err != nil {
		return nil, err
	}
	slug, err := s.uniqueSlug(input.FileName)
	if err != nil {
		return nil, err
	}

	// 先占位：变体生成期间网格镜像里已有这张图，失败时整条移除
	placeholderIndex := s.grid.InsertPlaceholder(grid.LayoutRecord{
		Pathname: grid.LocalPreviewPrefix + input.FileName,
		X:        input.X,
		Y:        input.Y,
		W:        input.W,
		H:        input.H,
	})

	variantList, err := s.generator.Generate(ctx, input.Data, input.MimeType, prefix)
	if err != nil {
		s.grid.RemovePlaceholder(placeholderIndex)
		return nil, fmt.Errorf("failed to generate variants: %w", err)
	}

	image := &models.Image{
		Name:     utils.TrimExtension(input.FileName),
		Slug:     slug,
		Pathname: prefix,
		X:        input.X,
		Y:        input.Y,
		W:        input.W,
		H:        input.H,
		UserID:   input.UserID,
	}
	if err := image.SetVariants(variantList); err != nil {
		s.grid.RemovePlaceholder(placeholderIndex)
		s.deleteVariantBlobs(ctx, variantList)
		return nil, fmt.Errorf("failed to serialize variants: %w", err)
	}

	if err := s.repo.Create(image); err != nil {
		// 晚期失败：尽力回收已写入的 blob，避免留下孤儿
		s.grid.RemovePlaceholder(placeholderIndex)
		s.deleteVariantBlobs(ctx, variantList)
		return nil, fmt.Errorf("failed to save image metadata: %w", err)
	}

	// 占位原位换成真实记录
	s.grid.CommitPlaceholder(placeholderIndex, grid.RecordFromImage(image))

	return image, nil
}

// Replace 替换路径：id、slug 与网格占位保持不变，仅像素内容与变体路径改变
func (s *Service) Replace(ctx context.Context, id uint, data []byte, mimeType string) (*models.Image, error) {
	if !validator.IsAllowedMimeType(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMimeType, mimeType)
	}

	image, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	// 旧变体尽力删除，失败只记日志，替换本身更重要
	if oldVariants, err := image.VariantList(); err == nil {
		s.deleteVariantBlobs(ctx, oldVariants)
	} else {
		utils.LogIfDevf("[Images] Failed to parse old variants for image %d: %v", id, err)
	}

	prefix := image.Pathname
	if prefix == "" {
		prefix, err = s.uniquePrefix(image.Name)
		if err != nil {
			return nil, err
		}
	}

	// 网格镜像先切到预览路径，替换失败时精确恢复原路径
	priorPathname, tracked := s.grid.BeginReplace(id, grid.LocalPreviewPrefix+"replacing")

	variantList, err := s.generator.Generate(ctx, data, mimeType, prefix)
	if err != nil {
		if tracked {
			s.grid.RollbackReplace(id, priorPathname)
		}
		return nil, fmt.Errorf("failed to generate variants: %w", err)
	}

	image.Pathname = prefix
	if err := image.SetVariants(variantList); err != nil {
		if tracked {
			s.grid.RollbackReplace(id, priorPathname)
		}
		return nil, fmt.Errorf("failed to serialize variants: %w", err)
	}
	if err := s.repo.Update(image); err != nil {
		if tracked {
			s.grid.RollbackReplace(id, priorPathname)
		}
		return nil, fmt.Errorf("failed to update image metadata: %w", err)
	}

	if tracked {
		s.grid.CommitReplace(id, grid.RecordFromImage(image))
	}

	// 同步缓存文档中的条目；失败只记日志，下一次全量拉取会自愈
	if err := s.grid.UpdateCachedEntry(ctx, id, func(r *grid.LayoutRecord) {
		r.Pathname = image.Pathname
		r.Variants = variantList
		r.UpdatedAt = image.UpdatedAt
	}); err != nil {
		utils.LogIfDevf("[Images] Failed to refresh grid cache after replace of %d: %v", id, err)
	}

	return image, nil
}

// Regenerate 维护路径：从可用源重跑缩放阶梯，原地覆盖已有路径
// 优先使用 original，缺失时回退 lg
func (s *Service) Regenerate(ctx context.Context, id uint) (*models.Image, error) {
	image, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	existing, err := image.VariantList()
	if err != nil {
		return nil, fmt.Errorf("failed to parse variants: %w", err)
	}

	source, err := s.findSourceVariant(ctx, existing)
	if err != nil {
		return nil, err
	}

	data, err := s.readBlob(ctx, source.Pathname)
	if err != nil {
		return nil, fmt.Errorf("failed to read source variant: %w", err)
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	ok, mimeType := validator.IsImageBytes(data[:sniffLen])
	if !ok {
		return nil, fmt.Errorf("source variant %s is not a supported image", source.Pathname)
	}

	variantList, err := s.generator.Regenerate(ctx, data, mimeType, image.Pathname, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate variants: %w", err)
	}

	if err := image.SetVariants(variantList); err != nil {
		return nil, fmt.Errorf("failed to serialize variants: %w", err)
	}
	if err := s.repo.Update(image); err != nil {
		return nil, fmt.Errorf("failed to update image metadata: %w", err)
	}

	return image, nil
}

// findSourceVariant 定位可用的重生成源
func (s *Service) findSourceVariant(ctx context.Context, variantList []models.Variant) (*models.Variant, error) {
	for _, size := range []string{models.VariantOriginal, models.VariantLG} {
		for i := range variantList {
			if variantList[i].Size != size {
				continue
			}
			exists, err := s.storage.Exists(ctx, variantList[i].Pathname)
			if err == nil && exists {
				return &variantList[i], nil
			}
		}
	}
	return nil, errors.New("no usable source variant found")
}

// uniquePrefix 生成未被占用的存储前缀，有界重试
func (s *Service) uniquePrefix(baseName string) (string, error) {
	for attempt := 0; attempt < maxUniqueAttempts; attempt++ {
		wide := attempt == maxUniqueAttempts-1
		candidate := s.pathGen.CandidatePrefix(baseName, wide)

		exists, err := s.repo.PathnameExists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check pathname uniqueness: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.New("failed to generate a unique pathname")
}

// uniqueSlug 生成未被占用的 slug：首选纯 slug，冲突时加随机后缀
func (s *Service) uniqueSlug(baseName string) (string, error) {
	base := utils.Slugify(utils.TrimExtension(baseName))

	for attempt := 0; attempt < maxUniqueAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			length := generator.ShortSuffixLength
			if attempt == maxUniqueAttempts-1 {
				length = generator.WideSuffixLength
			}
			candidate = fmt.Sprintf("%s-%s", base, utils.RandomSuffix(length))
		}

		exists, err := s.repo.SlugExists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug uniqueness: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.New("failed to generate a unique slug")
}

// deleteVariantBlobs 尽力删除一组变体 blob，失败只记日志
func (s *Service) deleteVariantBlobs(ctx context.Context, variantList []models.Variant) {
	for _, v := range variantList {
		if err := s.storage.DeleteWithContext(ctx, v.Pathname); err != nil {
			utils.LogIfDevf("[Images] Failed to delete blob %s: %v", utils.SanitizeLogMessage(v.Pathname), err)
		}
	}
}

func (s *Service) readBlob(ctx context.Context, pathname string) ([]byte, error) {
	reader, err := s.storage.GetWithContext(ctx, pathname)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
