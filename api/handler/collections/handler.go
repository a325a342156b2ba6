package collections

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/api/middleware"
	"github.com/zimablue/zima-blue/database/models"
	collectionrepo "github.com/zimablue/zima-blue/database/repo/collections"
	imagerepo "github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/internal/grid"
	"github.com/zimablue/zima-blue/utils"
	"github.com/zimablue/zima-blue/utils/generator"
)

// slug 冲突时的重试上限
const maxSlugAttempts = 8

// Handler 合集接口处理器
type Handler struct {
	repo       *collectionrepo.Repository
	imagesRepo *imagerepo.Repository
}

// NewHandler 创建合集处理器
func NewHandler(repo *collectionrepo.Repository, imagesRepo *imagerepo.Repository) *Handler {
	return &Handler{repo: repo, imagesRepo: imagesRepo}
}

// ListCollections 列出合集，未认证请求只看到公开合集
func (h *Handler) ListCollections(c *gin.Context) {
	publicOnly := middleware.CurrentUserID(c) == 0

	list, err := h.repo.List(publicOnly)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, list)
}

type collectionRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	IsPublic     bool   `json:"is_public"`
	CoverImageID *uint  `json:"cover_image_id"`
}

// CreateCollection 创建合集
func (h *Handler) CreateCollection(c *gin.Context) {
	var req collectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	slug, err := h.uniqueSlug(req.Name)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	collection := &models.Collection{
		Name:         req.Name,
		Slug:         slug,
		Description:  req.Description,
		IsPublic:     req.IsPublic,
		CoverImageID: req.CoverImageID,
		UserID:       c.GetUint(middleware.ContextUserIDKey),
	}
	if err := h.repo.Create(collection); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, collection)
}

// GetCollection 合集详情，包含按位置排序的图片列表
func (h *Handler) GetCollection(c *gin.Context) {
	collection, ok := h.lookup(c)
	if !ok {
		return
	}

	imageIDs, err := h.repo.ImageIDs(collection.ID)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	images, err := h.imagesRepo.GetByIDs(imageIDs)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	// 保持 position 顺序
	byID := make(map[uint]*models.Image, len(images))
	for _, image := range images {
		byID[image.ID] = image
	}
	records := make([]grid.LayoutRecord, 0, len(imageIDs))
	for _, id := range imageIDs {
		if image, ok := byID[id]; ok {
			records = append(records, grid.RecordFromImage(image))
		}
	}

	common.RespondSuccess(c, gin.H{
		"collection": collection,
		"images":     records,
	})
}

// UpdateCollection 更新合集属性
func (h *Handler) UpdateCollection(c *gin.Context) {
	collection, ok := h.lookup(c)
	if !ok {
		return
	}

	var req collectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	collection.Name = req.Name
	collection.Description = req.Description
	collection.IsPublic = req.IsPublic
	collection.CoverImageID = req.CoverImageID

	if err := h.repo.Update(collection); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, collection)
}

// DeleteCollection 删除合集，图片本身不受影响
func (h *Handler) DeleteCollection(c *gin.Context) {
	collection, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(collection); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Collection deleted", nil)
}

type collectionImagesRequest struct {
	ImageIDs []uint `json:"image_ids" binding:"required"`
}

// AddImages 向合集追加图片，位置接在现有末尾
func (h *Handler) AddImages(c *gin.Context) {
	collection, ok := h.lookup(c)
	if !ok {
		return
	}

	var req collectionImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ImageIDs) == 0 {
		common.RespondError(c, http.StatusBadRequest, "image_ids is required")
		return
	}

	existing, err := h.imagesRepo.ExistingIDs(req.ImageIDs)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	valid := make([]uint, 0, len(req.ImageIDs))
	for _, id := range req.ImageIDs {
		if existing[id] {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		common.RespondError(c, http.StatusBadRequest, "No valid image ids")
		return
	}

	if err := h.repo.AddImages(collection.ID, valid); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Images added", gin.H{"added": len(valid)})
}

// RemoveImage 从合集移除一张图片并压实位置序列
func (h *Handler) RemoveImage(c *gin.Context) {
	collection, ok := h.lookup(c)
	if !ok {
		return
	}

	imageID, err := strconv.ParseUint(c.Param("imageId"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image id")
		return
	}

	if err := h.repo.RemoveImage(collection.ID, uint(imageID)); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Image removed", nil)
}

// Reorder 重排合集内图片，位置按传入顺序全量重写
func (h *Handler) Reorder(c *gin.Context) {
	collection, ok := h.lookup(c)
	if !ok {
		return
	}

	var req collectionImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ImageIDs) == 0 {
		common.RespondError(c, http.StatusBadRequest, "image_ids is required")
		return
	}

	if err := h.repo.Reorder(collection.ID, req.ImageIDs); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Collection reordered", nil)
}

var counterColumns = map[string]string{
	"view":     "stats_views",
	"download": "stats_downloads",
	"like":     "stats_likes",
}

// IncrementCounter 递增合集的浏览/下载/点赞计数
func (h *Handler) IncrementCounter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid collection id")
		return
	}

	column, ok := counterColumns[c.Param("counter")]
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Unknown counter, expected view, download or like")
		return
	}

	if err := h.repo.IncrementCounter(uint(id), column); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Collection not found")
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "accepted", nil)
}

func (h *Handler) lookup(c *gin.Context) (*models.Collection, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid collection id")
		return nil, false
	}

	collection, err := h.repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Collection not found")
			return nil, false
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return collection, true
}

func (h *Handler) uniqueSlug(name string) (string, error) {
	base := utils.Slugify(name)

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%s", base, utils.RandomSuffix(generator.ShortSuffixLength))
		}

		exists, err := h.repo.SlugExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.New("failed to generate a unique slug")
}
