package images

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/database/repo/tags"
	"github.com/zimablue/zima-blue/internal/grid"
	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/storage"
	"github.com/zimablue/zima-blue/utils/validator"
)

// Handler 图片接口处理器
type Handler struct {
	service  *imagesvc.Service
	repo     *images.Repository
	tagsRepo *tags.Repository
	grid     *grid.Store
	storage  storage.Provider
	sessions *grid.SessionTracker
}

// NewHandler 创建图片处理器
func NewHandler(
	service *imagesvc.Service,
	repo *images.Repository,
	tagsRepo *tags.Repository,
	gridStore *grid.Store,
	storageProvider storage.Provider,
	sessions *grid.SessionTracker,
) *Handler {
	return &Handler{
		service:  service,
		repo:     repo,
		tagsRepo: tagsRepo,
		grid:     gridStore,
		storage:  storageProvider,
		sessions: sessions,
	}
}

// readUploadFile 读取 multipart 文件并做内容嗅探
// 声明的 Content-Type 不可信，以文件头检测结果为准
func readUploadFile(fileHeader *multipart.FileHeader) ([]byte, string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("uploaded file is empty")
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	ok, mimeType := validator.IsImageBytes(data[:sniffLen])
	if !ok {
		return nil, "", fmt.Errorf("unsupported file type: %s", mimeType)
	}
	return data, mimeType, nil
}
