package dashboard

import (
	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/database/repo/collections"
	"github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/database/repo/messages"
	"github.com/zimablue/zima-blue/database/repo/tags"
	"github.com/zimablue/zima-blue/database/repo/todos"
)

// 最近上传展示数量
const recentUploadsLimit = 10

// Summary 管理面板首屏聚合数据
type Summary struct {
	Images         int64            `json:"images"`
	Collections    int64            `json:"collections"`
	Tags           int64            `json:"tags"`
	UnreadMessages int64            `json:"unread_messages"`
	Todos          map[string]int64 `json:"todos"`
	RecentUploads  []*models.Image  `json:"recent_uploads"`
}

// Service 管理面板服务
type Service struct {
	imagesRepo      *images.Repository
	collectionsRepo *collections.Repository
	tagsRepo        *tags.Repository
	messagesRepo    *messages.Repository
	todosRepo       *todos.Repository
}

// NewService 创建管理面板服务
func NewService(
	imagesRepo *images.Repository,
	collectionsRepo *collections.Repository,
	tagsRepo *tags.Repository,
	messagesRepo *messages.Repository,
	todosRepo *todos.Repository,
) *Service {
	return &Service{
		imagesRepo:      imagesRepo,
		collectionsRepo: collectionsRepo,
		tagsRepo:        tagsRepo,
		messagesRepo:    messagesRepo,
		todosRepo:       todosRepo,
	}
}

// Summarize 聚合各实体的统计信息
func (s *Service) Summarize() (*Summary, error) {
	imageCount, err := s.imagesRepo.Count()
	if err != nil {
		return nil, err
	}
	collectionCount, err := s.collectionsRepo.Count()
	if err != nil {
		return nil, err
	}
	tagCount, err := s.tagsRepo.Count()
	if err != nil {
		return nil, err
	}
	unread, err := s.messagesRepo.CountUnread()
	if err != nil {
		return nil, err
	}
	todoCounts, err := s.todosRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	recent, err := s.imagesRepo.Recent(recentUploadsLimit)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Images:         imageCount,
		Collections:    collectionCount,
		Tags:           tagCount,
		UnreadMessages: unread,
		Todos:          todoCounts,
		RecentUploads:  recent,
	}, nil
}
