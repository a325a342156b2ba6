package grid

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 单个文件的上传状态
const (
	FileStatePending   = "pending"
	FileStateUploading = "uploading"
	FileStateCompleted = "completed"
	FileStateError     = "error"
)

// 会话级状态
const (
	SessionStateUploading = "uploading"
	SessionStateCompleted = "completed"
	SessionStateError     = "error"
)

// FileProgress 单个文件的上传进度
type FileProgress struct {
	FileName string        `json:"file_name"`
	State    string        `json:"state"`
	Progress int           `json:"progress"` // 0-100
	Result   *LayoutRecord `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// UploadSession 聚合一批文件的上传进度
// 所有文件进入终态且无失败时会话为 completed，任一失败则为 error
type UploadSession struct {
	ID        string          `json:"id"`
	Files     []*FileProgress `json:"files"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *UploadSession) recompute() {
	completed, failed := 0, 0
	for _, f := range s.Files {
		switch f.State {
		case FileStateCompleted:
			completed++
		case FileStateError:
			failed++
		}
	}

	if completed+failed >= len(s.Files) {
		if failed > 0 {
			s.Status = SessionStateError
		} else {
			s.Status = SessionStateCompleted
		}
	} else {
		s.Status = SessionStateUploading
	}
}

// SessionTracker 进行中上传会话的注册表
type SessionTracker struct {
	mu       sync.Mutex
	sessions map[string]*UploadSession
}

// NewSessionTracker 创建会话注册表
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		sessions: make(map[string]*UploadSession),
	}
}

// Begin 创建一个新的上传会话
func (t *SessionTracker) Begin(fileNames []string) *UploadSession {
	session := &UploadSession{
		ID:        uuid.NewString(),
		Status:    SessionStateUploading,
		CreatedAt: time.Now(),
	}
	for _, name := range fileNames {
		session.Files = append(session.Files, &FileProgress{
			FileName: name,
			State:    FileStatePending,
		})
	}

	t.mu.Lock()
	t.sessions[session.ID] = session
	t.mu.Unlock()
	return session
}

// Get 查询会话，返回锁内构建的深拷贝
// 调用方可以在锁外安全地读取或序列化，不会和进行中的上传写入竞争
func (t *SessionTracker) Get(id string) (*UploadSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		return nil, false
	}
	return s.snapshot(), true
}

func (s *UploadSession) snapshot() *UploadSession {
	out := &UploadSession{
		ID:        s.ID,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		Files:     make([]*FileProgress, len(s.Files)),
	}
	for i, f := range s.Files {
		fc := *f
		if f.Result != nil {
			rc := *f.Result
			fc.Result = &rc
		}
		out.Files[i] = &fc
	}
	return out
}

// SetProgress 更新某个文件的上传进度
func (t *SessionTracker) SetProgress(sessionID string, fileIndex, progress int) error {
	return t.mutate(sessionID, fileIndex, func(f *FileProgress) {
		f.State = FileStateUploading
		if progress < 0 {
			progress = 0
		}
		if progress > 100 {
			progress = 100
		}
		f.Progress = progress
	})
}

// Complete 文件进入终态 completed，附带服务器返回的记录
func (t *SessionTracker) Complete(sessionID string, fileIndex int, result *LayoutRecord) error {
	return t.mutate(sessionID, fileIndex, func(f *FileProgress) {
		f.State = FileStateCompleted
		f.Progress = 100
		f.Result = result
	})
}

// Fail 文件进入终态 error，附带错误信息
func (t *SessionTracker) Fail(sessionID string, fileIndex int, message string) error {
	return t.mutate(sessionID, fileIndex, func(f *FileProgress) {
		f.State = FileStateError
		f.Error = message
	})
}

// Prune 清理早于 maxAge 的已结束会话
func (t *SessionTracker) Prune(maxAge time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, s := range t.sessions {
		if s.Status != SessionStateUploading && s.CreatedAt.Before(cutoff) {
			delete(t.sessions, id)
		}
	}
}

func (t *SessionTracker) mutate(sessionID string, fileIndex int, fn func(*FileProgress)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[sessionID]
	if !ok {
		return fmt.Errorf("upload session not found: %s", sessionID)
	}
	if fileIndex < 0 || fileIndex >= len(session.Files) {
		return fmt.Errorf("file index out of range: %d", fileIndex)
	}

	fn(session.Files[fileIndex])
	session.recompute()
	return nil
}
