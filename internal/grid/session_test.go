package grid

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	tracker := NewSessionTracker()
	session := tracker.Begin([]string{"a.png", "b.png"})

	require.NotEmpty(t, session.ID)
	assert.Equal(t, SessionStateUploading, session.Status)
	require.Len(t, session.Files, 2)
	assert.Equal(t, FileStatePending, session.Files[0].State)

	require.NoError(t, tracker.SetProgress(session.ID, 0, 50))
	got, ok := tracker.Get(session.ID)
	require.True(t, ok)
	assert.Equal(t, FileStateUploading, got.Files[0].State)
	assert.Equal(t, 50, got.Files[0].Progress)

	require.NoError(t, tracker.Complete(session.ID, 0, &LayoutRecord{ID: 1}))
	got, _ = tracker.Get(session.ID)
	assert.Equal(t, SessionStateUploading, got.Status)

	require.NoError(t, tracker.Complete(session.ID, 1, &LayoutRecord{ID: 2}))
	got, _ = tracker.Get(session.ID)
	assert.Equal(t, SessionStateCompleted, got.Status)
}

// TestSessionGetReturnsDetachedCopy Get 之后的写入不影响已取出的快照
func TestSessionGetReturnsDetachedCopy(t *testing.T) {
	tracker := NewSessionTracker()
	session := tracker.Begin([]string{"a.png"})

	require.NoError(t, tracker.SetProgress(session.ID, 0, 10))
	before, ok := tracker.Get(session.ID)
	require.True(t, ok)

	require.NoError(t, tracker.Complete(session.ID, 0, &LayoutRecord{ID: 7}))

	assert.Equal(t, FileStateUploading, before.Files[0].State)
	assert.Equal(t, 10, before.Files[0].Progress)
	assert.Nil(t, before.Files[0].Result)
	assert.Equal(t, SessionStateUploading, before.Status)

	// 反向同理：改写快照不影响注册表里的会话
	before.Files[0].Progress = 99
	after, _ := tracker.Get(session.ID)
	assert.Equal(t, 100, after.Files[0].Progress)
	require.NotNil(t, after.Files[0].Result)
	assert.Equal(t, uint(7), after.Files[0].Result.ID)
}

// TestSessionConcurrentStatusReads 上传写入与状态轮询并发执行
func TestSessionConcurrentStatusReads(t *testing.T) {
	tracker := NewSessionTracker()
	session := tracker.Begin([]string{"a.png", "b.png", "c.png"})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := 0; p <= 100; p += 5 {
				assert.NoError(t, tracker.SetProgress(session.ID, i, p))
			}
			assert.NoError(t, tracker.Complete(session.ID, i, &LayoutRecord{ID: uint(i + 1)}))
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, ok := tracker.Get(session.ID)
				if !assert.True(t, ok) {
					return
				}
				_, err := json.Marshal(got)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, _ := tracker.Get(session.ID)
	assert.Equal(t, SessionStateCompleted, got.Status)
}

func TestSessionAnyFailureMeansError(t *testing.T) {
	tracker := NewSessionTracker()
	session := tracker.Begin([]string{"a.png", "b.png"})

	require.NoError(t, tracker.Complete(session.ID, 0, &LayoutRecord{ID: 1}))
	require.NoError(t, tracker.Fail(session.ID, 1, "decode failed"))

	got, _ := tracker.Get(session.ID)
	assert.Equal(t, SessionStateError, got.Status)
	assert.Equal(t, "decode failed", got.Files[1].Error)
}

func TestSessionProgressClamped(t *testing.T) {
	tracker := NewSessionTracker()
	session := tracker.Begin([]string{"a.png"})

	require.NoError(t, tracker.SetProgress(session.ID, 0, 150))
	got, _ := tracker.Get(session.ID)
	assert.Equal(t, 100, got.Files[0].Progress)

	require.NoError(t, tracker.SetProgress(session.ID, 0, -5))
	got, _ = tracker.Get(session.ID)
	assert.Equal(t, 0, got.Files[0].Progress)
}

func TestSessionErrors(t *testing.T) {
	tracker := NewSessionTracker()
	session := tracker.Begin([]string{"a.png"})

	assert.Error(t, tracker.SetProgress("missing", 0, 10))
	assert.Error(t, tracker.SetProgress(session.ID, 5, 10))
}

func TestSessionPrune(t *testing.T) {
	tracker := NewSessionTracker()

	finished := tracker.Begin([]string{"a.png"})
	require.NoError(t, tracker.Complete(finished.ID, 0, &LayoutRecord{ID: 1}))

	active := tracker.Begin([]string{"b.png"})

	// maxAge 为负，所有早于现在的已结束会话都会被清理
	tracker.Prune(-time.Second)

	_, ok := tracker.Get(finished.ID)
	assert.False(t, ok)
	_, ok = tracker.Get(active.ID)
	assert.True(t, ok)
}
