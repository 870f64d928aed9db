package httpapi

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// TaskStatus は非同期生成タスクの状態です。
type TaskStatus string

const (
	TaskStarted    TaskStatus = "started"
	TaskGenerating TaskStatus = "generating"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "error"
)

// タスクはコミック1冊分の生成が終わったあとも結果参照のために
// しばらく保持し、期限切れで自動的に消えます。
const (
	taskRetention       = 30 * time.Minute
	taskCleanupInterval = 1 * time.Hour
)

// Task は非同期生成タスク1件のスナップショットです。
type Task struct {
	ID        string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	Progress  string     `json:"progress,omitempty"`
	ComicPath string     `json:"comic_path,omitempty"`
	ComicURL  string     `json:"comic_url,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// TaskStore はタスク状態のTTL付きインメモリストアです。
// 更新は Update 経由のコピーオンライトで行い、読み手には常に
// スナップショットを返します。
type TaskStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewTaskStore はタスクストアを生成します。
func NewTaskStore() *TaskStore {
	return &TaskStore{
		cache: cache.New(taskRetention, taskCleanupInterval),
	}
}

// Create は新しいタスクを登録します。
func (s *TaskStore) Create(id string) Task {
	task := Task{
		ID:       id,
		Status:   TaskStarted,
		Progress: "Initializing comic generation...",
	}
	s.mu.Lock()
	s.cache.Set(id, task, cache.DefaultExpiration)
	s.mu.Unlock()
	return task
}

// Get はタスクのスナップショットを返します。
func (s *TaskStore) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(id)
	if !ok {
		return Task{}, false
	}
	return v.(Task), true
}

// Update はタスクを読み出して更新関数を適用し、書き戻します。
// 既に期限切れのタスクは黙って無視します。
func (s *TaskStore) Update(id string, fn func(*Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(id)
	if !ok {
		return
	}
	task := v.(Task)
	fn(&task)
	s.cache.Set(id, task, cache.DefaultExpiration)
}
