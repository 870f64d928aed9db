// Package httpapi は、コミック生成をHTTP経由で提供するAPIサーバです。
// 生成は時間がかかるため、非同期タスクとして受け付けてポーリングで
// 状態を返す方式を基本とします。
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
)

// Generator はコミック生成の実行主体の契約です。*pipeline.Pipeline が
// これを満たします。
type Generator interface {
	GenerateComic(ctx context.Context, eventDescription, styleName string) (*domain.Comic, error)
}

// GeneratorFactory はタスクごとの進捗コールバックを受け取って
// Generator を構築します。進捗をタスク状態に反映させるため、
// 生成のたびに新しいインスタンスを作ります。
type GeneratorFactory func(progress pipeline.ProgressFunc) (Generator, error)

// Server はAPIサーバ本体です。
type Server struct {
	factory   GeneratorFactory
	tasks     *TaskStore
	outputDir string
}

// NewServer はAPIサーバを構築します。outputDir は /static で公開されます。
func NewServer(factory GeneratorFactory, outputDir string) *Server {
	return &Server{
		factory:   factory,
		tasks:     NewTaskStore(),
		outputDir: outputDir,
	}
}

// Router はルーティングを構成した gin エンジンを返します。
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/", s.health)
	r.Static("/static", s.outputDir)

	api := r.Group("/api")
	{
		api.POST("/generate-comic", s.generateComic)
		api.GET("/generate-comic-sync", s.generateComicSync)
		api.GET("/task-status/:task_id", s.taskStatus)
	}

	return r
}

// Run はサーバを起動します。
func (s *Server) Run(addr string) error {
	slog.Info("APIサーバを起動します", "addr", addr, "static", s.outputDir)
	return s.Router().Run(addr)
}

type comicRequest struct {
	Event string `json:"event" binding:"required"`
	Style string `json:"style"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Comic Generator API is running"})
}

// generateComic は生成タスクを受け付け、タスクIDを即座に返します。
func (s *Server) generateComic(c *gin.Context) {
	var req comicRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Event) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event description is required"})
		return
	}

	taskID := uuid.NewString()
	s.tasks.Create(taskID)

	// リクエストのライフサイクルから切り離して生成を進める
	go s.runTask(taskID, req.Event, req.Style)

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": taskID,
	})
}

// runTask はバックグラウンドで生成を実行し、タスク状態を更新し続けます。
func (s *Server) runTask(taskID, event, styleName string) {
	progress := func(message string) {
		s.tasks.Update(taskID, func(t *Task) {
			t.Progress = message
		})
	}

	generator, err := s.factory(progress)
	if err != nil {
		s.fail(taskID, err)
		return
	}

	s.tasks.Update(taskID, func(t *Task) {
		t.Status = TaskGenerating
		t.Progress = "Generating comic script and images..."
	})

	comic, err := generator.GenerateComic(context.Background(), event, styleName)
	if err != nil {
		s.fail(taskID, err)
		return
	}

	s.tasks.Update(taskID, func(t *Task) {
		t.Status = TaskCompleted
		t.Progress = "Comic generated successfully!"
		t.ComicPath = comic.OutputPath
		t.ComicURL = staticURL(comic.OutputPath)
	})
}

func (s *Server) fail(taskID string, err error) {
	slog.Error("コミック生成タスクが失敗しました", "task_id", taskID, "error", err)
	s.tasks.Update(taskID, func(t *Task) {
		t.Status = TaskFailed
		t.Error = err.Error()
	})
}

// taskStatus はタスクの現在状態を返します。
func (s *Server) taskStatus(c *gin.Context) {
	task, ok := s.tasks.Get(c.Param("task_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	switch task.Status {
	case TaskCompleted:
		c.JSON(http.StatusOK, gin.H{
			"status":    task.Status,
			"success":   true,
			"comic_url": task.ComicURL,
			"progress":  task.Progress,
		})
	case TaskFailed:
		c.JSON(http.StatusOK, gin.H{
			"status":  task.Status,
			"success": false,
			"error":   task.Error,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"status":   task.Status,
			"success":  false,
			"progress": task.Progress,
		})
	}
}

// generateComicSync は同期生成エンドポイントです（動作確認用）。
func (s *Server) generateComicSync(c *gin.Context) {
	event := strings.TrimSpace(c.Query("event"))
	if event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event description is required"})
		return
	}

	generator, err := s.factory(nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	comic, err := generator.GenerateComic(c.Request.Context(), event, c.Query("style"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"comic_path": comic.OutputPath,
		"comic_url":  staticURL(comic.OutputPath),
	})
}

// staticURL は出力パスを /static 配下の公開URLへ変換します。
func staticURL(outputPath string) string {
	return "/static/" + path.Base(outputPath)
}
