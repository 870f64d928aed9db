package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/assembler"
	"github.com/shouni/go-comic-kit/pkg/backend"
	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/reference"
	"github.com/shouni/go-comic-kit/pkg/style"
)

const testScript = `TITLE: The Spark

PANEL 1:
SCENE: A young man named Oga stands by the river.
DIALOGUE: Oga: I found something!
NARRATION: Long ago.

PANEL 2:
SCENE: The elder examines the glowing stone.
DIALOGUE: Elder: Careful, child!
`

// memStorage は remoteio の読み書きをメモリ上で模倣します。
type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("ファイルがありません: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// WriteToGCS は remoteio.OutputWriter を満たすためのメソッドです。
func (s *memStorage) WriteToGCS(ctx context.Context, bucketName, objectPath string, r io.Reader, contentType string) error {
	return s.Write(ctx, "gs://"+bucketName+"/"+objectPath, r, contentType)
}

// WriteToS3 は remoteio.OutputWriter を満たすためのメソッドです。
func (s *memStorage) WriteToS3(ctx context.Context, bucketName, objectPath string, r io.Reader, contentType string) error {
	return s.Write(ctx, "s3://"+bucketName+"/"+objectPath, r, contentType)
}

// WriteToLocal は remoteio.OutputWriter を満たすためのメソッドです。
func (s *memStorage) WriteToLocal(ctx context.Context, path string, r io.Reader) error {
	return s.Write(ctx, path, r, "")
}

// List は remoteio.InputReader を満たすためのメソッドです。
func (s *memStorage) List(_ context.Context, path string, callback func(filePath string) error) error {
	s.mu.Lock()
	var matched []string
	for p := range s.files {
		if strings.HasPrefix(p, path) {
			matched = append(matched, p)
		}
	}
	s.mu.Unlock()
	for _, p := range matched {
		if err := callback(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStorage) Write(_ context.Context, path string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return nil
}

func (s *memStorage) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for p := range s.files {
		out = append(out, p)
	}
	return out
}

// scriptedBackend はテキストと画像の生成をテストから制御します。
// imageMIME を "image/jpeg" にすると JPEG 形式の応答を模倣します。
type scriptedBackend struct {
	scriptText string
	failPanels map[int]error
	imageMIME  string

	mu         sync.Mutex
	imageCalls int
	partCounts []int
}

func (b *scriptedBackend) GenerateText(_ context.Context, _, _ string) (string, error) {
	return b.scriptText, nil
}

func (b *scriptedBackend) GenerateImage(_ context.Context, _ string, parts []backend.Part) (*backend.Image, error) {
	b.mu.Lock()
	b.imageCalls++
	call := b.imageCalls
	b.partCounts = append(b.partCounts, len(parts))
	b.mu.Unlock()

	if err, ok := b.failPanels[call]; ok {
		return nil, err
	}

	var buf bytes.Buffer
	if b.imageMIME == "image/jpeg" {
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
			return nil, err
		}
		return &backend.Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
	}
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		return nil, err
	}
	return &backend.Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

func newTestPipeline(t *testing.T, b backend.Client, progress ProgressFunc) (*Pipeline, *memStorage) {
	t.Helper()
	storage := newMemStorage()

	p, err := New(
		Config{
			ScriptModel: "script-model",
			ImageModel:  "image-model",
			OutputDir:   "output",
		},
		Deps{
			Backend:    b,
			Characters: character.NewManager(nil),
			References: reference.NewLoader(storage, "output"),
			Styles:     style.NoReference{},
			Assembler:  assembler.New(storage, storage, "output"),
			Writer:     storage,
			Progress:   progress,
		},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, storage
}

func TestPipeline_GenerateComic(t *testing.T) {
	var messages []string
	b := &scriptedBackend{scriptText: testScript}
	p, storage := newTestPipeline(t, b, func(msg string) {
		messages = append(messages, msg)
	})

	comic, err := p.GenerateComic(context.Background(), "discovery of fire", "amar_chitra_katha")
	if err != nil {
		t.Fatalf("GenerateComic() error = %v", err)
	}

	t.Run("完成コミックのパスが規約どおり", func(t *testing.T) {
		if !strings.HasSuffix(comic.OutputPath, "The_Spark_complete_comic.png") {
			t.Errorf("OutputPath = %q", comic.OutputPath)
		}
	})

	t.Run("パネル画像とコミックページが書き出される", func(t *testing.T) {
		var panelFiles, comicFiles int
		for _, path := range storage.paths() {
			if strings.Contains(path, "_panel_") {
				panelFiles++
			}
			if strings.HasSuffix(path, "_complete_comic.png") {
				comicFiles++
			}
		}
		if panelFiles != 2 {
			t.Errorf("パネル画像の数 = %d, want 2", panelFiles)
		}
		if comicFiles != 1 {
			t.Errorf("コミックページの数 = %d, want 1", comicFiles)
		}
	})

	t.Run("2枚目のパネルは1枚目を参照する", func(t *testing.T) {
		panel2 := comic.Script.Panels[1]
		if len(panel2.ReferencePanels) != 1 || panel2.ReferencePanels[0] != 1 {
			t.Errorf("ReferencePanels = %v, want [1]", panel2.ReferencePanels)
		}
		// プロンプト + 参照画像1枚
		if got := b.partCounts[1]; got != 2 {
			t.Errorf("2枚目のリクエストのパート数 = %d, want 2", got)
		}
	})

	t.Run("プロンプトがパネルに記録される", func(t *testing.T) {
		for _, panel := range comic.Script.Panels {
			if panel.ImagePrompt == "" {
				t.Errorf("パネル %d の ImagePrompt が空です", panel.PanelNumber)
			}
		}
	})

	t.Run("キャラクターが抽出されている", func(t *testing.T) {
		if comic.Script.FindCharacter("Oga") == nil {
			t.Error("Oga が抽出されていません")
		}
		if comic.Script.FindCharacter("Elder") == nil {
			t.Error("Elder が抽出されていません")
		}
	})

	t.Run("進捗が通知される", func(t *testing.T) {
		if len(messages) == 0 {
			t.Fatal("進捗通知がありません")
		}
		joined := strings.Join(messages, "\n")
		for _, want := range []string{"Parsed 2 panels", "Generating image for panel 1", "Comic assembled"} {
			if !strings.Contains(joined, want) {
				t.Errorf("進捗に %q がありません:\n%s", want, joined)
			}
		}
	})
}

func TestPipeline_GenerateComic_PanelFailure(t *testing.T) {
	b := &scriptedBackend{
		scriptText: testScript,
		failPanels: map[int]error{2: backend.ErrNoImage},
	}
	p, storage := newTestPipeline(t, b, nil)

	_, err := p.GenerateComic(context.Background(), "discovery of fire", "")
	if err == nil {
		t.Fatal("エラーを期待しましたが nil でした")
	}

	t.Run("失敗したパネルがエラーに含まれる", func(t *testing.T) {
		if !strings.Contains(err.Error(), "パネル 2") {
			t.Errorf("エラーに失敗パネルがありません: %v", err)
		}
	})

	t.Run("コミックページは書き出されない", func(t *testing.T) {
		for _, path := range storage.paths() {
			if strings.HasSuffix(path, "_complete_comic.png") {
				t.Errorf("失敗ラン中にコミックページが書き出されています: %s", path)
			}
		}
	})

	t.Run("残りのパネルは生成が継続される", func(t *testing.T) {
		if b.imageCalls != 2 {
			t.Errorf("画像生成の呼び出し回数 = %d, want 2", b.imageCalls)
		}
	})
}

// recordingStyleSource は要求されたプロファイルを記録し、URLが設定されて
// いれば固定の見本画像を返す ReferenceSource です。
type recordingStyleSource struct {
	gotURL string
	data   []byte
}

func (s *recordingStyleSource) ReferenceImage(_ context.Context, profile style.Profile) ([]byte, string, error) {
	s.gotURL = profile.ReferenceURL
	if profile.ReferenceURL == "" {
		return nil, "", nil
	}
	return s.data, "image/png", nil
}

func TestPipeline_StyleReferenceURL(t *testing.T) {
	storage := newMemStorage()
	source := &recordingStyleSource{data: []byte("style-sample")}
	b := &scriptedBackend{scriptText: testScript}

	p, err := New(
		Config{
			ScriptModel:       "script-model",
			ImageModel:        "image-model",
			OutputDir:         "output",
			StyleReferenceURL: "https://example.com/style.png",
		},
		Deps{
			Backend:    b,
			Characters: character.NewManager(nil),
			References: reference.NewLoader(storage, "output"),
			Styles:     source,
			Assembler:  assembler.New(storage, storage, "output"),
			Writer:     storage,
		},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := p.GenerateComic(context.Background(), "discovery of fire", ""); err != nil {
		t.Fatalf("GenerateComic() error = %v", err)
	}

	t.Run("設定のURLがプロファイルの既定を上書きする", func(t *testing.T) {
		if source.gotURL != "https://example.com/style.png" {
			t.Errorf("取得URLが上書きされていません: %q", source.gotURL)
		}
	})

	t.Run("取得した見本画像が全パネルの生成リクエストに添付される", func(t *testing.T) {
		// パネル1: プロンプト + 見本画像
		if got := b.partCounts[0]; got != 2 {
			t.Errorf("1枚目のリクエストのパート数 = %d, want 2", got)
		}
		// パネル2: プロンプト + 見本画像 + 参照画像1枚
		if got := b.partCounts[1]; got != 3 {
			t.Errorf("2枚目のリクエストのパート数 = %d, want 3", got)
		}
	})
}

func TestPipeline_NonPNGBackendResponse(t *testing.T) {
	b := &scriptedBackend{scriptText: testScript, imageMIME: "image/jpeg"}
	p, storage := newTestPipeline(t, b, nil)

	if _, err := p.GenerateComic(context.Background(), "discovery of fire", ""); err != nil {
		t.Fatalf("GenerateComic() error = %v", err)
	}

	t.Run("JPEG応答でも保存されるパネルは常にPNGである", func(t *testing.T) {
		var checked int
		for _, path := range storage.paths() {
			if !strings.Contains(path, "_panel_") {
				continue
			}
			data := storage.files[path]
			if _, err := png.Decode(bytes.NewReader(data)); err != nil {
				t.Errorf("%s がPNGとしてデコードできません: %v", path, err)
			}
			checked++
		}
		if checked != 2 {
			t.Errorf("検査したパネル画像の数 = %d, want 2", checked)
		}
	})
}

func TestPipeline_GenerateScript_NoPanels(t *testing.T) {
	b := &scriptedBackend{scriptText: "The model refused to cooperate."}
	p, _ := newTestPipeline(t, b, nil)

	if _, err := p.GenerateScript(context.Background(), "event", ""); err == nil {
		t.Fatal("パネル0件の台本はエラーになるべきです")
	}
}
