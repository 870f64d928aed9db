package style

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Doer はHTTPリクエストを実行する最小のインターフェースです。
// go-http-kit のクライアントと *http.Client の両方が満たします。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ReferenceSource は画風見本画像の供給元です。構築時に Fetcher か
// NoReference のどちらかを選びます。
type ReferenceSource interface {
	ReferenceImage(ctx context.Context, profile Profile) ([]byte, string, error)
}

// NoReference は画風見本画像を一切使わない ReferenceSource です。
// 外部取得を避けたいテストやオフライン実行で選びます。
type NoReference struct{}

func (NoReference) ReferenceImage(ctx context.Context, profile Profile) ([]byte, string, error) {
	return nil, "", nil
}

// Fetcher は画風見本画像をURLから取得し、メモリ内にキャッシュします。
// 同じ画風で複数パネルを生成するラン中に毎回取得し直さないためです。
type Fetcher struct {
	client Doer

	mu    sync.Mutex
	cache map[string]fetchedImage
}

type fetchedImage struct {
	data     []byte
	mimeType string
}

var (
	_ ReferenceSource = (*Fetcher)(nil)
	_ ReferenceSource = NoReference{}
)

// NewFetcher はHTTPクライアントを注入して Fetcher を生成します。
func NewFetcher(client Doer) *Fetcher {
	return &Fetcher{
		client: client,
		cache:  make(map[string]fetchedImage),
	}
}

// ReferenceImage はプロファイルの画風見本画像を取得します。
// ReferenceURL が未設定なら (nil, "", nil) を返します。
func (f *Fetcher) ReferenceImage(ctx context.Context, profile Profile) ([]byte, string, error) {
	if profile.ReferenceURL == "" {
		return nil, "", nil
	}

	f.mu.Lock()
	cached, ok := f.cache[profile.ReferenceURL]
	f.mu.Unlock()
	if ok {
		return cached.data, cached.mimeType, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profile.ReferenceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("画風見本画像のリクエスト生成に失敗しました: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("画風見本画像 '%s' の取得に失敗しました: %w", profile.ReferenceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("画風見本画像 '%s' の取得に失敗しました: status=%d", profile.ReferenceURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("画風見本画像 '%s' の読み込みに失敗しました: %w", profile.ReferenceURL, err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}

	f.mu.Lock()
	f.cache[profile.ReferenceURL] = fetchedImage{data: data, mimeType: mimeType}
	f.mu.Unlock()

	return data, mimeType, nil
}
