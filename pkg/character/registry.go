package character

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// registryMIMEType はレジストリファイルの書き込み時に指定する MIME タイプです。
const registryMIMEType = "application/json; charset=utf-8"

// Registry はキャラクター情報をJSONファイルとして永続化する Store 実装です。
// ローカルパスと gs:// パスの両方を remoteio 経由で扱えます。
type Registry struct {
	reader remoteio.InputReader
	writer remoteio.OutputWriter
	path   string
}

var _ Store = (*Registry)(nil)

// NewRegistry は入出力と保存先パスを指定して Registry を生成します。
func NewRegistry(reader remoteio.InputReader, writer remoteio.OutputWriter, path string) *Registry {
	return &Registry{
		reader: reader,
		writer: writer,
		path:   path,
	}
}

// Load は保存先のJSONを読み込み、小文字正規化した名前をキーとする
// マップを返します。ファイル欠落や壊れたJSONはエラーとして返しますが、
// 呼び出し側（Manager）はこれを非致命として扱います。
func (r *Registry) Load(ctx context.Context) (map[string]*domain.Character, error) {
	rc, err := r.reader.Open(ctx, r.path)
	if err != nil {
		return nil, fmt.Errorf("レジストリファイル '%s' を開けませんでした: %w", r.path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("レジストリファイル '%s' の読み込みに失敗しました: %w", r.path, err)
	}

	var stored map[string]*domain.Character
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("レジストリファイル '%s' のJSON解析に失敗しました: %w", r.path, err)
	}

	// 手編集されたファイルでもキーの正規化を保証する
	characters := make(map[string]*domain.Character, len(stored))
	for _, ch := range stored {
		if ch == nil || ch.Name == "" {
			continue
		}
		characters[ch.Key()] = ch
	}
	return characters, nil
}

// Save はキャッシュ全体をインデント付きJSONとして書き出します。
func (r *Registry) Save(ctx context.Context, characters map[string]*domain.Character) error {
	data, err := json.MarshalIndent(characters, "", "  ")
	if err != nil {
		return fmt.Errorf("レジストリのJSON変換に失敗しました: %w", err)
	}

	if err := r.writer.Write(ctx, r.path, bytes.NewReader(data), registryMIMEType); err != nil {
		return fmt.Errorf("レジストリファイル '%s' の書き込みに失敗しました: %w", r.path, err)
	}
	return nil
}
