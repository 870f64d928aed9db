// Package reference は、生成済みパネル画像を後続パネルの参照として
// 読み込み、プロンプトに埋め込む参照文脈の文言を組み立てます。
package reference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// panelImageMIMEType はパネル画像の保存形式です。保存側の命名規約と対です。
const panelImageMIMEType = "image/png"

// PanelImage は参照として添付する生成済みパネル画像1枚分のデータです。
type PanelImage struct {
	PanelNumber int
	Data        []byte
	MIMEType    string
}

// Loader はパネル番号から保存済み画像を逆引きして読み込みます。
type Loader struct {
	reader    remoteio.InputReader
	outputDir string
}

// NewLoader は読み込み元と出力ディレクトリを指定して Loader を生成します。
func NewLoader(reader remoteio.InputReader, outputDir string) *Loader {
	return &Loader{
		reader:    reader,
		outputDir: outputDir,
	}
}

// LoadPanelImages は参照パネル番号列に対応する画像を読み込みます。
// 欠けている画像（生成に失敗したパネルなど）は警告ログを残してスキップし、
// 読み込めたものだけを元の順序で返します。参照はあくまで品質向上の
// ヒントであり、欠落が後続パネルの生成を止めてはならないためです。
func (l *Loader) LoadPanelImages(ctx context.Context, title string, panelNumbers []int) []PanelImage {
	images := make([]PanelImage, 0, len(panelNumbers))
	for _, n := range panelNumbers {
		path, err := asset.PanelImagePath(l.outputDir, title, n)
		if err != nil {
			slog.Warn("参照パネルのパス解決に失敗しました。スキップします",
				"panel", n, "error", err)
			continue
		}

		data, err := l.readAll(ctx, path)
		if err != nil {
			slog.Warn("参照パネル画像を読み込めませんでした。スキップします",
				"panel", n, "path", path, "error", err)
			continue
		}

		images = append(images, PanelImage{
			PanelNumber: n,
			Data:        data,
			MIMEType:    panelImageMIMEType,
		})
	}
	return images
}

func (l *Loader) readAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := l.reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ContextPrompt は参照パネル番号列から、画像モデルへ渡す参照文脈の
// 説明文を組み立てます。添付画像がどのパネル由来かをモデルに伝える
// ための文言で、参照がなければ空文字列を返します。
func ContextPrompt(panelNumbers []int) string {
	switch len(panelNumbers) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(
			"Use the reference image from panel %d to maintain visual consistency for characters and style.",
			panelNumbers[0])
	}

	parts := make([]string, len(panelNumbers)-1)
	for i, n := range panelNumbers[:len(panelNumbers)-1] {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf(
		"Use the reference images from panels %s and %d to maintain visual consistency for characters and style.",
		strings.Join(parts, ", "), panelNumbers[len(panelNumbers)-1])
}

// ImagesForPanel はパネルに設定された参照パネル番号列の画像を読み込む
// 補助メソッドです。
func (l *Loader) ImagesForPanel(ctx context.Context, title string, panel *domain.Panel) []PanelImage {
	return l.LoadPanelImages(ctx, title, panel.ReferencePanels)
}
