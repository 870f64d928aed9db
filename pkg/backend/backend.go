// Package backend は生成AIバックエンドへの抽象化層です。
// パイプラインはこのパッケージのインターフェースにのみ依存し、
// 実際のクライアント実装は構築時に注入されます。
package backend

import (
	"context"
	"errors"
)

// ErrNoImage は、画像生成の応答に画像パートが1つも含まれていなかった
// ことを示します。呼び出し側はこれをパネル単位の失敗として扱います。
var ErrNoImage = errors.New("応答に画像が含まれていません")

// Image は生成された画像1枚分のバイナリです。
type Image struct {
	Data     []byte
	MIMEType string
}

// Part はマルチモーダルリクエストの1要素です。Text か InlineData の
// どちらか一方だけを設定します。
type Part struct {
	Text       string
	InlineData []byte
	MIMEType   string
}

// TextGenerator はテキスト（台本）生成の契約です。
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// ImageGenerator は画像（パネル）生成の契約です。parts にはプロンプトの
// テキストパートと参照画像のインラインパートを混在させられます。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, model string, parts []Part) (*Image, error)
}

// Client はテキストと画像の両方を生成できるバックエンドです。
type Client interface {
	TextGenerator
	ImageGenerator
}
