package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-comic-kit/internal/config"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する。
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキーなど）。
	Options    config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です。
	Reader     remoteio.InputReader    // Readerは、台本や参照画像の読み込みに使用する入力元です。
	Writer     remoteio.OutputWriter   // Writerは、生成された画像やレジストリの出力先です。
	HTTPClient httpkit.ClientInterface // HTTPClient は外部リソース取得に使う共通クライアント
}

// NewAppContext は環境設定から入出力を初期化して AppContext を生成するのだ。
// Reader/Writer はローカルパスと gs:// パスの両方を透過的に扱える。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	rioFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("リモートIOファクトリの初期化に失敗しました: %w", err)
	}

	reader, err := rioFactory.NewInputReader()
	if err != nil {
		return nil, fmt.Errorf("InputReaderの初期化に失敗しました: %w", err)
	}
	writer, err := rioFactory.NewOutputWriter()
	if err != nil {
		return nil, fmt.Errorf("OutputWriterの初期化に失敗しました: %w", err)
	}

	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}

	return &AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Reader:     reader,
		Writer:     writer,
		HTTPClient: httpkit.New(timeout),
	}, nil
}
