package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/httpapi"
	"github.com/shouni/go-comic-kit/pkg/backend"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
)

// serveCmd は、コミック生成をHTTP API経由で提供するサーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "コミック生成のHTTP APIサーバーを起動するのだ。",
	Long: `イベント説明を受け取ってコミックを生成するHTTPサーバーを起動するのだ。
非同期の生成タスク、進捗の問い合わせ、生成結果の静的配信を提供するのだよ。`,
	RunE: serveCommand,
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := cfg.Validate(); err != nil {
		return err
	}

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	// AIクライアントはサーバー全体で1つを共有するのだ。
	// パイプラインはタスクごとの進捗通知を持つので、リクエスト単位で組み立てるのだ。
	aiClient, err := backend.NewGeminiBackend(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("Gemini クライアントの初期化に失敗したのだ: %w", err)
	}

	factory := func(progress pipeline.ProgressFunc) (httpapi.Generator, error) {
		p, err := builder.BuildPipelineWithBackend(appCtx, aiClient, progress)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	outputDir := cfg.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}

	srv := httpapi.NewServer(factory, outputDir)

	slog.Info("APIサーバーを起動するのだ！", "addr", opts.ListenAddr, "output_dir", outputDir)
	if err := srv.Run(opts.ListenAddr); err != nil {
		return fmt.Errorf("APIサーバーの実行に失敗したのだ: %w", err)
	}
	return nil
}
