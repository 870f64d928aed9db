package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-kit/pkg/assembler"
	"github.com/shouni/go-comic-kit/pkg/backend"
	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
	"github.com/shouni/go-comic-kit/pkg/reference"
	"github.com/shouni/go-comic-kit/pkg/style"
)

// BuildPipeline は生成フローの全コンポーネントを組み立てるのだ。
// progress には CLI やAPIサーバが進捗の受け口を渡す（nil 可）。
func BuildPipeline(ctx context.Context, appCtx *AppContext, progress pipeline.ProgressFunc) (*pipeline.Pipeline, error) {
	cfg := appCtx.Config

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	aiClient, err := backend.NewGeminiBackend(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}

	return BuildPipelineWithBackend(appCtx, aiClient, progress)
}

// BuildPipelineWithBackend はバックエンドを注入してパイプラインを構築する。
// テストやドライランで実APIに繋がないバックエンドへ差し替えるための口なのだ。
func BuildPipelineWithBackend(appCtx *AppContext, aiClient backend.Client, progress pipeline.ProgressFunc) (*pipeline.Pipeline, error) {
	cfg := appCtx.Config

	outputDir := cfg.OutputDir
	if appCtx.Options.OutputDir != "" {
		outputDir = appCtx.Options.OutputDir
	}

	scriptModel := cfg.ScriptModel
	if appCtx.Options.ScriptModel != "" {
		scriptModel = appCtx.Options.ScriptModel
	}
	imageModel := cfg.ImageModel
	if appCtx.Options.ImageModel != "" {
		imageModel = appCtx.Options.ImageModel
	}

	rateInterval := cfg.RateInterval
	if appCtx.Options.RateInterval > 0 {
		rateInterval = appCtx.Options.RateInterval
	}

	styleRefURL := cfg.StyleReferenceURL
	if appCtx.Options.StyleReferenceURL != "" {
		styleRefURL = appCtx.Options.StyleReferenceURL
	}

	registry := character.NewRegistry(appCtx.Reader, appCtx.Writer, cfg.RegistryFile)

	return pipeline.New(
		pipeline.Config{
			ScriptModel:       scriptModel,
			ImageModel:        imageModel,
			OutputDir:         outputDir,
			StyleReferenceURL: styleRefURL,
			RequestInterval:   rateInterval,
		},
		pipeline.Deps{
			Backend:    aiClient,
			Characters: character.NewManager(registry),
			References: reference.NewLoader(appCtx.Reader, outputDir),
			Styles:     style.NewFetcher(appCtx.HTTPClient),
			Assembler:  assembler.New(appCtx.Reader, appCtx.Writer, outputDir),
			Writer:     appCtx.Writer,
			Progress:   progress,
		},
	)
}
