package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
)

// generateCmd は、イベント説明からコミック1冊分の生成を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate <イベント説明>",
	Short: "イベント説明からコミックを生成するのだ。",
	Long: `イベント説明をもとに台本を生成し、パネルごとの画像生成と
コミックページの合成までを一気に実行するのだ。

例:
  comic-kit generate "birth of Alexander the Great"
  comic-kit generate "discovery of fire" --style amar_chitra_katha`,
	Args: cobra.ExactArgs(1),
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eventDescription := args[0]

	cfg := config.LoadConfig()
	cfg.Options = opts

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	slog.Info("コミック生成パイプラインを起動するのだ！",
		"event", eventDescription,
		"style", styleOrDefault(cfg),
		"text_model", cfg.ScriptModel,
		"image_model", cfg.ImageModel)

	progress := func(message string) {
		fmt.Printf("   %s\n", message)
	}

	p, err := builder.BuildPipeline(ctx, appCtx, progress)
	if err != nil {
		return err
	}

	comic, err := p.GenerateComic(ctx, eventDescription, styleOrDefault(cfg))
	if err != nil {
		return fmt.Errorf("コミック生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！", "output", comic.OutputPath)
	fmt.Printf("Comic saved to: %s\n", comic.OutputPath)
	return nil
}

// styleOrDefault はフラグ指定を優先しつつ画風名を決めるのだ。
func styleOrDefault(cfg *config.Config) string {
	if opts.Style != "" {
		return opts.Style
	}
	return cfg.Style
}
