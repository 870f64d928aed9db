package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// renderCmd は、既存の台本JSONから画像生成と合成のみを実行するのだ。
// 台本生成をスキップできるので、画像の再生成や調整に便利なのだ。
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "台本JSONからパネル画像とコミックページを生成するのだ。",
	Long: `script コマンドなどで保存・修正済みの台本JSONを読み込み、
パネル画像の生成とコミックページの合成を実行するのだ。
テキスト生成のコストを抑えつつ、画像側だけをやり直せるのだよ。`,
	RunE: renderCommand,
}

func renderCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.ScriptFile == "" {
		return fmt.Errorf("読み込む台本JSON（--script-file）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	script, err := loadScript(cmd, appCtx)
	if err != nil {
		return err
	}

	slog.Info("画像生成モードを起動するのだ！",
		"title", script.Title,
		"panels", script.PanelCount(),
		"image_model", cfg.ImageModel)

	progress := func(message string) {
		fmt.Printf("   %s\n", message)
	}

	p, err := builder.BuildPipeline(ctx, appCtx, progress)
	if err != nil {
		return err
	}

	comic, err := p.RenderScript(ctx, script)
	if err != nil {
		return fmt.Errorf("画像生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("コミックの生成が完了したのだ！", "output", comic.OutputPath)
	fmt.Printf("Comic saved to: %s\n", comic.OutputPath)
	return nil
}

// loadScript は台本JSONを読み込んでデコードするのだ。
func loadScript(cmd *cobra.Command, appCtx *builder.AppContext) (*domain.Script, error) {
	rc, err := appCtx.Reader.Open(cmd.Context(), opts.ScriptFile)
	if err != nil {
		return nil, fmt.Errorf("台本JSON '%s' を開けなかったのだ: %w", opts.ScriptFile, err)
	}
	defer rc.Close()

	var script domain.Script
	if err := json.NewDecoder(rc).Decode(&script); err != nil {
		return nil, fmt.Errorf("台本JSON '%s' の解析に失敗したのだ: %w", opts.ScriptFile, err)
	}
	if script.PanelCount() == 0 {
		return nil, fmt.Errorf("台本JSONにパネルが1つもないのだ")
	}
	return &script, nil
}
