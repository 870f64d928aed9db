package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
)

// scriptCmd は、台本の生成（JSON出力）のみを実行するのだ。
var scriptCmd = &cobra.Command{
	Use:   "script <イベント説明>",
	Short: "台本（JSON）のみを生成して保存するのだ。",
	Long: `イベント説明から台本を生成・解析し、タイトル、パネル、台詞を
JSON形式で保存するのだ。画像生成は行わないのだよ。
保存した台本は render コマンドで画像化できるのだ。`,
	Args: cobra.ExactArgs(1),
	RunE: scriptCommand,
}

func scriptCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eventDescription := args[0]

	// --output-file がユーザーによって指定されなかった場合のデフォルト値
	if opts.OutputFile == "" {
		opts.OutputFile = "output/comic_script.json"
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	slog.Info("台本生成モードを起動するのだ！",
		"event", eventDescription,
		"text_model", cfg.ScriptModel,
		"output", opts.OutputFile)

	p, err := builder.BuildPipeline(ctx, appCtx, nil)
	if err != nil {
		return err
	}

	script, err := p.GenerateScript(ctx, eventDescription, styleOrDefault(cfg))
	if err != nil {
		return fmt.Errorf("台本生成中にエラーが発生したのだ: %w", err)
	}

	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("台本のJSON変換に失敗したのだ: %w", err)
	}
	if err := appCtx.Writer.Write(ctx, opts.OutputFile, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("台本JSONの保存に失敗したのだ: %w", err)
	}

	slog.Info("台本（JSON）の生成が完了したのだ！",
		"title", script.Title,
		"panels", script.PanelCount(),
		"output_file", opts.OutputFile)
	return nil
}
