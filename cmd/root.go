package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/style"
)

// opts は全サブコマンドで共有される実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "画像とコミックの保存先ディレクトリ（ローカル or gs://...）なのだ。")

	// --- 生成内容の設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Style, "style", "s", "",
		fmt.Sprintf("コミックの画風（%s）なのだ。", strings.Join(style.Names(), ", ")))
	rootCmd.PersistentFlags().StringVar(&opts.StyleReferenceURL, "style-reference-url", "", "画風見本画像のURL（プロファイルの既定を上書きする）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.ScriptModel, "model", "", "台本生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "画像生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", 0, "画像生成リクエストの最小間隔なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")

	// --- コマンド固有フラグ ---
	renderCmd.Flags().StringVarP(&opts.ScriptFile, "script-file", "f", "", "読み込む台本JSONのパスなのだ。")
	scriptCmd.Flags().StringVar(&opts.OutputFile, "output-file", "", "台本JSONの保存先パスなのだ。")
	serveCmd.Flags().StringVarP(&opts.ListenAddr, "listen", "l", config.DefaultListenAddr, "APIサーバの待ち受けアドレスなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// .env があれば読み込む。なくてもエラーにはしないのだ。
	_ = godotenv.Load()

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"comic-kit",
		addAppFlags,
		preRunAppE,
		generateCmd,
		scriptCmd,
		renderCmd,
		serveCmd,
	)
}
