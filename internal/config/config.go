package config

import (
	"fmt"
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultScriptModel  = "gemini-2.5-flash"               // 台本（テキスト）生成用モデル
	DefaultImageModel   = "gemini-2.5-flash-image-preview" // パネル画像生成用モデル
	DefaultOutputDir    = "output"                         // 画像とコミックページの保存先
	DefaultStyle        = "amar_chitra_katha"              // 画風の既定値
	DefaultRegistryFile = "characters.json"                // キャラクターレジストリの保存先
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRateInterval = 2 * time.Second // 画像生成リクエストの最小間隔
	DefaultListenAddr   = ":8080"         // APIサーバの待ち受けアドレス
)

// Config はアプリケーション全体の環境設定を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey      string
	ScriptModel       string
	ImageModel        string
	OutputDir         string
	Style             string
	StyleReferenceURL string
	RegistryFile      string
	RateInterval      time.Duration

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:      envutil.GetEnv("GEMINI_API_KEY", ""),
		ScriptModel:       envutil.GetEnv("GEMINI_MODEL", DefaultScriptModel),
		ImageModel:        envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		OutputDir:         envutil.GetEnv("OUTPUT_DIR", DefaultOutputDir),
		Style:             envutil.GetEnv("COMIC_STYLE", DefaultStyle),
		StyleReferenceURL: envutil.GetEnv("STYLE_REFERENCE_URL", ""),
		RegistryFile:      envutil.GetEnv("CHARACTERS_FILE", DefaultRegistryFile),
		RateInterval:      DefaultRateInterval,
	}
}

// Validate は生成の実行に必須の設定が揃っているか確認するのだ。
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// 入出力関連
	ScriptFile string // --script-file: 解析済み台本JSONの入力パス
	OutputFile string // --output-file: 台本JSONの保存先パス
	OutputDir  string // --output-dir: 画像とコミックの保存先（ローカル or gs://...）

	// 生成内容の設定
	Style             string // --style: コミックの画風
	StyleReferenceURL string // --style-reference-url: 画風見本画像のURL

	// AI挙動設定
	ScriptModel  string        // --model: 台本生成用のGeminiモデル
	ImageModel   string        // --image-model: 画像生成用のGeminiモデル
	RateInterval time.Duration // --rate-interval: 画像生成リクエストの最小間隔

	// APIサーバ関連
	ListenAddr string // --listen: serve コマンドの待ち受けアドレス

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
}
