// Package style は、コミックの画風プロファイルの定義と解決、
// および画風参照画像の取得を担います。
package style

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// DefaultName は未指定時に使われる画風です。
const DefaultName = domain.DefaultStyle

// Profile は1つの画風の生成パラメータ一式です。
type Profile struct {
	// Name は正規化済みの画風名（小文字スネークケース）です。
	Name string
	// PromptFraming はパネルプロンプトの冒頭に置く画風指定の文です。
	// シーン描写はこの直後に続きます。
	PromptFraming string
	// Suffix はプロンプト末尾に付ける追加の画風ガイダンスです。省略可。
	Suffix string
	// EmbedText が真なら吹き出しやナレーション枠を画像内に描き込むよう
	// 指示します。偽の画風ではセリフ・ナレーションの本文をプロンプトに
	// 一切含めません。
	EmbedText bool
	// ReferenceURL は画風見本画像のURLです。設定されていれば取得して
	// 各パネル生成の参照として添付します。省略可。
	ReferenceURL string
}

var profiles = map[string]Profile{
	"amar_chitra_katha": {
		Name:          "amar_chitra_katha",
		PromptFraming: "Make a comic panel in the style of Amar Chitra Katha which shows:",
		Suffix:        "Use bold outlines, flat vivid colors and classic Indian comic book framing.",
		EmbedText:     true,
	},
	"manga": {
		Name:          "manga",
		PromptFraming: "Make a comic panel in the style of a black-and-white Japanese manga which shows:",
		Suffix:        "Use dynamic inked lines and screentone shading.",
		EmbedText:     true,
	},
	"western_golden_age": {
		Name:          "western_golden_age",
		PromptFraming: "Make a comic panel in the style of a 1940s American golden age comic which shows:",
		Suffix:        "Use halftone dots, saturated primary colors and heavy black inks.",
		EmbedText:     true,
	},
	"storyboard": {
		Name:          "storyboard",
		PromptFraming: "Make a clean film storyboard frame in pencil and grey wash which shows:",
		Suffix:        "No lettering, no speech balloons, composition and acting only.",
		EmbedText:     false,
	},
}

// Resolve は画風名からプロファイルを解決します。空文字列はデフォルト、
// 未知の名前は警告ログを残してデフォルトにフォールバックします。
// 画風の綴り揺れでラン全体を失敗させないためです。
func Resolve(name string) Profile {
	if name == "" {
		return profiles[DefaultName]
	}

	key := normalize(name)
	if p, ok := profiles[key]; ok {
		return p
	}

	slog.Warn("未知の画風が指定されました。デフォルトにフォールバックします",
		"style", name, "default", DefaultName)
	return profiles[DefaultName]
}

// Names は登録済みの画風名を昇順で返します。CLIのヘルプや
// エラーメッセージでの列挙に使います。
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "_")
}
