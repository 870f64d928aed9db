// Package prompt は、台本生成プロンプトとパネル画像プロンプトの組み立てを
// 担います。外部入出力を持たない純粋な文字列構築のみを行います。
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/style"
)

//go:embed script.md
var scriptTemplate string

// scriptTemplateData は script.md テンプレートへ渡す値です。
type scriptTemplateData struct {
	Event string
	Style string
}

// ScriptPromptBuilder はイベント説明から台本生成プロンプトを構築します。
type ScriptPromptBuilder struct {
	tmpl *template.Template
}

// NewScriptPromptBuilder は埋め込みテンプレートを解析して Builder を生成します。
func NewScriptPromptBuilder() (*ScriptPromptBuilder, error) {
	if scriptTemplate == "" {
		return nil, fmt.Errorf("台本プロンプトテンプレート (go:embed) の読み込みに失敗しました: 内容が空です")
	}

	tmpl, err := template.New("script").Parse(scriptTemplate)
	if err != nil {
		return nil, fmt.Errorf("台本プロンプトテンプレートの解析に失敗しました: %w", err)
	}

	return &ScriptPromptBuilder{tmpl: tmpl}, nil
}

// Build はイベント説明と画風名を埋め込んだ台本生成プロンプトを返します。
func (b *ScriptPromptBuilder) Build(eventDescription, styleName string) (string, error) {
	var sb strings.Builder
	data := scriptTemplateData{Event: eventDescription, Style: styleName}
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("台本プロンプトテンプレートの実行に失敗しました: %w", err)
	}
	return sb.String(), nil
}

// BuildPanelPrompt はパネル1枚分の画像生成プロンプトを組み立てます。
//
// 組み立て順序は固定です: 画風の枠組み文、シーン描写、（テキストを
// 描き込む画風のみ）セリフとナレーション、登場キャラクターの外見説明、
// 参照画像の文脈説明、画風の補足ガイダンス。
//
// profile.EmbedText が偽の画風では、セリフ・ナレーションの本文を
// プロンプトに一切含めません。
func BuildPanelPrompt(panel *domain.Panel, descriptions map[string]string, profile style.Profile, referenceContext string) string {
	parts := []string{
		profile.PromptFraming,
		panel.SceneDescription,
	}

	if profile.EmbedText {
		if len(panel.Dialogue) > 0 {
			parts = append(parts,
				fmt.Sprintf("Include dialogue bubbles with: %s", strings.Join(panel.Dialogue, "; ")))
		}
		if panel.Narration != "" {
			parts = append(parts,
				fmt.Sprintf("Include narration text: %s", panel.Narration))
		}
	}

	// キャラクターの列挙順はパネル内の初出順で固定する
	var appearances []string
	for _, name := range panel.CharactersInPanel {
		if desc, ok := descriptions[name]; ok && desc != "" {
			appearances = append(appearances, fmt.Sprintf("%s: %s", name, desc))
		}
	}
	if len(appearances) > 0 {
		parts = append(parts,
			fmt.Sprintf("Maintain these character appearances: %s.", strings.Join(appearances, "; ")))
	}

	if referenceContext != "" {
		parts = append(parts, referenceContext)
	}
	if profile.Suffix != "" {
		parts = append(parts, profile.Suffix)
	}

	return strings.Join(parts, " ")
}
