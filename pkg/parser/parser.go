// Package parser は、生成モデルが返した半構造化の台本テキストを
// 構造化された domain.Script に変換します。
//
// 入力は "TITLE:" 行と "PANEL n:" ブロック（SCENE / DIALOGUE / NARRATION の
// サブセクションを持つ）からなる自由テキストです。欠けたセクションからは
// 可能な範囲で回復し、パース全体を失敗させないことを契約とします。
package parser

import (
	"log/slog"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// UntitledComic はタイトルがどうしても抽出できなかったときの固定タイトルです。
const UntitledComic = "Untitled Comic"

// ScriptParser は台本テキストを Script に変換するパーサーです。
type ScriptParser struct{}

// NewScriptParser は ScriptParser を初期化します。
func NewScriptParser() *ScriptParser {
	return &ScriptParser{}
}

// Parse は台本テキスト全体を解析して Script を返します。
// 整形の崩れた入力に対してもエラーを返さず、復元できたパネルだけで
// 台本を構成します。パネル番号は入力の表記に関わらず 1..N に振り直されます。
func (p *ScriptParser) Parse(scriptText, eventDescription, style string) *domain.Script {
	title := p.extractTitle(scriptText)
	panels := p.extractPanels(scriptText, style)

	if len(panels) == 0 {
		slog.Warn("台本から有効なパネルを1つも復元できませんでした", "title", title)
	}

	return domain.NewScript(title, eventDescription, style, panels)
}

// extractTitle はタイトルを抽出します。"TITLE:" 行が無い場合は最初の
// 空でない行にフォールバックし、それがパネルヘッダに見える場合は
// 固定のプレースホルダを使います。
func (p *ScriptParser) extractTitle(scriptText string) string {
	if m := TitleRegex.FindStringSubmatch(scriptText); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, line := range strings.Split(scriptText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if looksLikePanelHeader(line) {
			break
		}
		return line
	}

	return UntitledComic
}

// looksLikePanelHeader はタイトル候補がパネル区切り行かどうかを判定します。
func looksLikePanelHeader(line string) bool {
	return strings.HasPrefix(strings.ToUpper(line), "PANEL")
}

// extractPanels は "PANEL n:" のアンカー位置でテキストをチャンクに分割し、
// 各チャンクを個別に解析します。表記上の番号 n はチャンクの切り出しにのみ
// 使われ、飛び番・逆順は最終結果に影響しません。
func (p *ScriptParser) extractPanels(scriptText, style string) []*domain.Panel {
	anchors := PanelAnchorRegex.FindAllStringSubmatchIndex(scriptText, -1)
	if anchors == nil {
		return nil
	}

	var panels []*domain.Panel
	for i, anchor := range anchors {
		declared := scriptText[anchor[2]:anchor[3]]
		start := anchor[1]
		end := len(scriptText)
		if i+1 < len(anchors) {
			end = anchors[i+1][0]
		}

		panel := p.parsePanelContent(scriptText[start:end], style)
		if panel == nil {
			// シーン記述を持たないチャンクは定義上の破棄であり、パース失敗ではない
			slog.Warn("シーン記述が無いためパネルを破棄しました", "declared_number", declared)
			continue
		}
		panels = append(panels, panel)
	}

	return panels
}

// parsePanelContent は1チャンク分のテキストからパネルを組み立てます。
// シーン記述が空のチャンクは nil を返します。
func (p *ScriptParser) parsePanelContent(content, style string) *domain.Panel {
	scene := p.extractScene(content)
	if scene == "" {
		return nil
	}

	dialogue := p.extractDialogue(content)
	narration := p.extractNarration(content)

	// 番号はここでは仮置きで、NewScript が 1..N に確定させる
	return domain.NewPanel(0, scene, dialogue, narration, style)
}

// extractScene はシーン記述を抽出します。
func (p *ScriptParser) extractScene(content string) string {
	if m := sceneRegex.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractDialogue はセリフ行を初出順のまま抽出します。
// セクション全体が "none" / "[none]" のときは空のリストになります。
func (p *ScriptParser) extractDialogue(content string) []string {
	m := dialogueRegex.FindStringSubmatch(content)
	if m == nil {
		return nil
	}

	section := strings.TrimSpace(m[1])
	if section == "" || isNoneMarker(section) {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		switch {
		case strings.Contains(line, ":") && !strings.HasPrefix(strings.ToLower(line), "dialogue"):
			// "話者名: セリフ" の形式
			lines = append(lines, line)
		case !isSectionHeader(line):
			// コロンを持たない続き行もセリフとして保持する
			lines = append(lines, line)
		}
	}

	return lines
}

// extractNarration はナレーションを抽出します。空や "none" は不在扱いです。
func (p *ScriptParser) extractNarration(content string) string {
	m := narrationRegex.FindStringSubmatch(content)
	if m == nil {
		return ""
	}

	narration := strings.TrimSpace(m[1])
	if isNoneMarker(narration) {
		return ""
	}
	return narration
}

func isNoneMarker(s string) bool {
	switch strings.ToLower(s) {
	case "none", "[none]":
		return true
	}
	return false
}

func isSectionHeader(line string) bool {
	upper := strings.ToUpper(line)
	return strings.HasPrefix(upper, "SCENE") ||
		strings.HasPrefix(upper, "DIALOGUE") ||
		strings.HasPrefix(upper, "NARRATION")
}
