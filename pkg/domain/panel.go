package domain

import (
	"slices"
	"strings"
)

// DefaultStyle はスタイル未指定時に採用される既定のコミックスタイル名です。
const DefaultStyle = "amar_chitra_katha"

// Panel はコミックの1コマを表します。シーン描写・セリフ・ナレーションと、
// 生成時の視覚的一貫性のための参照パネル番号を保持します。
type Panel struct {
	PanelNumber       int      `json:"panel_number"`
	SceneDescription  string   `json:"scene_description"`
	Dialogue          []string `json:"dialogue"`
	Narration         string   `json:"narration,omitempty"`
	Style             string   `json:"style"`
	CharactersInPanel []string `json:"characters_in_panel,omitempty"`

	// ReferencePanels は画像生成時に参照として添付する前方パネルの番号列です。
	// 必ず PanelNumber より小さい番号のみが入り、最大4件に制限されます。
	ReferencePanels []int `json:"reference_panels,omitempty"`

	// ImagePrompt は pkg/prompt の純関数で構築されます（コンストラクタでは作らない）。
	// 明示的に与えられた場合はそちらが優先されるのだ。
	ImagePrompt string `json:"image_prompt,omitempty"`

	// ImagePath は画像が生成されるまで空のままです。
	ImagePath string `json:"image_path,omitempty"`
}

// NewPanel は必須フィールドからパネルを生成します。スタイルが空なら既定値を使います。
func NewPanel(number int, scene string, dialogue []string, narration, style string) *Panel {
	if style == "" {
		style = DefaultStyle
	}
	return &Panel{
		PanelNumber:      number,
		SceneDescription: scene,
		Dialogue:         dialogue,
		Narration:        narration,
		Style:            style,
	}
}

// AddCharacter は登場キャラクター名を初出順で記録します。
// 大文字小文字を区別せず重複登録を防ぐため、再実行しても安全です。
func (p *Panel) AddCharacter(name string) {
	for _, existing := range p.CharactersInPanel {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	p.CharactersInPanel = append(p.CharactersInPanel, name)
}

// SetReferencePanels は参照パネル番号を記録します。決定の再計算を避けるため、
// 参照マネージャが選定した結果をそのまま保持するのだ。
func (p *Panel) SetReferencePanels(panels []int) {
	p.ReferencePanels = slices.Clone(panels)
}

// HasImage は画像が生成済みかどうかを返します。
func (p *Panel) HasImage() bool {
	return p.ImagePath != ""
}
