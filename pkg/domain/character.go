package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Character はコミックに登場するキャラクターの視覚的一貫性を追跡する構造体です。
type Character struct {
	Name                 string `json:"name"`
	VisualDescription    string `json:"visual_description"`
	ReferencePanels      []int  `json:"reference_panels"`
	FirstAppearancePanel int    `json:"first_appearance_panel,omitempty"`
}

// NewCharacter は名前と外見の説明からキャラクターを生成します。
func NewCharacter(name, visualDescription string) *Character {
	return &Character{
		Name:              name,
		VisualDescription: visualDescription,
	}
}

// Key はキャッシュやレジストリで使う検索キー（小文字正規化済み）を返すのだ。
func (c *Character) Key() string {
	return strings.ToLower(c.Name)
}

// AddAppearance はこのキャラクターが指定パネルに登場したことを記録します。
// 初回の呼び出しで FirstAppearancePanel が確定し、以降は変更されません。
// 同じパネル番号の二重登録は無視されます（再実行しても増えない）。
func (c *Character) AddAppearance(panelNumber int) {
	if c.FirstAppearancePanel == 0 {
		c.FirstAppearancePanel = panelNumber
	}
	if !slices.Contains(c.ReferencePanels, panelNumber) {
		c.ReferencePanels = append(c.ReferencePanels, panelNumber)
	}
}

// String はキャラクターの概要を文字列で返すのだ。
func (c *Character) String() string {
	return fmt.Sprintf("%s (初登場: パネル %d)", c.Name, c.FirstAppearancePanel)
}
