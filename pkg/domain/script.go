package domain

import (
	"fmt"
	"strings"
)

// Script は1本のコミックの完全な台本です。タイトル・スタイルのメタデータと、
// 1 から始まる連番で正規化されたパネル列、登場キャラクター一覧を所有します。
type Script struct {
	Title            string       `json:"title"`
	EventDescription string       `json:"event_description"`
	Style            string       `json:"style"`
	Panels           []*Panel     `json:"panels"`
	Characters       []*Character `json:"characters,omitempty"`
}

// NewScript は台本を構築し、パネル番号を 1..N に振り直します。
// 入力テキスト側の番号が飛んでいても逆順でも、最終的な番号は常に連番です。
func NewScript(title, eventDescription, style string, panels []*Panel) *Script {
	if style == "" {
		style = DefaultStyle
	}
	for i, panel := range panels {
		panel.PanelNumber = i + 1
	}
	return &Script{
		Title:            title,
		EventDescription: eventDescription,
		Style:            style,
		Panels:           panels,
	}
}

// PanelCount はパネル数を返します。
func (s *Script) PanelCount() int {
	return len(s.Panels)
}

// Panel は1始まりの番号でパネルを取得します。範囲外はエラーなのだ。
func (s *Script) Panel(number int) (*Panel, error) {
	if number < 1 || number > len(s.Panels) {
		return nil, fmt.Errorf("パネル番号 %d は範囲外です（全 %d パネル）", number, len(s.Panels))
	}
	return s.Panels[number-1], nil
}

// AddCharacter はキャラクターを名前の重複なしで登録します。
// 既に同名（大文字小文字を区別しない）のキャラクターがいる場合は何もしません。
func (s *Script) AddCharacter(c *Character) {
	for _, existing := range s.Characters {
		if strings.EqualFold(existing.Name, c.Name) {
			return
		}
	}
	s.Characters = append(s.Characters, c)
}

// FindCharacter は名前からキャラクターを検索します（大文字小文字を区別しない）。
func (s *Script) FindCharacter(name string) *Character {
	for _, c := range s.Characters {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// CharacterReferencePanels は指定キャラクターの登場パネル番号列を返します。
// 未登録の名前に対しては nil を返すのだ。
func (s *Script) CharacterReferencePanels(name string) []int {
	if c := s.FindCharacter(name); c != nil {
		return c.ReferencePanels
	}
	return nil
}
