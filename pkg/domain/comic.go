package domain

import "time"

// Comic は全パネルの画像を1枚に合成した最終成果物を表します。
type Comic struct {
	Script     *Script   `json:"script"`
	OutputPath string    `json:"output_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewComic は生成時刻を刻印した Comic を返します。
func NewComic(script *Script, outputPath string) *Comic {
	return &Comic{
		Script:     script,
		OutputPath: outputPath,
		CreatedAt:  time.Now(),
	}
}

// Title は台本のタイトルをそのまま返します。
func (c *Comic) Title() string {
	return c.Script.Title
}

// HasAllImages は全パネルの画像が揃っているかを返します。
// 1枚でも欠けていれば最終合成はできないのだ。
func (c *Comic) HasAllImages() bool {
	for _, panel := range c.Script.Panels {
		if !panel.HasImage() {
			return false
		}
	}
	return true
}
