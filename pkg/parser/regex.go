package parser

import "regexp"

var (
	// TitleRegex は "TITLE: <タイトル>" 行をキャプチャします。
	TitleRegex = regexp.MustCompile(`(?i)TITLE:\s*(.+)`)

	// PanelAnchorRegex は "PANEL <n>:" 形式のパネル区切りを特定します。
	// キャプチャした番号はチャンクの切り出しにだけ使い、最終的な番号には使いません。
	PanelAnchorRegex = regexp.MustCompile(`(?i)PANEL\s+(\d+):`)

	// 各セクションは次の既知キーワードまたはチャンク末尾で終端します。
	// Go の正規表現（RE2）は先読みを持たないため、終端側を消費する形で書くのだ。
	sceneRegex     = regexp.MustCompile(`(?is)SCENE:\s*(.*?)(?:DIALOGUE:|NARRATION:|PANEL|\z)`)
	dialogueRegex  = regexp.MustCompile(`(?is)DIALOGUE:\s*(.*?)(?:NARRATION:|PANEL|\z)`)
	narrationRegex = regexp.MustCompile(`(?is)NARRATION:\s*(.*?)(?:PANEL|\z)`)
)
