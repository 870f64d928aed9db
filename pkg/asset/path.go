// Package asset はコミックの成果物ファイルの命名規則を一元管理します。
//
// パネル画像のパスはタイトルとパネル番号から再構築されるため、書き込み側と
// 参照解決側が寸分違わず同じ関数を使う必要があります。命名ロジックをこの
// パッケージの外に複製してはいけないのだ。
package asset

import (
	"fmt"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// MaxFilenameLength はサニタイズ後のベース名の最大長です。
	MaxFilenameLength = 50
	// ComicFileSuffix は最終合成画像のファイル名サフィックスです。
	ComicFileSuffix = "_complete_comic.png"
)

// unsafeChars はファイルシステムで問題を起こす文字の固定セットです。
const unsafeChars = `<>:"/\|?*`

// SanitizeFilename はタイトル文字列をファイル名として安全な形に正規化します。
// 不正文字をアンダースコアに置換し、連続する空白を1つのアンダースコアに
// 畳み込み、50文字に切り詰めます。サニタイズ済みの入力に再適用しても
// 結果は変わりません（冪等）。
func SanitizeFilename(name string) string {
	for _, c := range unsafeChars {
		name = strings.ReplaceAll(name, string(c), "_")
	}
	name = strings.Join(strings.Fields(name), "_")
	// 多バイト文字のタイトルを壊さないよう、バイトではなく文字数で切り詰める
	if runes := []rune(name); len(runes) > MaxFilenameLength {
		name = string(runes[:MaxFilenameLength])
	}
	return name
}

// PanelImageName はパネル画像のファイル名を返します。
// 形式: {サニタイズ済みタイトル}_panel_{番号:02d}.png
func PanelImageName(comicTitle string, panelNumber int) string {
	return fmt.Sprintf("%s_panel_%02d.png", SanitizeFilename(comicTitle), panelNumber)
}

// PanelImagePath は出力ディレクトリ（ローカルまたは gs://）配下の
// パネル画像のフルパスを解決します。
func PanelImagePath(outputDir, comicTitle string, panelNumber int) (string, error) {
	return urlpath.ResolveOutputPath(outputDir, PanelImageName(comicTitle, panelNumber))
}

// ComicOutputPath は最終合成画像のフルパスを解決します。
func ComicOutputPath(outputDir, comicTitle string) (string, error) {
	return urlpath.ResolveOutputPath(outputDir, SanitizeFilename(comicTitle)+ComicFileSuffix)
}

// ScriptOutputPath は台本JSONの保存先パスを解決します。
func ScriptOutputPath(outputDir, comicTitle string) (string, error) {
	return urlpath.ResolveOutputPath(outputDir, SanitizeFilename(comicTitle)+"_script.json")
}
