package character

import (
	"fmt"
	"strings"
)

// 説明文の合成に使う固定語彙。シーン描写の中からこれらの語だけを拾い、
// それ以外の文脈は説明文に混ぜません。自由文をそのまま引き写すと
// パネルごとに説明が揺れて、画像間の一貫性が崩れるためです。
var (
	ageTerms = []string{
		"young", "old", "elderly", "child", "boy", "girl", "man", "woman",
	}
	appearanceTerms = []string{
		"tall", "short", "thin", "heavy", "beard", "mustache", "long hair", "bald",
	}
)

// synthesizeDescription は初登場パネルのシーン描写から、固定語彙に
// マッチした特徴語だけを使ってキャラクターの外見説明を合成します。
// 特徴語が見つからない場合は名前だけの説明になります。
func synthesizeDescription(name, sceneContext string) string {
	lowered := strings.ToLower(sceneContext)

	var traits []string
	for _, term := range ageTerms {
		if strings.Contains(lowered, term) {
			traits = append(traits, term)
		}
	}
	for _, term := range appearanceTerms {
		if strings.Contains(lowered, term) {
			traits = append(traits, term)
		}
	}

	description := fmt.Sprintf("Character named %s", name)
	if len(traits) > 0 {
		description += fmt.Sprintf(". described as %s", strings.Join(traits, ", "))
	}
	return description
}
