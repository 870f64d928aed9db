// Package character は、セリフから話者を抽出してキャラクターのレジストリを
// 維持し、パネル間の視覚的一貫性のための参照パネル選定を行います。
package character

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// MaxReferencePanels は1パネルに添付する参照パネル数の上限です。
// 参照を増やしすぎると画像モデルの出力が不安定になるため、ここで打ち切ります。
const MaxReferencePanels = 4

// speakerRegex は "話者名: セリフ" 形式の行から話者名をキャプチャします。
// 名前抽出はセリフ行のみが対象で、シーン描写やナレーションは走査しません。
var speakerRegex = regexp.MustCompile(`^([A-Za-z\s]+):\s*(.+)`)

// Store は名前→キャラクターの永続化層のインターフェースです。
type Store interface {
	// Load はレジストリ全体を読み込みます。キーは小文字正規化済みの名前です。
	Load(ctx context.Context) (map[string]*domain.Character, error)
	// Save はレジストリ全体を書き出します。
	Save(ctx context.Context, characters map[string]*domain.Character) error
}

// Manager は1回の生成ランにおけるキャラクター情報の正本（キャッシュ）を保持します。
// キャッシュはラン開始時に Store から一度だけ読み込まれ、終了時に一度だけ
// 書き戻されます。ラン中のアクセスは単一の制御スレッドからに限られます。
type Manager struct {
	store Store
	cache map[string]*domain.Character
}

// NewManager は永続化層を注入して Manager を生成します。
// store に nil を渡すとメモリ内キャッシュのみで動作します（テスト用）。
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		cache: make(map[string]*domain.Character),
	}
}

// Load は永続化済みレジストリをキャッシュへ読み込みます。
// 読み込み失敗（ファイル欠落・壊れたJSON）は空キャッシュで続行する
// 非致命エラーであり、警告ログのみを残します。
func (m *Manager) Load(ctx context.Context) {
	if m.store == nil {
		return
	}
	characters, err := m.store.Load(ctx)
	if err != nil {
		slog.Warn("キャラクターレジストリを読み込めませんでした。空の状態で続行します", "error", err)
		m.cache = make(map[string]*domain.Character)
		return
	}
	m.cache = characters
}

// Save はキャッシュの内容を永続化層へ書き戻します。
func (m *Manager) Save(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Save(ctx, m.cache)
}

// ExtractCharacters は台本の全パネルのセリフから話者を抽出し、
// script と panel を書き換えて登場情報を記録します。
// 同じ台本に再実行しても登場記録は重複しません（冪等）。
func (m *Manager) ExtractCharacters(script *domain.Script) {
	titleCaser := cases.Title(language.Und)

	for _, panel := range script.Panels {
		names := extractSpeakerNames(panel.Dialogue)

		// パネル内での重複を大文字小文字を区別せずに除去し、初出順を保つ
		seen := make(map[string]struct{})
		for _, raw := range names {
			name := titleCaser.String(raw)
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			panel.AddCharacter(name)

			ch := m.getOrCreate(name, panel.SceneDescription)
			ch.AddAppearance(panel.PanelNumber)
			script.AddCharacter(ch)
		}
	}
}

// extractSpeakerNames はセリフ行から話者名の候補を抽出します。
// コロンの前の部分をトリムし、2文字以上のものだけを候補とします。
func extractSpeakerNames(dialogue []string) []string {
	var names []string
	for _, line := range dialogue {
		m := speakerRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(name) > 1 {
			names = append(names, name)
		}
	}
	return names
}

// getOrCreate は小文字化した名前をキーにキャッシュを引き、
// 未登録ならシーン描写から説明文を合成して新規作成します。
func (m *Manager) getOrCreate(name, sceneContext string) *domain.Character {
	key := strings.ToLower(name)
	if ch, ok := m.cache[key]; ok {
		return ch
	}

	ch := domain.NewCharacter(name, synthesizeDescription(name, sceneContext))
	m.cache[key] = ch
	return ch
}

// Lookup はキャッシュからキャラクターを検索します。
func (m *Manager) Lookup(name string) (*domain.Character, bool) {
	ch, ok := m.cache[strings.ToLower(name)]
	return ch, ok
}

// UpdateDescription は既知のキャラクターの外見説明を更新します。
func (m *Manager) UpdateDescription(name, description string) {
	if ch, ok := m.cache[strings.ToLower(name)]; ok {
		ch.VisualDescription = description
	}
}

// CharacterDescriptions は台本の登場キャラクター全員の説明文を
// 名前をキーにして返します（プロンプト構築用）。
func (m *Manager) CharacterDescriptions(script *domain.Script) map[string]string {
	descriptions := make(map[string]string, len(script.Characters))
	for _, ch := range script.Characters {
		descriptions[ch.Name] = ch.VisualDescription
	}
	return descriptions
}

// DetermineReferencePanels は対象パネルの画像生成時に参照として添付すべき
// 前方パネルの番号列を決定します。
//
//  1. シーンの連続性のため、直前の1〜2パネルを常に含める。
//  2. パネルに登場する各キャラクターについて、そのキャラクターの記録済み
//     登場パネルのうち対象パネルより前で未選択の最初の1件だけを加える
//     （全件は加えない。参照の氾濫を避けるため）。
//  3. 昇順にソートし、上限4件で切り詰める。
//
// パネル1には前方パネルが存在しないため、結果は常に空です。
func (m *Manager) DetermineReferencePanels(panel *domain.Panel, script *domain.Script) []int {
	var refs []int

	if panel.PanelNumber > 1 {
		refs = append(refs, panel.PanelNumber-1)
	}
	if panel.PanelNumber > 2 {
		refs = append(refs, panel.PanelNumber-2)
	}

	for _, name := range panel.CharactersInPanel {
		for _, ref := range script.CharacterReferencePanels(name) {
			if ref < panel.PanelNumber && !slices.Contains(refs, ref) {
				refs = append(refs, ref)
				break
			}
		}
	}

	sort.Ints(refs)
	if len(refs) > MaxReferencePanels {
		refs = refs[:MaxReferencePanels]
	}
	return refs
}
