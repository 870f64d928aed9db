package character

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// fakeStore はテスト用のメモリ内 Store 実装です。
type fakeStore struct {
	characters map[string]*domain.Character
	loadErr    error
	saved      map[string]*domain.Character
}

func (s *fakeStore) Load(_ context.Context) (map[string]*domain.Character, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.characters, nil
}

func (s *fakeStore) Save(_ context.Context, characters map[string]*domain.Character) error {
	s.saved = characters
	return nil
}

func buildScript(panels ...*domain.Panel) *domain.Script {
	return domain.NewScript("Test Comic", "event", domain.DefaultStyle, panels)
}

func TestManager_ExtractCharacters(t *testing.T) {
	t.Run("セリフ行の話者だけが抽出される", func(t *testing.T) {
		script := buildScript(
			domain.NewPanel(1, "A young man named Oga stands in a tall forest.", []string{
				"Oga: I found something!",
				"[a distant rumble]",
			}, "The forest was silent.", ""),
			domain.NewPanel(2, "The village elder approaches.", []string{
				"ELDER: What is it, child?",
				"Oga: Fire!",
			}, "", ""),
		)

		m := NewManager(nil)
		m.ExtractCharacters(script)

		if got := len(script.Characters); got != 2 {
			t.Fatalf("キャラクター数 = %d, want 2", got)
		}

		oga, ok := m.Lookup("oga")
		if !ok {
			t.Fatal("Oga がキャッシュに登録されていません")
		}
		if oga.Name != "Oga" {
			t.Errorf("Name = %q, want %q", oga.Name, "Oga")
		}
		if oga.FirstAppearancePanel != 1 {
			t.Errorf("FirstAppearancePanel = %d, want 1", oga.FirstAppearancePanel)
		}
		if want := []int{1, 2}; !reflect.DeepEqual(oga.ReferencePanels, want) {
			t.Errorf("ReferencePanels = %v, want %v", oga.ReferencePanels, want)
		}

		// 大文字の話者名はタイトルケースに正規化される
		elder, ok := m.Lookup("elder")
		if !ok {
			t.Fatal("Elder がキャッシュに登録されていません")
		}
		if elder.Name != "Elder" {
			t.Errorf("Name = %q, want %q", elder.Name, "Elder")
		}
	})

	t.Run("再実行しても登場記録は重複しない", func(t *testing.T) {
		script := buildScript(
			domain.NewPanel(1, "scene", []string{"Mira: Hello."}, "", ""),
		)

		m := NewManager(nil)
		m.ExtractCharacters(script)
		m.ExtractCharacters(script)

		if got := len(script.Characters); got != 1 {
			t.Fatalf("キャラクター数 = %d, want 1", got)
		}
		mira, _ := m.Lookup("mira")
		if want := []int{1}; !reflect.DeepEqual(mira.ReferencePanels, want) {
			t.Errorf("ReferencePanels = %v, want %v", mira.ReferencePanels, want)
		}
		if got := len(script.Panels[0].CharactersInPanel); got != 1 {
			t.Errorf("CharactersInPanel の要素数 = %d, want 1", got)
		}
	})

	t.Run("1文字の話者名は無視される", func(t *testing.T) {
		script := buildScript(
			domain.NewPanel(1, "scene", []string{"A: too short", "Bo: long enough"}, "", ""),
		)

		m := NewManager(nil)
		m.ExtractCharacters(script)

		if _, ok := m.Lookup("a"); ok {
			t.Error("1文字の名前が登録されてしまっています")
		}
		if _, ok := m.Lookup("bo"); !ok {
			t.Error("Bo が登録されていません")
		}
	})

	t.Run("シーン描写やナレーションからは抽出しない", func(t *testing.T) {
		script := buildScript(
			domain.NewPanel(1, "Rishi: the name painted on the wall.", nil,
				"Kavi: a word in the narration.", ""),
		)

		m := NewManager(nil)
		m.ExtractCharacters(script)

		if got := len(script.Characters); got != 0 {
			t.Errorf("キャラクター数 = %d, want 0", got)
		}
	})
}

func TestSynthesizeDescription(t *testing.T) {
	t.Run("固定語彙にマッチした特徴語だけを拾う", func(t *testing.T) {
		got := synthesizeDescription("Rishi", "A tall old man with a grey beard watches the gate.")
		want := "Character named Rishi. described as old, man, tall, beard"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("特徴語がなければ名前だけの説明になる", func(t *testing.T) {
		got := synthesizeDescription("Mira", "Smoke rises over the rooftops.")
		want := "Character named Mira"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestManager_DetermineReferencePanels(t *testing.T) {
	newScriptWithCharacters := func(panelCount int, firstAppearances map[string]int) *domain.Script {
		panels := make([]*domain.Panel, 0, panelCount)
		for i := 1; i <= panelCount; i++ {
			panels = append(panels, domain.NewPanel(i, "scene", nil, "", ""))
		}
		script := buildScript(panels...)
		for name, first := range firstAppearances {
			ch := domain.NewCharacter(name, "desc")
			ch.AddAppearance(first)
			script.AddCharacter(ch)
		}
		return script
	}

	m := NewManager(nil)

	t.Run("パネル1は常に参照なし", func(t *testing.T) {
		script := newScriptWithCharacters(3, nil)
		if got := m.DetermineReferencePanels(script.Panels[0], script); len(got) != 0 {
			t.Errorf("got %v, want 空", got)
		}
	})

	t.Run("パネル2は直前のパネルのみ", func(t *testing.T) {
		script := newScriptWithCharacters(3, nil)
		got := m.DetermineReferencePanels(script.Panels[1], script)
		if want := []int{1}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("キャラクターの初出パネルが加わり昇順になる", func(t *testing.T) {
		script := newScriptWithCharacters(5, map[string]int{"Oga": 1})
		panel := script.Panels[4]
		panel.AddCharacter("Oga")

		got := m.DetermineReferencePanels(panel, script)
		if want := []int{1, 3, 4}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("上限4件で切り詰められる", func(t *testing.T) {
		script := newScriptWithCharacters(6, map[string]int{"Oga": 1, "Mira": 2, "Rishi": 3})
		panel := script.Panels[5]
		panel.AddCharacter("Oga")
		panel.AddCharacter("Mira")
		panel.AddCharacter("Rishi")

		got := m.DetermineReferencePanels(panel, script)
		if len(got) != MaxReferencePanels {
			t.Fatalf("参照数 = %d, want %d", len(got), MaxReferencePanels)
		}
		if want := []int{1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("選択済みの参照は重複しない", func(t *testing.T) {
		// 初出がパネル2のキャラクターは直前パネルの参照と重なる
		script := newScriptWithCharacters(3, map[string]int{"Oga": 2})
		panel := script.Panels[2]
		panel.AddCharacter("Oga")

		got := m.DetermineReferencePanels(panel, script)
		if want := []int{1, 2}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestManager_LoadSave(t *testing.T) {
	t.Run("読み込み失敗は空キャッシュで続行する", func(t *testing.T) {
		store := &fakeStore{loadErr: errors.New("壊れたJSON")}
		m := NewManager(store)
		m.Load(context.Background())

		script := buildScript(domain.NewPanel(1, "scene", []string{"Oga: Hi."}, "", ""))
		m.ExtractCharacters(script)

		if _, ok := m.Lookup("oga"); !ok {
			t.Error("読み込み失敗後も新規登録できるべきです")
		}
	})

	t.Run("既存レジストリの説明が引き継がれる", func(t *testing.T) {
		store := &fakeStore{characters: map[string]*domain.Character{
			"oga": domain.NewCharacter("Oga", "Character named Oga. described as young, man"),
		}}
		m := NewManager(store)
		m.Load(context.Background())

		script := buildScript(domain.NewPanel(1, "An empty plain.", []string{"Oga: Hi."}, "", ""))
		m.ExtractCharacters(script)

		oga, _ := m.Lookup("oga")
		if oga.VisualDescription != "Character named Oga. described as young, man" {
			t.Errorf("説明が上書きされています: %q", oga.VisualDescription)
		}

		if err := m.Save(context.Background()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if store.saved == nil {
			t.Fatal("Save が Store に書き戻していません")
		}
		if _, ok := store.saved["oga"]; !ok {
			t.Error("保存されたマップに oga がありません")
		}
	})
}
