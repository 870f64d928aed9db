// Package pipeline は、イベント説明からコミック完成までの生成フロー全体を
// 直列に進める司令塔です。台本生成、構文解析、キャラクター抽出、
// パネル画像生成、ページ合成の各段階をこの順で実行します。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"time"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/time/rate"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/assembler"
	"github.com/shouni/go-comic-kit/pkg/backend"
	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/parser"
	"github.com/shouni/go-comic-kit/pkg/prompt"
	"github.com/shouni/go-comic-kit/pkg/reference"
	"github.com/shouni/go-comic-kit/pkg/style"
)

// ProgressFunc は生成の進捗通知を受け取るコールバックです。
// 観測専用であり、フローの制御には一切関与しません。
type ProgressFunc func(message string)

// Config はパイプラインの動作パラメータです。
type Config struct {
	// ScriptModel は台本生成に使うモデルIDです。
	ScriptModel string
	// ImageModel はパネル画像生成に使うモデルIDです。
	ImageModel string
	// OutputDir はパネル画像とコミックページの出力先です。
	OutputDir string
	// StyleReferenceURL が設定されていると、解決された画風プロファイルの
	// 見本画像URLをこの値で上書きします。空なら各プロファイルの既定に従います。
	StyleReferenceURL string
	// RequestInterval は画像生成リクエストの最小間隔です。
	// ゼロならレート制限を行いません。
	RequestInterval time.Duration
}

// Deps はパイプラインが依存するコンポーネント一式です。
type Deps struct {
	Backend    backend.Client
	Characters *character.Manager
	References *reference.Loader
	Styles     style.ReferenceSource
	Assembler  *assembler.Assembler
	Writer     remoteio.OutputWriter
	Progress   ProgressFunc
}

// Pipeline は生成フローの実行主体です。1つの Pipeline を複数のランで
// 使い回せますが、1ランの実行は単一ゴルーチンで行われます。
type Pipeline struct {
	cfg           Config
	deps          Deps
	scriptPrompts *prompt.ScriptPromptBuilder
	parser        *parser.ScriptParser
	limiter       *rate.Limiter
}

// New はパイプラインを構築します。必須の依存が欠けているとエラーです。
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("生成バックエンドが設定されていません")
	}
	if deps.Characters == nil || deps.References == nil || deps.Styles == nil ||
		deps.Assembler == nil || deps.Writer == nil {
		return nil, fmt.Errorf("パイプラインの依存コンポーネントが不足しています")
	}

	scriptPrompts, err := prompt.NewScriptPromptBuilder()
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}

	return &Pipeline{
		cfg:           cfg,
		deps:          deps,
		scriptPrompts: scriptPrompts,
		parser:        parser.NewScriptParser(),
		limiter:       limiter,
	}, nil
}

// GenerateComic はイベント説明から完成コミックまでの全段階を実行します。
//
// パネル画像の生成失敗はそのパネルに記録して次のパネルへ進みますが、
// 最終合成は全か無かです。1枚でも欠けていれば、失敗したパネルと
// 原因を集約したエラーを返します。
func (p *Pipeline) GenerateComic(ctx context.Context, eventDescription, styleName string) (*domain.Comic, error) {
	script, err := p.GenerateScript(ctx, eventDescription, styleName)
	if err != nil {
		return nil, err
	}
	return p.RenderScript(ctx, script)
}

// GenerateScript は台本の生成と構文解析までを行い、画像生成前の
// Script を返します。
func (p *Pipeline) GenerateScript(ctx context.Context, eventDescription, styleName string) (*domain.Script, error) {
	profile := style.Resolve(styleName)

	p.progress(fmt.Sprintf("Generating comic script for: %s", eventDescription))
	slog.Info("台本を生成します", "event", eventDescription, "style", profile.Name)

	scriptPrompt, err := p.scriptPrompts.Build(eventDescription, profile.Name)
	if err != nil {
		return nil, err
	}

	scriptText, err := p.deps.Backend.GenerateText(ctx, p.cfg.ScriptModel, scriptPrompt)
	if err != nil {
		return nil, fmt.Errorf("台本の生成に失敗しました: %w", err)
	}

	script := p.parser.Parse(scriptText, eventDescription, profile.Name)
	if script.PanelCount() == 0 {
		return nil, fmt.Errorf("台本からパネルを1つも抽出できませんでした")
	}

	p.progress(fmt.Sprintf("Parsed %d panels for '%s'", script.PanelCount(), script.Title))
	slog.Info("台本を解析しました", "title", script.Title, "panels", script.PanelCount())

	return script, nil
}

// RenderScript は解析済みの台本から画像生成と合成を実行します。
// キャラクターレジストリはこの中で一度だけ読み込まれ、画像生成が
// すべて終わった後に一度だけ書き戻されます。
func (p *Pipeline) RenderScript(ctx context.Context, script *domain.Script) (*domain.Comic, error) {
	profile := style.Resolve(script.Style)
	if p.cfg.StyleReferenceURL != "" {
		profile.ReferenceURL = p.cfg.StyleReferenceURL
	}

	p.deps.Characters.Load(ctx)
	p.deps.Characters.ExtractCharacters(script)
	descriptions := p.deps.Characters.CharacterDescriptions(script)

	styleImage, styleMIME, err := p.deps.Styles.ReferenceImage(ctx, profile)
	if err != nil {
		// 画風見本は品質向上のヒントにすぎないため、取得失敗では止めない
		slog.Warn("画風見本画像を取得できませんでした。参照なしで続行します", "error", err)
	}

	var failures []error
	for _, panel := range script.Panels {
		if err := p.generatePanel(ctx, script, panel, profile, descriptions, styleImage, styleMIME); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures = append(failures, fmt.Errorf("パネル %d: %w", panel.PanelNumber, err))
			p.progress(fmt.Sprintf("Failed to generate panel %d: %v", panel.PanelNumber, err))
			slog.Error("パネル画像の生成に失敗しました。次のパネルへ進みます",
				"panel", panel.PanelNumber, "error", err)
			continue
		}
		p.progress(fmt.Sprintf("Panel %d image saved: %s", panel.PanelNumber, panel.ImagePath))
	}

	if err := p.deps.Characters.Save(ctx); err != nil {
		slog.Warn("キャラクターレジストリの保存に失敗しました", "error", err)
	}

	comic, err := p.deps.Assembler.Assemble(ctx, script)
	if err != nil {
		if len(failures) > 0 {
			return nil, fmt.Errorf("コミックを合成できません: %w", errors.Join(failures...))
		}
		return nil, err
	}

	p.progress(fmt.Sprintf("Comic assembled: %s", comic.OutputPath))
	slog.Info("コミックを合成しました", "output", comic.OutputPath, "panels", script.PanelCount())

	return comic, nil
}

// generatePanel は1パネル分の参照解決、プロンプト構築、画像生成、保存を行います。
func (p *Pipeline) generatePanel(
	ctx context.Context,
	script *domain.Script,
	panel *domain.Panel,
	profile style.Profile,
	descriptions map[string]string,
	styleImage []byte,
	styleMIME string,
) error {
	p.progress(fmt.Sprintf("Generating image for panel %d...", panel.PanelNumber))

	panel.SetReferencePanels(p.deps.Characters.DetermineReferencePanels(panel, script))

	refImages := p.deps.References.ImagesForPanel(ctx, script.Title, panel)
	refContext := reference.ContextPrompt(referencedNumbers(refImages))

	panel.ImagePrompt = prompt.BuildPanelPrompt(panel, descriptions, profile, refContext)

	parts := []backend.Part{{Text: panel.ImagePrompt}}
	if len(styleImage) > 0 {
		parts = append(parts, backend.Part{InlineData: styleImage, MIMEType: styleMIME})
	}
	for _, img := range refImages {
		parts = append(parts, backend.Part{InlineData: img.Data, MIMEType: img.MIMEType})
	}

	if err := p.wait(ctx); err != nil {
		return err
	}

	generated, err := p.deps.Backend.GenerateImage(ctx, p.cfg.ImageModel, parts)
	if err != nil {
		return err
	}

	data, err := pngBytes(generated)
	if err != nil {
		return err
	}

	path, err := asset.PanelImagePath(p.cfg.OutputDir, script.Title, panel.PanelNumber)
	if err != nil {
		return err
	}
	if err := p.deps.Writer.Write(ctx, path, bytes.NewReader(data), pngMIMEType); err != nil {
		return fmt.Errorf("パネル画像の書き込みに失敗しました: %w", err)
	}

	panel.ImagePath = path
	return nil
}

const pngMIMEType = "image/png"

// pngBytes は生成画像をPNGバイト列へ正規化します。パネルのファイル名規約と
// 参照画像の読み込みはPNGを前提とするため、バックエンドが他形式
// （JPEGなど）を返した場合はここで変換します。
func pngBytes(img *backend.Image) ([]byte, error) {
	if img.MIMEType == pngMIMEType {
		return img.Data, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("生成画像（%s）のデコードに失敗しました: %w", img.MIMEType, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("パネル画像のPNG変換に失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *Pipeline) progress(message string) {
	if p.deps.Progress != nil {
		p.deps.Progress(message)
	}
}

// referencedNumbers は実際に読み込めた参照画像のパネル番号だけを返します。
// 欠けた参照を文言に含めてモデルを混乱させないためです。
func referencedNumbers(images []reference.PanelImage) []int {
	numbers := make([]int, len(images))
	for i, img := range images {
		numbers[i] = img.PanelNumber
	}
	return numbers
}
