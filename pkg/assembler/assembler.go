// Package assembler は、生成済みのパネル画像を1枚のコミックページへ
// 合成します。2カラムのグリッドにパネルを並べ、上部にタイトル帯を置きます。
package assembler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sort"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// レイアウト定数。コミックページの寸法計算の基準です。
const (
	gridColumns     = 2
	panelPadding    = 20
	titleBandHeight = 100
	borderWidth     = 2
)

const comicMIMEType = "image/png"

// Assembler はパネル画像の読み込み、合成、書き出しを行います。
type Assembler struct {
	reader    remoteio.InputReader
	writer    remoteio.OutputWriter
	outputDir string
}

// New は入出力と出力ディレクトリを指定して Assembler を生成します。
func New(reader remoteio.InputReader, writer remoteio.OutputWriter, outputDir string) *Assembler {
	return &Assembler{
		reader:    reader,
		writer:    writer,
		outputDir: outputDir,
	}
}

// Assemble は台本の全パネル画像を1枚に合成し、Comic を返します。
//
// 合成は全か無かです。画像が欠けているパネルが1つでもあれば合成は
// 行わず、欠けたパネル番号をすべて列挙したエラーを返します。
// 歯抜けのコミックページを成果物として残さないためです。
func (a *Assembler) Assemble(ctx context.Context, script *domain.Script) (*domain.Comic, error) {
	if script.PanelCount() == 0 {
		return nil, fmt.Errorf("合成できるパネルがありません")
	}

	if missing := missingPanels(script); len(missing) > 0 {
		return nil, fmt.Errorf("画像が欠けているため合成できません: パネル %s", joinInts(missing))
	}

	images, err := a.decodePanelImages(ctx, script)
	if err != nil {
		return nil, err
	}

	page := composePage(script.Title, images)

	outputPath, err := asset.ComicOutputPath(a.outputDir, script.Title)
	if err != nil {
		return nil, fmt.Errorf("コミックの出力パス解決に失敗しました: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		return nil, fmt.Errorf("コミックページのPNGエンコードに失敗しました: %w", err)
	}
	if err := a.writer.Write(ctx, outputPath, &buf, comicMIMEType); err != nil {
		return nil, fmt.Errorf("コミックページの書き込みに失敗しました: %w", err)
	}

	return domain.NewComic(script, outputPath), nil
}

// decodePanelImages は全パネルの画像を並列に読み込んでデコードします。
// 結果の順序はパネル順です。
func (a *Assembler) decodePanelImages(ctx context.Context, script *domain.Script) ([]image.Image, error) {
	images := make([]image.Image, len(script.Panels))

	g, gctx := errgroup.WithContext(ctx)
	for i, panel := range script.Panels {
		g.Go(func() error {
			img, err := a.decodeOne(gctx, panel.ImagePath)
			if err != nil {
				return fmt.Errorf("パネル %d の画像読み込みに失敗しました: %w", panel.PanelNumber, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (a *Assembler) decodeOne(ctx context.Context, path string) (image.Image, error) {
	rc, err := a.reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// composePage はタイトル帯つきの2カラムグリッドへパネルを敷き詰めます。
// 各パネルは最大パネル寸法へ拡縮されて均一なグリッドになります。
func composePage(title string, panels []image.Image) *image.RGBA {
	cols := gridColumns
	if len(panels) < cols {
		cols = len(panels)
	}
	rows := (len(panels) + cols - 1) / cols

	panelWidth, panelHeight := maxPanelSize(panels)

	pageWidth := cols*panelWidth + (cols+1)*panelPadding
	pageHeight := rows*panelHeight + (rows+1)*panelPadding + titleBandHeight

	page := image.NewRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	draw.Draw(page, page.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawTitle(page, title, pageWidth)

	for i, img := range panels {
		col := i % cols
		row := i / cols

		x := col*panelWidth + (col+1)*panelPadding
		y := row*panelHeight + (row+1)*panelPadding + titleBandHeight

		dst := image.Rect(x, y, x+panelWidth, y+panelHeight)
		xdraw.CatmullRom.Scale(page, dst, img, img.Bounds(), xdraw.Over, nil)

		strokeRect(page, dst.Inset(-borderWidth), color.Black, borderWidth)
	}

	return page
}

func maxPanelSize(panels []image.Image) (width, height int) {
	for _, img := range panels {
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		if b.Dy() > height {
			height = b.Dy()
		}
	}
	return width, height
}

// drawTitle はタイトル帯の中央にタイトルを描画します。
func drawTitle(page *image.RGBA, title string, pageWidth int) {
	face := basicfont.Face7x13

	d := &font.Drawer{
		Dst:  page,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	textWidth := d.MeasureString(title).Ceil()
	x := (pageWidth - textWidth) / 2
	if x < panelPadding {
		x = panelPadding
	}
	y := (titleBandHeight + face.Metrics().Ascent.Ceil()) / 2

	d.Dot = fixed.P(x, y)
	d.DrawString(title)
}

// strokeRect は矩形の外周に指定幅の枠線を描きます。
func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color, width int) {
	src := image.NewUniform(c)
	// 上下
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), src, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	// 左右
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
}

func missingPanels(script *domain.Script) []int {
	var missing []int
	for _, panel := range script.Panels {
		if !panel.HasImage() {
			missing = append(missing, panel.PanelNumber)
		}
	}
	sort.Ints(missing)
	return missing
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
