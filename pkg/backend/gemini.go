package backend

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// 応答モダリティの指定値。Gemini API の仕様に合わせた列挙文字列です。
const (
	modalityText  = "TEXT"
	modalityImage = "IMAGE"
)

const defaultTemperature = float32(0.2)

// GeminiBackend は google.golang.org/genai を使った Client 実装です。
type GeminiBackend struct {
	client      *genai.Client
	temperature *float32
}

var _ Client = (*GeminiBackend)(nil)

// NewGeminiBackend は Gemini API クライアントを初期化します。
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("geminiクライアントの初期化に失敗しました: %w", err)
	}

	return &GeminiBackend{
		client:      client,
		temperature: genai.Ptr(defaultTemperature),
	}, nil
}

// GenerateText はプロンプトからテキストを生成し、全テキストパートを
// 連結して返します。空応答はエラーです。
func (g *GeminiBackend) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}
	cfg := &genai.GenerateContentConfig{
		Temperature:        g.temperature,
		ResponseModalities: []string{modalityText},
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("テキスト生成に失敗しました: %w", err)
	}

	var sb strings.Builder
	for _, part := range candidateParts(resp) {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("テキスト生成の応答が空でした")
	}
	return text, nil
}

// GenerateImage はマルチモーダルなパート列から画像を生成します。
// 応答の最初の画像パートを返し、画像がなければ ErrNoImage を返します。
func (g *GeminiBackend) GenerateImage(ctx context.Context, model string, parts []Part) (*Image, error) {
	genParts := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.InlineData != nil {
			genParts = append(genParts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: p.InlineData},
			})
			continue
		}
		genParts = append(genParts, &genai.Part{Text: p.Text})
	}

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: genParts,
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{modalityText, modalityImage},
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("画像生成に失敗しました: %w", err)
	}

	for _, part := range candidateParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &Image{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			}, nil
		}
	}
	return nil, ErrNoImage
}

// candidateParts は最有力候補のパート列を返します。候補がなければ nil です。
func candidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}
