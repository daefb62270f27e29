package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"trivia-duel-service/internal/domain"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

//go:embed prompts/generate_trivia.txt
var generateTriviaPrompt string

var (
	promptTmpl     = template.Must(template.New("generate_trivia").Parse(generateTriviaPrompt))
	trailingCommas = regexp.MustCompile(`,\s*([}\]])`)
)

// Generator produces trivia games with Google's generative AI.
type Generator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGenerator(ctx context.Context, apiKey, modelName string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is missing")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
	}
	return &Generator{client: client, model: model}, nil
}

func (g *Generator) Close() {
	g.client.Close()
}

// Generate asks the model for a game and decodes it. Shape validation is left
// to the caller.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.AIGame, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return domain.AIGame{}, err
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return domain.AIGame{}, mapError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return domain.AIGame{}, fmt.Errorf("no content returned from Gemini")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return domain.AIGame{}, domain.ErrContentBlocked
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return domain.AIGame{}, fmt.Errorf("unexpected response type from Gemini")
	}
	return decodeGame(text.String())
}

func renderPrompt(req domain.GenerateRequest) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// decodeGame strips markdown fences and trailing commas before decoding.
func decodeGame(text string) (domain.AIGame, error) {
	clean := strings.TrimSpace(text)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = trailingCommas.ReplaceAllString(clean, "$1")

	var game domain.AIGame
	if err := json.Unmarshal([]byte(clean), &game); err != nil {
		return domain.AIGame{}, domain.Invalid("response", "the AI returned data in an invalid format: %v", err)
	}
	return game, nil
}

func mapError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return domain.ErrContentBlocked
	}
	return fmt.Errorf("generate trivia: %w", err)
}
