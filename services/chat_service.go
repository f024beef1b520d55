package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"

	"github.com/JLAD75/fileManagerRAG/models"
)

// Completer is the external completion service: prompt in, answer text out.
type Completer interface {
	Complete(ctx context.Context, prompt, modelID string) (string, error)
}

// ChatService formats a grounded prompt from the bounded retrieval context
// and delegates to the completion backend.
type ChatService struct {
	completer Completer
	logger    *slog.Logger
}

// NewChatService creates the answer generator.
func NewChatService(completer Completer, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{completer: completer, logger: logger}
}

// Generate answers query from the bounded chunks. Completion failures wrap
// models.ErrGeneration and propagate: an answer-less response is a failure
// state the user must see.
func (s *ChatService) Generate(ctx context.Context, query string, chunks []models.VectorRecord, modelID string) (string, error) {
	prompt := BuildPrompt(query, chunks)

	answer, err := s.completer.Complete(ctx, prompt, modelID)
	if err != nil {
		s.logger.Error("completion call failed", "model", modelID, "error", err)
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	return answer, nil
}

// BuildPrompt lists the chunks as sections of one document when they all
// share a source, or as numbered documents when they span several, and
// instructs the model to answer only from the supplied content.
func BuildPrompt(query string, chunks []models.VectorRecord) string {
	uniqueSources := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		uniqueSources[chunk.Metadata.SourceID] = true
	}

	var contextBlock strings.Builder
	var sourceInstructions string

	if len(uniqueSources) == 1 {
		for i, chunk := range chunks {
			if i > 0 {
				contextBlock.WriteString("\n\n")
			}
			fmt.Fprintf(&contextBlock, "Section %d:\n%s", i+1, chunk.Content)
		}
		sourceInstructions = `- Si tu cites des informations, mentionne "d'après les sections du document" ou "selon différentes sections du document"
- Ne mentionne PAS "Document 1, 2, 3" car il s'agit de sections d'un même document`
	} else {
		for i, chunk := range chunks {
			if i > 0 {
				contextBlock.WriteString("\n\n")
			}
			fmt.Fprintf(&contextBlock, "Document %d (%s):\n%s", i+1, chunk.Metadata.SourceName, chunk.Content)
		}
		sourceInstructions = `- Si tu cites des informations, mentionne les documents sources (exemple: "d'après le document X")
- Tu peux référencer plusieurs documents si nécessaire`
	}

	return fmt.Sprintf(`Tu es un assistant IA spécialisé dans l'analyse de documents. Réponds à la question de l'utilisateur en te basant uniquement sur les documents fournis ci-dessous.

Informations disponibles:
%s

Question de l'utilisateur: %s

Instructions:
- Réponds de manière claire et concise
- Base ta réponse uniquement sur les informations contenues dans les documents
- Si l'information n'est pas présente dans les documents, dis-le clairement
%s

Réponse:`, contextBlock.String(), query, sourceInstructions)
}

// completionTemperature picks the sampling temperature per model. Mini-tier
// models only accept the default temperature of 1.
func completionTemperature(modelID string) float64 {
	if strings.Contains(modelID, "mini") {
		return 1
	}
	return 0.7
}

// OpenAICompleter calls an OpenAI-compatible chat completion endpoint.
type OpenAICompleter struct {
	llm *lcopenai.LLM
}

// NewOpenAICompleter creates a completer backed by langchaingo's OpenAI client.
func NewOpenAICompleter(token, baseURL string) (*OpenAICompleter, error) {
	opts := []lcopenai.Option{}
	if token != "" {
		opts = append(opts, lcopenai.WithToken(token))
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai completion client: %w", err)
	}
	return &OpenAICompleter{llm: llm}, nil
}

// Complete runs a single-prompt completion with the selected model.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithModel(modelID),
		llms.WithTemperature(completionTemperature(modelID)),
	)
}

// GeminiCompleter calls the Google Gemini API.
type GeminiCompleter struct {
	client *genai.Client
}

// NewGeminiCompleter creates a completer backed by the Gemini client.
func NewGeminiCompleter(ctx context.Context, apiKey string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiCompleter{client: client}, nil
}

// Complete runs a single-turn generation with the selected model.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	temp := float32(completionTemperature(modelID))
	result, err := c.client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	})
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
