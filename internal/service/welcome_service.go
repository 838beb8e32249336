package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// LLMProvider abstracts the text generation backend (Gemini today).
type LLMProvider interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Close()
}

type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiProvider(ctx context.Context, modelName string) (*GeminiProvider, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)

	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from LLM")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt), nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}

func (g *GeminiProvider) Close() {
	g.client.Close()
}

// WelcomeService writes the regional welcome message posted into a freshly
// created room.
type WelcomeService struct {
	provider LLMProvider
}

func NewWelcomeService(provider LLMProvider) *WelcomeService {
	return &WelcomeService{provider: provider}
}

// GenerateWelcome asks the LLM for a short greeting tailored to the room's
// locality. A nil provider yields a static fallback instead of an error so
// room creation never depends on the LLM being configured.
func (s *WelcomeService) GenerateWelcome(ctx context.Context, roomName, locality string) (string, error) {
	if s.provider == nil {
		return fallbackWelcome(roomName, locality), nil
	}

	where := locality
	if where == "" {
		where = "the neighborhood"
	}

	prompt := fmt.Sprintf(`Write a short, friendly welcome message (2-3 sentences, plain text, no markdown)
for a local chat room called %q covering %s.
Mention the area by name and invite people to introduce themselves.`, roomName, where)

	text, err := s.provider.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackWelcome(roomName, locality), nil
	}
	return text, nil
}

func fallbackWelcome(roomName, locality string) string {
	if locality != "" {
		return fmt.Sprintf("Welcome to %s, the chat for everyone around %s. Say hi and introduce yourself!", roomName, locality)
	}
	return fmt.Sprintf("Welcome to %s. Say hi and introduce yourself!", roomName)
}
