package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// Ollama LLM Service
// Story generation goes through Ollama's OpenAI-compatible endpoint
// (<base>/v1); model listing uses the native /api/tags endpoint, which the
// compatibility layer does not expose.
// ---------------------------------------------------------------------------

// StoryResult is the parsed output of one story generation.
type StoryResult struct {
	Story       string // narration text, fed to TTS and saved as the transcript
	ImagePrompt string // scene description for image generation, may be empty
}

// OllamaService generates stories via a local Ollama server.
type OllamaService struct {
	baseURL      string
	defaultModel string
	client       *openai.Client
	httpClient   *http.Client
}

// NewOllamaService creates an Ollama client for the given base URL
// (e.g. "http://localhost:11434").
func NewOllamaService(baseURL, defaultModel string) *OllamaService {
	cfg := openai.DefaultConfig("ollama") // Ollama ignores the API key but the client requires one
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"

	return &OllamaService{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: defaultModel,
		client:       openai.NewClientWithConfig(cfg),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// GenerateStory asks the model for a story (or monologue) plus an image
// prompt, and splits the two apart. model overrides the service default
// when non-empty.
func (s *OllamaService) GenerateStory(ctx context.Context, topic, mode, character, model string) (*StoryResult, error) {
	if model == "" {
		model = s.defaultModel
	}

	systemPrompt := buildStorySystemPrompt(mode, character)
	userPrompt := buildStoryUserPrompt(topic, mode, character)

	log.Printf("[Ollama] Generating story (model=%s, mode=%s, topicLen=%d)", model, mode, len(topic))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: 0.9,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from ollama")
	}

	result := ExtractStoryAndImagePrompt(resp.Choices[0].Message.Content)
	if result.Story == "" {
		return nil, fmt.Errorf("ollama returned empty story")
	}
	if result.ImagePrompt == "" {
		log.Printf("[Ollama] Response contained no image prompt marker")
	}

	log.Printf("[Ollama] Story generated (storyLen=%d, imagePromptLen=%d)",
		len(result.Story), len(result.ImagePrompt))

	return result, nil
}

var imagePromptMarkerRe = regexp.MustCompile(`(?im)^\s*\**\s*IMAGE PROMPT\s*\**\s*:\s*`)

// ExtractStoryAndImagePrompt splits model output on the "IMAGE PROMPT:"
// marker. Everything before the marker is the story; everything after is
// the image prompt. Models sometimes bold the marker or vary its case, so
// matching is lenient. Without a marker the whole text is the story.
func ExtractStoryAndImagePrompt(raw string) *StoryResult {
	raw = strings.TrimSpace(raw)

	loc := imagePromptMarkerRe.FindStringIndex(raw)
	if loc == nil {
		return &StoryResult{Story: raw}
	}

	return &StoryResult{
		Story:       strings.TrimSpace(raw[:loc[0]]),
		ImagePrompt: strings.TrimSpace(raw[loc[1]:]),
	}
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the model names installed on the Ollama server.
func (s *OllamaService) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode ollama models: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// Ping checks that the Ollama server is up.
func (s *OllamaService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}
	return nil
}
