package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Stable Diffusion Service
// Talks to an Automatic1111 WebUI instance over its /sdapi/v1 REST API.
// Images come back base64-encoded PNG.
// ---------------------------------------------------------------------------

// SDDefaults carries the server-wide generation defaults from config.
type SDDefaults struct {
	Steps          int
	Sampler        string
	Width          int
	Height         int
	CFGScale       float64
	NegativePrompt string
	VAE            string
}

// SDOptions carries per-request overrides on top of the defaults. Zero
// values mean "use the default".
type SDOptions struct {
	NegativePrompt string
	Checkpoint     string   // sd_model_checkpoint override
	VAE            string   // sd_vae override
	Styles         []string // WebUI prompt styles applied server-side
	LoraSyntax     string   // e.g. "<lora:detail:0.8>", appended to the prompt
}

// SDService generates images via the Automatic1111 API.
type SDService struct {
	baseURL  string
	defaults SDDefaults
	client   *http.Client
}

// NewSDService creates a Stable Diffusion client for the given WebUI base
// URL (e.g. "http://localhost:7860").
func NewSDService(baseURL string, defaults SDDefaults) *SDService {
	return &SDService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		defaults: defaults,
		// Checkpoint swaps plus sampling can take a while on modest GPUs.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type txt2imgRequest struct {
	Prompt            string         `json:"prompt"`
	NegativePrompt    string         `json:"negative_prompt"`
	Steps             int            `json:"steps"`
	SamplerIndex      string         `json:"sampler_index"`
	Width             int            `json:"width"`
	Height            int            `json:"height"`
	CFGScale          float64        `json:"cfg_scale"`
	Styles            []string       `json:"styles,omitempty"`
	OverrideSettings  map[string]any `json:"override_settings,omitempty"`
	OverrideRestore   bool           `json:"override_settings_restore_afterwards"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// GenerateImage renders a PNG for the prompt and returns its bytes.
func (s *SDService) GenerateImage(ctx context.Context, prompt string, opts *SDOptions) ([]byte, error) {
	if opts == nil {
		opts = &SDOptions{}
	}

	finalPrompt := prompt
	if opts.LoraSyntax != "" {
		finalPrompt = prompt + ", " + opts.LoraSyntax
	}

	negative := s.defaults.NegativePrompt
	if opts.NegativePrompt != "" {
		negative = opts.NegativePrompt
	}

	// Checkpoint and VAE overrides go through override_settings so the
	// WebUI restores its prior model after the request.
	override := map[string]any{}
	if opts.Checkpoint != "" {
		override["sd_model_checkpoint"] = opts.Checkpoint
	}
	vae := s.defaults.VAE
	if opts.VAE != "" {
		vae = opts.VAE
	}
	if vae != "" {
		override["sd_vae"] = vae
	}

	reqBody := txt2imgRequest{
		Prompt:          finalPrompt,
		NegativePrompt:  negative,
		Steps:           s.defaults.Steps,
		SamplerIndex:    s.defaults.Sampler,
		Width:           s.defaults.Width,
		Height:          s.defaults.Height,
		CFGScale:        s.defaults.CFGScale,
		Styles:          opts.Styles,
		OverrideRestore: true,
	}
	if len(override) > 0 {
		reqBody.OverrideSettings = override
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal txt2img request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create txt2img request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[SD] Generating image (promptLen=%d, steps=%d, checkpoint=%q)",
		len(finalPrompt), s.defaults.Steps, opts.Checkpoint)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("txt2img request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("SD returned status %d: %s", resp.StatusCode, string(body))
	}

	var result txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode txt2img response: %w", err)
	}
	if len(result.Images) == 0 {
		return nil, fmt.Errorf("SD returned no images")
	}

	// Depending on WebUI settings the image may arrive as a data URI
	// ("data:image/png;base64,...") rather than bare base64.
	encoded := result.Images[0]
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}

	imageData, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SD image: %w", err)
	}

	log.Printf("[SD] Image generated (%d bytes)", len(imageData))
	return imageData, nil
}

type sdModel struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
}

// ListCheckpoints returns the checkpoint titles installed in the WebUI.
func (s *SDService) ListCheckpoints(ctx context.Context) ([]string, error) {
	var sdModels []sdModel
	if err := s.getJSON(ctx, "/sdapi/v1/sd-models", &sdModels); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(sdModels))
	for _, m := range sdModels {
		titles = append(titles, m.Title)
	}
	return titles, nil
}

type sdStyle struct {
	Name string `json:"name"`
}

// ListStyles returns the prompt style names defined in the WebUI.
func (s *SDService) ListStyles(ctx context.Context) ([]string, error) {
	var styles []sdStyle
	if err := s.getJSON(ctx, "/sdapi/v1/prompt-styles", &styles); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(styles))
	for _, st := range styles {
		names = append(names, st.Name)
	}
	return names, nil
}

// Ping checks that the WebUI API is up.
func (s *SDService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var options map[string]any
	if err := s.getJSON(ctx, "/sdapi/v1/options", &options); err != nil {
		return fmt.Errorf("SD not reachable: %w", err)
	}
	return nil
}

func (s *SDService) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create SD request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("SD request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SD returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode SD response: %w", err)
	}
	return nil
}
