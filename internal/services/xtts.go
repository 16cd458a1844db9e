package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// XTTS Text-to-Speech Service
// Talks to a local Coqui XTTS sidecar API. The sidecar clones a voice from
// a reference speaker sample and returns WAV audio.
// ---------------------------------------------------------------------------

// XTTSService handles text-to-speech via the XTTS sidecar.
type XTTSService struct {
	baseURL string
	client  *http.Client
}

// Ensure XTTSService implements TTSService at compile time.
var _ TTSService = (*XTTSService)(nil)

// NewXTTSService creates an XTTS client for the given sidecar base URL
// (e.g. "http://localhost:8020").
func NewXTTSService(baseURL string) *XTTSService {
	return &XTTSService{
		baseURL: baseURL,
		// Synthesis of a multi-paragraph story can take minutes on CPU.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type xttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// GenerateSpeech synthesizes text with the given speaker sample.
// Implements the TTSService interface.
func (s *XTTSService) GenerateSpeech(ctx context.Context, text, speaker, language string) (*TTSResponse, error) {
	if language == "" {
		language = "en"
	}

	jsonData, err := json.Marshal(xttsRequest{
		Text:       text,
		SpeakerWav: speaker,
		Language:   language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XTTS request: %w", err)
	}

	url := s.baseURL + "/tts_to_audio/"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create XTTS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[XTTS] Generating speech (speaker=%s, language=%s, textLen=%d)",
		speaker, language, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("XTTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("XTTS returned status %d: %s", resp.StatusCode, string(body))
	}

	// The response body IS the WAV file
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read XTTS audio response: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("XTTS returned empty audio")
	}

	durationMs, err := wavDurationMs(audioData)
	if err != nil {
		return nil, fmt.Errorf("XTTS returned malformed WAV: %w", err)
	}

	log.Printf("[XTTS] Speech generated (%d bytes, %dms)", len(audioData), durationMs)

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: durationMs,
		Format:     "wav",
	}, nil
}

// ListSpeakers returns the speaker names known to the sidecar.
func (s *XTTSService) ListSpeakers(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/speakers_list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create XTTS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("XTTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("XTTS returned status %d: %s", resp.StatusCode, string(body))
	}

	var speakers []string
	if err := json.NewDecoder(resp.Body).Decode(&speakers); err != nil {
		return nil, fmt.Errorf("failed to decode XTTS speakers: %w", err)
	}
	return speakers, nil
}

// Ping checks that the sidecar is up.
func (s *XTTSService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/speakers_list", nil)
	if err != nil {
		return fmt.Errorf("failed to create XTTS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("XTTS not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("XTTS returned status %d", resp.StatusCode)
	}
	return nil
}
