package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/bitvale/narrator/internal/library"
	"github.com/bitvale/narrator/internal/models"
	"github.com/bitvale/narrator/internal/queue"
	"github.com/bitvale/narrator/internal/services"
)

// fakeStore records status transitions and error messages in memory. The
// audio and image goroutines touch it concurrently, hence the mutex.
type fakeStore struct {
	mu        sync.Mutex
	narration *models.Narration

	statuses    []models.NarrationStatus
	errMessages []string
	basename    string
	audioMs     int
	hasImage    bool

	basenameErr error
	audioErr    error
	imageErr    error
}

func (s *fakeStore) GetNarration(ctx context.Context, id uuid.UUID) (*models.Narration, error) {
	return s.narration, nil
}

func (s *fakeStore) UpdateNarrationStatus(ctx context.Context, id uuid.UUID, status models.NarrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeStore) UpdateNarrationError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, models.NarrationStatusFailed)
	s.errMessages = append(s.errMessages, errorMessage)
	return nil
}

func (s *fakeStore) SetNarrationBasename(ctx context.Context, id uuid.UUID, basename string) error {
	if s.basenameErr != nil {
		return s.basenameErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basename = basename
	return nil
}

func (s *fakeStore) SetNarrationAudio(ctx context.Context, id uuid.UUID, durationMs int) error {
	if s.audioErr != nil {
		return s.audioErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioMs = durationMs
	return nil
}

func (s *fakeStore) SetNarrationImage(ctx context.Context, id uuid.UUID, hasImage bool) error {
	if s.imageErr != nil {
		return s.imageErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasImage = hasImage
	return nil
}

func (s *fakeStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	return nil
}

func (s *fakeStore) UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return nil
}

func (s *fakeStore) lastStatus() models.NarrationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

type fakeLLM struct {
	result *services.StoryResult
	err    error
}

func (f *fakeLLM) GenerateStory(ctx context.Context, topic, mode, character, model string) (*services.StoryResult, error) {
	return f.result, f.err
}

type fakeTTS struct {
	err error
}

func (f *fakeTTS) GenerateSpeech(ctx context.Context, text, speaker, language string) (*services.TTSResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.TTSResponse{AudioData: []byte("RIFFdata"), DurationMs: 4200, Format: "wav"}, nil
}

func (f *fakeTTS) ListSpeakers(ctx context.Context) ([]string, error) {
	return []string{"calm_female"}, nil
}

func (f *fakeTTS) Ping(ctx context.Context) error { return nil }

type fakeSD struct {
	err error
}

func (f *fakeSD) GenerateImage(ctx context.Context, prompt string, opts *services.SDOptions) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}

func newTestNarration() *models.Narration {
	return &models.Narration{
		ID:       uuid.New(),
		Prompt:   "a storm at sea",
		Mode:     models.ModeStory,
		Speaker:  "calm_female",
		LLMModel: "llama3.1:8b",
		Status:   models.NarrationStatusQueued,
	}
}

func newTestWorker(t *testing.T, store *fakeStore, llm StoryGenerator, tts services.TTSService, sd ImageGenerator) (*Worker, *library.Library) {
	t.Helper()
	dir := t.TempDir()
	lib, err := library.New(filepath.Join(dir, "data"), filepath.Join(dir, "speakers"))
	if err != nil {
		t.Fatalf("library.New: %v", err)
	}
	return New(store, nil, lib, llm, tts, sd, "en"), lib
}

func TestHandleGenerateNarrationCompletes(t *testing.T) {
	store := &fakeStore{narration: newTestNarration()}
	llm := &fakeLLM{result: &services.StoryResult{Story: "The sea rose.", ImagePrompt: "a storm"}}
	w, lib := newTestWorker(t, store, llm, &fakeTTS{}, &fakeSD{})

	job := &queue.Job{ID: uuid.New(), NarrationID: store.narration.ID}
	if err := w.handleGenerateNarration(context.Background(), job); err != nil {
		t.Fatalf("handleGenerateNarration: %v", err)
	}

	if got := store.lastStatus(); got != models.NarrationStatusCompleted {
		t.Errorf("final status = %q, want %q", got, models.NarrationStatusCompleted)
	}
	if store.audioMs != 4200 {
		t.Errorf("audio duration = %d, want 4200", store.audioMs)
	}
	if !store.hasImage {
		t.Error("expected image to be recorded")
	}

	text, err := os.ReadFile(lib.TextPath(store.basename))
	if err != nil {
		t.Fatalf("reading transcript: %v", err)
	}
	if !strings.Contains(string(text), "IMAGE PROMPT: a storm") {
		t.Errorf("transcript missing image prompt marker: %q", text)
	}
	if _, err := os.Stat(lib.AudioPath(store.basename)); err != nil {
		t.Errorf("audio file not written: %v", err)
	}
	if _, err := os.Stat(lib.ImagePath(store.basename)); err != nil {
		t.Errorf("image file not written: %v", err)
	}
}

func TestHandleGenerateNarrationBasenameFailureMarksFailed(t *testing.T) {
	store := &fakeStore{
		narration:   newTestNarration(),
		basenameErr: errors.New("connection reset"),
	}
	llm := &fakeLLM{result: &services.StoryResult{Story: "The sea rose."}}
	w, _ := newTestWorker(t, store, llm, &fakeTTS{}, nil)

	job := &queue.Job{ID: uuid.New(), NarrationID: store.narration.ID}
	if err := w.handleGenerateNarration(context.Background(), job); err == nil {
		t.Fatal("expected error, got nil")
	}

	if got := store.lastStatus(); got != models.NarrationStatusFailed {
		t.Errorf("final status = %q, want %q", got, models.NarrationStatusFailed)
	}
	if len(store.errMessages) == 0 || !strings.Contains(store.errMessages[0], "basename") {
		t.Errorf("expected basename error message, got %v", store.errMessages)
	}
}

func TestHandleGenerateNarrationAudioMetadataFailureMarksFailed(t *testing.T) {
	store := &fakeStore{
		narration: newTestNarration(),
		audioErr:  errors.New("connection reset"),
	}
	llm := &fakeLLM{result: &services.StoryResult{Story: "The sea rose."}}
	w, _ := newTestWorker(t, store, llm, &fakeTTS{}, nil)

	job := &queue.Job{ID: uuid.New(), NarrationID: store.narration.ID}
	if err := w.handleGenerateNarration(context.Background(), job); err == nil {
		t.Fatal("expected error, got nil")
	}

	if got := store.lastStatus(); got != models.NarrationStatusFailed {
		t.Errorf("final status = %q, want %q", got, models.NarrationStatusFailed)
	}
}

func TestHandleGenerateNarrationTTSFailureMarksFailed(t *testing.T) {
	store := &fakeStore{narration: newTestNarration()}
	llm := &fakeLLM{result: &services.StoryResult{Story: "The sea rose."}}
	w, _ := newTestWorker(t, store, llm, &fakeTTS{err: errors.New("speaker not found")}, nil)

	job := &queue.Job{ID: uuid.New(), NarrationID: store.narration.ID}
	if err := w.handleGenerateNarration(context.Background(), job); err == nil {
		t.Fatal("expected error, got nil")
	}

	if got := store.lastStatus(); got != models.NarrationStatusFailed {
		t.Errorf("final status = %q, want %q", got, models.NarrationStatusFailed)
	}
}

func TestHandleGenerateNarrationImageFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{narration: newTestNarration()}
	llm := &fakeLLM{result: &services.StoryResult{Story: "The sea rose.", ImagePrompt: "a storm"}}
	w, _ := newTestWorker(t, store, llm, &fakeTTS{}, &fakeSD{err: errors.New("sd offline")})

	job := &queue.Job{ID: uuid.New(), NarrationID: store.narration.ID}
	if err := w.handleGenerateNarration(context.Background(), job); err != nil {
		t.Fatalf("handleGenerateNarration: %v", err)
	}

	if got := store.lastStatus(); got != models.NarrationStatusCompleted {
		t.Errorf("final status = %q, want %q", got, models.NarrationStatusCompleted)
	}
	if store.hasImage {
		t.Error("image should not be recorded when generation fails")
	}
}
