package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bitvale/narrator/internal/library"
	"github.com/bitvale/narrator/internal/models"
	"github.com/bitvale/narrator/internal/queue"
	"github.com/bitvale/narrator/internal/services"
)

// Store is the slice of the database the worker needs. *db.DB satisfies it.
type Store interface {
	GetNarration(ctx context.Context, id uuid.UUID) (*models.Narration, error)
	UpdateNarrationStatus(ctx context.Context, id uuid.UUID, status models.NarrationStatus) error
	UpdateNarrationError(ctx context.Context, id uuid.UUID, errorMessage string) error
	SetNarrationBasename(ctx context.Context, id uuid.UUID, basename string) error
	SetNarrationAudio(ctx context.Context, id uuid.UUID, durationMs int) error
	SetNarrationImage(ctx context.Context, id uuid.UUID, hasImage bool) error
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// StoryGenerator produces the story text. *services.OllamaService satisfies it.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, topic, mode, character, model string) (*services.StoryResult, error)
}

// ImageGenerator renders the illustration. *services.SDService satisfies it.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, opts *services.SDOptions) ([]byte, error)
}

type Worker struct {
	db       Store
	queue    *queue.Queue
	library  *library.Library
	llm      StoryGenerator
	tts      services.TTSService
	sd       ImageGenerator
	language string // ISO 639-1 code passed to TTS
}

func New(
	database Store,
	q *queue.Queue,
	lib *library.Library,
	llmSvc StoryGenerator,
	ttsSvc services.TTSService,
	sdSvc ImageGenerator,
	language string,
) *Worker {
	return &Worker{
		db:       database,
		queue:    q,
		library:  lib,
		llm:      llmSvc,
		tts:      ttsSvc,
		sd:       sdSvc,
		language: language,
	}
}

// Start begins draining the generation queue
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueGenerateNarration, w.handleGenerateNarration)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (type: %s, narration: %s)", job.ID, job.Type, job.NarrationID)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// handleGenerateNarration runs the full pipeline for one narration:
// story generation, then audio and image in parallel. Any fatal step marks
// the narration failed before returning, so clients never see a narration
// stuck in an intermediate status.
func (w *Worker) handleGenerateNarration(ctx context.Context, job *queue.Job) error {
	narration, err := w.db.GetNarration(ctx, job.NarrationID)
	if err != nil {
		return fmt.Errorf("failed to get narration: %w", err)
	}

	// ── Stage 1: story ─────────────────────────────────────────────────
	if err := w.db.UpdateNarrationStatus(ctx, narration.ID, models.NarrationStatusWriting); err != nil {
		return fmt.Errorf("failed to update narration status: %w", err)
	}

	character := ""
	if narration.Character != nil {
		character = *narration.Character
	}

	log.Printf("Narration %s: generating story...", narration.ID)
	story, err := w.llm.GenerateStory(ctx, narration.Prompt, string(narration.Mode), character, narration.LLMModel)
	if err != nil {
		w.db.UpdateNarrationError(ctx, narration.ID, fmt.Sprintf("Story generation failed: %v", err))
		return fmt.Errorf("failed to generate story: %w", err)
	}

	basename := w.library.NewBasename()
	if err := w.library.SaveText(basename, transcriptContents(story)); err != nil {
		w.db.UpdateNarrationError(ctx, narration.ID, fmt.Sprintf("Saving transcript failed: %v", err))
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	if err := w.db.SetNarrationBasename(ctx, narration.ID, basename); err != nil {
		w.db.UpdateNarrationError(ctx, narration.ID, fmt.Sprintf("Storing basename failed: %v", err))
		return fmt.Errorf("failed to store basename: %w", err)
	}

	// ── Stage 2: audio + image in parallel ─────────────────────────────
	// Audio is the product; its failure fails the narration. The image is
	// decoration, so its failure only logs.
	if err := w.db.UpdateNarrationStatus(ctx, narration.ID, models.NarrationStatusSynthesizing); err != nil {
		return fmt.Errorf("failed to update narration status: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Narration %s: synthesizing audio...", narration.ID)
		audio, err := w.tts.GenerateSpeech(gctx, story.Story, narration.Speaker, w.language)
		if err != nil {
			w.db.UpdateNarrationError(gctx, narration.ID, fmt.Sprintf("TTS failed: %v", err))
			return fmt.Errorf("failed to synthesize audio: %w", err)
		}
		if err := w.library.SaveAudio(basename, audio.AudioData); err != nil {
			w.db.UpdateNarrationError(gctx, narration.ID, fmt.Sprintf("Saving audio failed: %v", err))
			return fmt.Errorf("failed to save audio: %w", err)
		}
		if err := w.db.SetNarrationAudio(gctx, narration.ID, audio.DurationMs); err != nil {
			w.db.UpdateNarrationError(gctx, narration.ID, fmt.Sprintf("Storing audio metadata failed: %v", err))
			return fmt.Errorf("failed to store audio metadata: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if story.ImagePrompt == "" || w.sd == nil {
			return nil
		}

		log.Printf("Narration %s: generating image...", narration.ID)
		opts := &services.SDOptions{}
		if narration.NegativePrompt != nil {
			opts.NegativePrompt = *narration.NegativePrompt
		}
		if narration.SDCheckpoint != nil {
			opts.Checkpoint = *narration.SDCheckpoint
		}
		if narration.SDVAE != nil {
			opts.VAE = *narration.SDVAE
		}
		if narration.SDStyle != nil && *narration.SDStyle != "" {
			opts.Styles = []string{*narration.SDStyle}
		}
		if narration.LoraSyntax != nil {
			opts.LoraSyntax = *narration.LoraSyntax
		}

		imageData, err := w.sd.GenerateImage(gctx, story.ImagePrompt, opts)
		if err != nil {
			log.Printf("Narration %s: image generation failed, continuing without image: %v", narration.ID, err)
			return nil
		}
		if err := w.library.SaveImage(basename, imageData); err != nil {
			log.Printf("Narration %s: failed to save image: %v", narration.ID, err)
			return nil
		}
		if err := w.db.SetNarrationImage(gctx, narration.ID, true); err != nil {
			log.Printf("Narration %s: failed to record image: %v", narration.ID, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("narration processing failed: %w", err)
	}

	log.Printf("Narration %s: completed (basename=%s)", narration.ID, basename)
	return w.db.UpdateNarrationStatus(ctx, narration.ID, models.NarrationStatusCompleted)
}

// transcriptContents renders the saved .txt file. The image prompt rides
// along under its marker so batch image regeneration can recover it later.
func transcriptContents(story *services.StoryResult) string {
	if story.ImagePrompt == "" {
		return story.Story
	}
	return story.Story + "\n\nIMAGE PROMPT: " + story.ImagePrompt
}
