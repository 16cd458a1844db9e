package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type NarrationStatus string

const (
	NarrationStatusQueued       NarrationStatus = "queued"
	NarrationStatusWriting      NarrationStatus = "writing"
	NarrationStatusSynthesizing NarrationStatus = "synthesizing"
	NarrationStatusCompleted    NarrationStatus = "completed"
	NarrationStatusFailed       NarrationStatus = "failed"
)

type NarrationMode string

const (
	ModeStory        NarrationMode = "story"
	ModeConversation NarrationMode = "conversation"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

// Narration is one generated story: a WAV narration, its source text, and
// (usually) a companion image, all sharing Basename in the library.
type Narration struct {
	ID              uuid.UUID       `json:"id"`
	Prompt          string          `json:"prompt"`
	Mode            NarrationMode   `json:"mode"`
	Character       *string         `json:"character,omitempty"` // conversation mode only
	Speaker         string          `json:"speaker"`             // reference sample filename
	LLMModel        string          `json:"llm_model"`
	SDCheckpoint    *string         `json:"sd_checkpoint,omitempty"`
	SDVAE           *string         `json:"sd_vae,omitempty"`
	SDStyle         *string         `json:"sd_style,omitempty"`
	NegativePrompt  *string         `json:"negative_prompt,omitempty"`
	LoraSyntax      *string         `json:"lora_syntax,omitempty"`
	Status          NarrationStatus `json:"status"`
	Basename        *string         `json:"basename,omitempty"` // set once the text file is written
	AudioDurationMs *int            `json:"audio_duration_ms,omitempty"`
	HasImage        bool            `json:"has_image"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	NarrationID  uuid.UUID  `json:"narration_id"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Preset is a saved bundle of generation settings, applied client-side when
// filling the generation form.
type Preset struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Settings  JSONB     `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DTOs for API responses

type NarrationResponse struct {
	Narration
	AudioURL *string `json:"audio_url,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
	TextURL  *string `json:"text_url,omitempty"`
}

type ListNarrationsResponse struct {
	Narrations []NarrationResponse `json:"narrations"`
	Total      int                 `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

type CreateNarrationRequest struct {
	Prompt         string  `json:"prompt"`
	Count          int     `json:"count"`           // clamped to 1..50
	Speaker        string  `json:"speaker"`         // required
	Mode           *string `json:"mode,omitempty"`  // "story" (default) or "conversation"
	Character      *string `json:"character,omitempty"`
	LLMModel       string  `json:"llm_model"`       // empty = server default
	SDCheckpoint   *string `json:"sd_checkpoint,omitempty"`
	SDVAE          *string `json:"sd_vae,omitempty"`
	SDStyle        *string `json:"sd_style,omitempty"`
	NegativePrompt *string `json:"negative_prompt,omitempty"`
	LoraSyntax     *string `json:"lora_syntax,omitempty"`
}

type CreateNarrationResponse struct {
	NarrationIDs []uuid.UUID     `json:"narration_ids"`
	Status       NarrationStatus `json:"status"`
}

type CreatePresetRequest struct {
	Name     string `json:"name"`
	Settings JSONB  `json:"settings"`
}

// LibraryEntry mirrors one on-disk generation triple, independent of any
// database row (files may predate the database).
type LibraryEntry struct {
	Basename   string    `json:"basename"`
	AudioFile  string    `json:"audio_file"`
	HasImage   bool      `json:"has_image"`
	HasText    bool      `json:"has_text"`
	ModifiedAt time.Time `json:"modified_at"`
}
