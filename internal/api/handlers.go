package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bitvale/narrator/internal/db"
	"github.com/bitvale/narrator/internal/library"
	"github.com/bitvale/narrator/internal/models"
	"github.com/bitvale/narrator/internal/queue"
	"github.com/bitvale/narrator/internal/services"
)

// Batch size limit for one generation request.
const maxGenerateCount = 50

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	library *library.Library
	llm     *services.OllamaService
	tts     services.TTSService
	sd      *services.SDService

	defaultLLMModel string
}

func NewHandler(
	database *db.DB,
	q *queue.Queue,
	lib *library.Library,
	llmSvc *services.OllamaService,
	ttsSvc services.TTSService,
	sdSvc *services.SDService,
	defaultLLMModel string,
) *Handler {
	return &Handler{
		db:              database,
		queue:           q,
		library:         lib,
		llm:             llmSvc,
		tts:             ttsSvc,
		sd:              sdSvc,
		defaultLLMModel: defaultLLMModel,
	}
}

// CreateNarrations handles POST /v1/narrations
// One request can ask for several narrations of the same prompt; each gets
// its own row and its own queue job.
func (h *Handler) CreateNarrations(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNarrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Prompt == "" {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if req.Speaker == "" {
		respondError(w, http.StatusBadRequest, "Speaker is required")
		return
	}
	if _, err := h.library.SpeakerPath(req.Speaker); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown speaker: %s", req.Speaker))
		return
	}

	mode := models.ModeStory
	if req.Mode != nil {
		switch models.NarrationMode(*req.Mode) {
		case models.ModeStory, models.ModeConversation:
			mode = models.NarrationMode(*req.Mode)
		default:
			respondError(w, http.StatusBadRequest, "Invalid mode. Allowed: story, conversation")
			return
		}
	}

	llmModel := req.LLMModel
	if llmModel == "" {
		llmModel = h.defaultLLMModel
	}

	count := req.Count
	if count < 1 {
		count = 1
	}
	if count > maxGenerateCount {
		count = maxGenerateCount
	}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		narration := &models.Narration{
			ID:             uuid.New(),
			Prompt:         req.Prompt,
			Mode:           mode,
			Character:      narrationCharacter(mode, req.Character),
			Speaker:        req.Speaker,
			LLMModel:       llmModel,
			SDCheckpoint:   req.SDCheckpoint,
			SDVAE:          req.SDVAE,
			SDStyle:        req.SDStyle,
			NegativePrompt: req.NegativePrompt,
			LoraSyntax:     req.LoraSyntax,
			Status:         models.NarrationStatusQueued,
		}

		if err := h.db.CreateNarration(r.Context(), narration); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to create narration")
			return
		}

		jobID := uuid.New()
		job := &models.Job{
			ID:          jobID,
			NarrationID: narration.ID,
			Type:        "generate_narration",
			Status:      models.JobStatusQueued,
		}

		if err := h.db.CreateJob(r.Context(), job); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to create job")
			return
		}

		if err := h.queue.EnqueueGenerateNarration(r.Context(), narration.ID, jobID); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
			return
		}

		ids = append(ids, narration.ID)
	}

	respondJSON(w, http.StatusCreated, models.CreateNarrationResponse{
		NarrationIDs: ids,
		Status:       models.NarrationStatusQueued,
	})
}

// narrationCharacter returns the character to persist. Personas only apply
// to conversation mode; in story mode any submitted character is dropped so
// it cannot leak into the story prompt.
func narrationCharacter(mode models.NarrationMode, character *string) *string {
	if mode != models.ModeConversation {
		return nil
	}
	return character
}

// ListNarrations handles GET /v1/narrations
// Query params:
//   - status: filter by narration status (queued, writing, synthesizing, completed, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListNarrations(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.NarrationStatus(statusFilter) {
		case models.NarrationStatusQueued, models.NarrationStatusWriting,
			models.NarrationStatusSynthesizing, models.NarrationStatusCompleted,
			models.NarrationStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, writing, synthesizing, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountNarrations(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count narrations")
		return
	}

	narrations, err := h.db.ListNarrations(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list narrations")
		return
	}

	responses := make([]models.NarrationResponse, 0, len(narrations))
	for _, n := range narrations {
		responses = append(responses, buildNarrationResponse(n))
	}

	respondJSON(w, http.StatusOK, models.ListNarrationsResponse{
		Narrations: responses,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	})
}

// GetNarration handles GET /v1/narrations/{id}
func (h *Handler) GetNarration(w http.ResponseWriter, r *http.Request) {
	narrationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid narration ID")
		return
	}

	narration, err := h.db.GetNarration(r.Context(), narrationID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Narration not found")
		return
	}

	respondJSON(w, http.StatusOK, buildNarrationResponse(*narration))
}

// DeleteNarration handles DELETE /v1/narrations/{id}
// Removes the database row and the generated files.
func (h *Handler) DeleteNarration(w http.ResponseWriter, r *http.Request) {
	narrationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid narration ID")
		return
	}

	narration, err := h.db.GetNarration(r.Context(), narrationID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Narration not found")
		return
	}

	if narration.Basename != nil {
		if err := h.library.Delete(*narration.Basename); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to delete files")
			return
		}
	}

	if err := h.db.DeleteNarration(r.Context(), narrationID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete narration")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetNarrationJobs handles GET /v1/narrations/{id}/debug/jobs
func (h *Handler) GetNarrationJobs(w http.ResponseWriter, r *http.Request) {
	narrationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid narration ID")
		return
	}

	jobs, err := h.db.GetNarrationJobs(r.Context(), narrationID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

// ListLibrary handles GET /v1/library
func (h *Handler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	entries, err := h.library.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list library")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"files": entries, "count": len(entries)})
}

// ListSpeakers handles GET /v1/speakers
func (h *Handler) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	speakers, err := h.library.Speakers()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list speakers")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"speakers": speakers})
}

// ListLLMModels handles GET /v1/models/llm
func (h *Handler) ListLLMModels(w http.ResponseWriter, r *http.Request) {
	modelNames, err := h.llm.ListModels(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "Ollama unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"models": modelNames, "default": h.defaultLLMModel})
}

// ListSDCheckpoints handles GET /v1/models/sd-checkpoints
func (h *Handler) ListSDCheckpoints(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := h.sd.ListCheckpoints(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "Stable Diffusion unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"checkpoints": checkpoints})
}

// ListSDStyles handles GET /v1/models/sd-styles
func (h *Handler) ListSDStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := h.sd.ListStyles(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "Stable Diffusion unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"styles": styles})
}

// RandomPrompt handles GET /v1/prompts/random
func (h *Handler) RandomPrompt(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"prompt": services.RandomTopic()})
}

// ListPresets handles GET /v1/presets
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.db.ListPresets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list presets")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

// CreatePreset handles POST /v1/presets
// Saving under an existing name overwrites that preset.
func (h *Handler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	preset := &models.Preset{
		ID:       uuid.New(),
		Name:     req.Name,
		Settings: req.Settings,
	}
	if err := h.db.CreatePreset(r.Context(), preset); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save preset")
		return
	}

	respondJSON(w, http.StatusCreated, preset)
}

// GetPreset handles GET /v1/presets/{id}
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	presetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid preset ID")
		return
	}

	preset, err := h.db.GetPreset(r.Context(), presetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Preset not found")
		return
	}
	respondJSON(w, http.StatusOK, preset)
}

// DeletePreset handles DELETE /v1/presets/{id}
func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	presetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid preset ID")
		return
	}

	if err := h.db.DeletePreset(r.Context(), presetID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete preset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// buildNarrationResponse attaches file URLs for whatever exists on disk.
func buildNarrationResponse(n models.Narration) models.NarrationResponse {
	response := models.NarrationResponse{Narration: n}

	if n.Basename == nil {
		return response
	}
	base := *n.Basename

	if n.AudioDurationMs != nil {
		url := fmt.Sprintf("/audio/%s.wav", base)
		response.AudioURL = &url
	}
	textURL := fmt.Sprintf("/text/%s.txt", base)
	response.TextURL = &textURL
	if n.HasImage {
		url := fmt.Sprintf("/image/%s.png", base)
		response.ImageURL = &url
	}

	return response
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
