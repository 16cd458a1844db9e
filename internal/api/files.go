package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Generated-file serving. Each route only serves its own file type from the
// data directory; anything with a path separator or an extension outside
// its allow-list is rejected rather than resolved.

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

func (h *Handler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !safeFilename(filename) || filepath.Ext(filename) != ".wav" {
		respondError(w, http.StatusBadRequest, "Invalid audio filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(h.library.DataDir(), filename))
}

func (h *Handler) ServeText(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !safeFilename(filename) || filepath.Ext(filename) != ".txt" {
		respondError(w, http.StatusBadRequest, "Invalid text filename")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, filepath.Join(h.library.DataDir(), filename))
}

func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !safeFilename(filename) || !imageExtensions[filepath.Ext(filename)] {
		respondError(w, http.StatusBadRequest, "Invalid image filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(h.library.DataDir(), filename))
}

// ServeThumbnail serves a cached small rendition of a generated image,
// building it on first request. Thumbnails only exist for the .png files
// the worker writes.
func (h *Handler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !safeFilename(filename) || filepath.Ext(filename) != ".png" {
		respondError(w, http.StatusBadRequest, "Invalid image filename")
		return
	}

	thumb, err := h.library.Thumbnail(strings.TrimSuffix(filename, ".png"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Thumbnail not available")
		return
	}
	http.ServeFile(w, r, thumb)
}

// safeFilename rejects names that could escape the data directory.
func safeFilename(filename string) bool {
	if filename == "" || filename == "." || filename == ".." {
		return false
	}
	if strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return false
	}
	// The name without its extension must be non-empty.
	return strings.TrimSuffix(filename, filepath.Ext(filename)) != ""
}
