// Package library manages the generated-file store on local disk. Each
// narration produces up to three files sharing a basename: <base>.wav,
// <base>.txt, and <base>.png.
package library

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitvale/narrator/internal/models"
)

// Library is the on-disk store for generated narrations plus the speaker
// reference samples used for voice cloning.
type Library struct {
	dataDir    string
	speakerDir string

	mu      sync.RWMutex
	entries []models.LibraryEntry
	stale   bool
}

// New creates the data and speaker directories if needed and returns a
// Library rooted at them.
func New(dataDir, speakerDir string) (*Library, error) {
	for _, dir := range []string{dataDir, speakerDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Library{
		dataDir:    dataDir,
		speakerDir: speakerDir,
		stale:      true,
	}, nil
}

// DataDir returns the directory holding generated files.
func (l *Library) DataDir() string { return l.dataDir }

// NewBasename returns a fresh basename for a narration's file triple,
// e.g. "20260826-153002-1a2b3c4d". The timestamp prefix keeps directory
// listings roughly chronological; the uuid fragment avoids collisions when
// several narrations are generated in the same second.
func (l *Library) NewBasename() string {
	return fmt.Sprintf("%s-%s",
		time.Now().Format("20060102-150405"),
		uuid.New().String()[:8])
}

// AudioPath returns the path of the narration audio for a basename.
func (l *Library) AudioPath(basename string) string {
	return filepath.Join(l.dataDir, basename+".wav")
}

// TextPath returns the path of the narration transcript for a basename.
func (l *Library) TextPath(basename string) string {
	return filepath.Join(l.dataDir, basename+".txt")
}

// ImagePath returns the path of the narration image for a basename.
func (l *Library) ImagePath(basename string) string {
	return filepath.Join(l.dataDir, basename+".png")
}

// SaveAudio writes WAV bytes for a basename.
func (l *Library) SaveAudio(basename string, data []byte) error {
	return l.save(l.AudioPath(basename), data)
}

// SaveText writes the transcript for a basename.
func (l *Library) SaveText(basename, text string) error {
	return l.save(l.TextPath(basename), []byte(text))
}

// SaveImage writes PNG bytes for a basename.
func (l *Library) SaveImage(basename string, data []byte) error {
	return l.save(l.ImagePath(basename), data)
}

func (l *Library) save(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	l.Invalidate()
	return nil
}

// Invalidate marks the cached listing stale. The fsnotify watcher calls
// this when files appear or disappear underneath us.
func (l *Library) Invalidate() {
	l.mu.Lock()
	l.stale = true
	l.mu.Unlock()
}

// List returns the library entries newest first. The listing is cached
// and rebuilt only after an Invalidate.
func (l *Library) List() ([]models.LibraryEntry, error) {
	l.mu.RLock()
	if !l.stale {
		entries := l.entries
		l.mu.RUnlock()
		return entries, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.stale {
		return l.entries, nil
	}

	entries, err := l.scan()
	if err != nil {
		return nil, err
	}
	l.entries = entries
	l.stale = false
	return entries, nil
}

func (l *Library) scan() ([]models.LibraryEntry, error) {
	dirEntries, err := os.ReadDir(l.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	entries := make([]models.LibraryEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".wav") {
			continue
		}
		basename := strings.TrimSuffix(de.Name(), ".wav")
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, models.LibraryEntry{
			Basename:   basename,
			AudioFile:  de.Name(),
			HasImage:   fileExists(l.ImagePath(basename)),
			HasText:    fileExists(l.TextPath(basename)),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
	})
	return entries, nil
}

// Delete removes the file triple for a basename. Missing files are not an
// error; any other failure aborts with the file that caused it.
func (l *Library) Delete(basename string) error {
	paths := []string{
		l.AudioPath(basename),
		l.TextPath(basename),
		l.ImagePath(basename),
		thumbPath(l.dataDir, basename),
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), err)
		}
	}
	l.Invalidate()
	log.Printf("[Library] Deleted files for %s", basename)
	return nil
}

// Speakers returns the available speaker sample names (without the .wav
// extension), sorted alphabetically.
func (l *Library) Speakers() ([]string, error) {
	dirEntries, err := os.ReadDir(l.speakerDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read speaker directory: %w", err)
	}

	speakers := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".wav") {
			continue
		}
		speakers = append(speakers, strings.TrimSuffix(de.Name(), ".wav"))
	}
	sort.Strings(speakers)
	return speakers, nil
}

// SpeakerPath returns the path of a speaker sample, or an error if the
// sample does not exist.
func (l *Library) SpeakerPath(name string) (string, error) {
	path := filepath.Join(l.speakerDir, name+".wav")
	if !fileExists(path) {
		return "", fmt.Errorf("speaker %q not found", name)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
