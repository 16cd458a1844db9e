package library

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const thumbWidth = 256

func thumbPath(dataDir, basename string) string {
	return filepath.Join(dataDir, basename+".thumb.png")
}

// Thumbnail returns the path of a cached 256px-wide thumbnail for a
// basename's image, generating it on first use. The thumbnail lives next
// to the full image as <base>.thumb.png.
func (l *Library) Thumbnail(basename string) (string, error) {
	src := l.ImagePath(basename)
	if !fileExists(src) {
		return "", fmt.Errorf("image for %q not found", basename)
	}

	thumb := thumbPath(l.dataDir, basename)
	if fresh, err := thumbFresh(src, thumb); err == nil && fresh {
		return thumb, nil
	}

	img, err := imaging.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}

	resized := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(resized, thumb); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return thumb, nil
}

// thumbFresh reports whether the cached thumbnail is newer than its source.
func thumbFresh(src, thumb string) (bool, error) {
	thumbInfo, err := os.Stat(thumb)
	if err != nil {
		return false, err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	return !thumbInfo.ModTime().Before(srcInfo.ModTime()), nil
}
