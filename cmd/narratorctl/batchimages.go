package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitvale/narrator/internal/config"
	"github.com/bitvale/narrator/internal/services"
)

// newBatchImagesCmd creates the "batch-images" command. Transcripts carry
// their image prompt under the "IMAGE PROMPT:" marker, so images lost to a
// crashed WebUI or generated before image support existed can be rebuilt
// from the text files alone.
func newBatchImagesCmd() *cobra.Command {
	var (
		textDir  string
		imageDir string
		sdURL    string
	)

	cmd := &cobra.Command{
		Use:   "batch-images",
		Short: "Generate missing images for existing transcripts",
		Long: `Scan a directory of transcript .txt files, extract the image prompt from
each, and render a .png for every transcript that does not have one yet.
Existing images are never overwritten.

Examples:
  narratorctl batch-images
  narratorctl batch-images --text-dir data --image-dir data --sd-url http://gpu-box:7860`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if textDir == "" {
				textDir = cfg.DataDir
			}
			if imageDir == "" {
				imageDir = cfg.DataDir
			}
			if sdURL == "" {
				sdURL = cfg.SDURL
			}

			sd := services.NewSDService(sdURL, services.SDDefaults{
				Steps:          cfg.SDDefaultSteps,
				Sampler:        cfg.SDDefaultSampler,
				Width:          cfg.SDDefaultWidth,
				Height:         cfg.SDDefaultHeight,
				CFGScale:       cfg.SDDefaultCFGScale,
				NegativePrompt: cfg.SDDefaultNegative,
				VAE:            cfg.SDDefaultVAE,
			})

			entries, err := os.ReadDir(textDir)
			if err != nil {
				return fmt.Errorf("failed to read text directory: %w", err)
			}
			if err := os.MkdirAll(imageDir, 0o755); err != nil {
				return fmt.Errorf("failed to create image directory: %w", err)
			}

			var generated, skippedExisting, skippedNoPrompt, failed int
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
					continue
				}

				basename := strings.TrimSuffix(entry.Name(), ".txt")
				imagePath := filepath.Join(imageDir, basename+".png")
				if _, err := os.Stat(imagePath); err == nil {
					skippedExisting++
					continue
				}

				contents, err := os.ReadFile(filepath.Join(textDir, entry.Name()))
				if err != nil {
					fmt.Printf("  FAIL  %s: %v\n", entry.Name(), err)
					failed++
					continue
				}

				result := services.ExtractStoryAndImagePrompt(string(contents))
				if result.ImagePrompt == "" {
					fmt.Printf("  skip  %s (no image prompt)\n", entry.Name())
					skippedNoPrompt++
					continue
				}

				fmt.Printf("  gen   %s\n", entry.Name())
				imageData, err := sd.GenerateImage(cmd.Context(), result.ImagePrompt, nil)
				if err != nil {
					fmt.Printf("  FAIL  %s: %v\n", entry.Name(), err)
					failed++
					continue
				}
				if err := os.WriteFile(imagePath, imageData, 0o644); err != nil {
					fmt.Printf("  FAIL  %s: %v\n", entry.Name(), err)
					failed++
					continue
				}
				generated++
			}

			fmt.Printf("\nGenerated: %d  Existing: %d  No prompt: %d  Failed: %d\n",
				generated, skippedExisting, skippedNoPrompt, failed)
			if failed > 0 {
				return fmt.Errorf("%d image(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&textDir, "text-dir", "t", "", "directory of transcript .txt files (default: data dir from config)")
	cmd.Flags().StringVarP(&imageDir, "image-dir", "i", "", "directory for generated .png files (default: data dir from config)")
	cmd.Flags().StringVarP(&sdURL, "sd-url", "u", "", "override the Stable Diffusion API URL")

	return cmd
}
