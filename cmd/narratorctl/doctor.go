package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitvale/narrator/internal/config"
	"github.com/bitvale/narrator/internal/db"
	"github.com/bitvale/narrator/internal/library"
	"github.com/bitvale/narrator/internal/manifest"
	"github.com/bitvale/narrator/internal/queue"
	"github.com/bitvale/narrator/internal/services"
)

// newDoctorCmd creates the "doctor" command: one pass over everything the
// service depends on, reporting each check without stopping at the first
// failure.
func newDoctorCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment the narrator service depends on",
		Long: `Check every dependency of the narrator service: the sidecar requirements
manifest, Postgres, Redis, Ollama, the XTTS sidecar, the Stable Diffusion
API, and the speaker samples. Exits non-zero if any check fails.

Examples:
  narratorctl doctor
  narratorctl doctor --manifest sidecar/requirements.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if manifestPath == "" {
				manifestPath = cfg.SidecarManifest
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			failures := 0
			check := func(name string, err error) {
				if err != nil {
					failures++
					fmt.Printf("  FAIL  %-22s %v\n", name, err)
					return
				}
				fmt.Printf("  ok    %s\n", name)
			}

			fmt.Println("Checking narrator environment...")

			check("sidecar manifest", checkManifest(manifestPath))
			check("postgres", checkDatabase(cfg.DatabaseURL))
			check("redis", checkQueue(cfg.RedisURL))

			llm := services.NewOllamaService(cfg.OllamaURL, cfg.OllamaDefaultModel)
			check("ollama", llm.Ping(ctx))

			tts := services.NewXTTSService(cfg.TTSURL)
			check("xtts sidecar", tts.Ping(ctx))

			sd := services.NewSDService(cfg.SDURL, services.SDDefaults{})
			check("stable diffusion", sd.Ping(ctx))

			check("speaker samples", checkSpeakers(cfg.DataDir, cfg.SpeakerDir))

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Println("All checks passed.")
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the sidecar requirements manifest (default from config)")

	return cmd
}

// checkManifest verifies that every non-comment line of the sidecar manifest
// parses as a requirement specifier.
func checkManifest(path string) error {
	m, err := manifest.ParseFile(path)
	if err != nil {
		return err
	}
	if !m.Valid() {
		return fmt.Errorf("%d malformed line(s), first: %v", len(m.Errors), m.Errors[0])
	}

	active := 0
	for _, req := range m.Requirements {
		if !req.Deferred {
			active++
		}
	}
	if active == 0 {
		return fmt.Errorf("manifest has no active requirements")
	}
	return nil
}

func checkDatabase(databaseURL string) error {
	database, err := db.New(databaseURL)
	if err != nil {
		return err
	}
	return database.Close()
}

func checkQueue(redisURL string) error {
	q, err := queue.New(redisURL)
	if err != nil {
		return err
	}
	return q.Close()
}

func checkSpeakers(dataDir, speakerDir string) error {
	lib, err := library.New(dataDir, speakerDir)
	if err != nil {
		return err
	}
	speakers, err := lib.Speakers()
	if err != nil {
		return err
	}
	if len(speakers) == 0 {
		return fmt.Errorf("no .wav samples in %s", speakerDir)
	}
	return nil
}
