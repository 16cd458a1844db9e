package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Ollama (LLM for story and image-prompt writing)
	OllamaURL          string
	OllamaDefaultModel string

	// XTTS sidecar (speech synthesis)
	TTSURL          string
	DefaultLanguage string

	// Stable Diffusion (Automatic1111 web API)
	SDURL             string
	SDDefaultSteps    int
	SDDefaultSampler  string
	SDDefaultWidth    int
	SDDefaultHeight   int
	SDDefaultCFGScale float64
	SDDefaultNegative string
	SDDefaultVAE      string

	// Library (generated files and speaker samples)
	DataDir    string
	SpeakerDir string

	// Sidecar environment manifest (validated by `narratorctl doctor`)
	SidecarManifest string

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "7861"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		OllamaURL:          getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaDefaultModel: getEnv("OLLAMA_DEFAULT_MODEL", "llama3.1:8b"),
		TTSURL:             getEnv("TTS_URL", "http://localhost:8020"),
		DefaultLanguage:    getEnv("TTS_LANGUAGE", "en"),
		SDURL:              getEnv("SD_URL", "http://localhost:7860"),
		SDDefaultSteps:     getEnvInt("SD_STEPS", 28),
		SDDefaultSampler:   getEnv("SD_SAMPLER", "DPM++ 2M Karras"),
		SDDefaultWidth:     getEnvInt("SD_WIDTH", 768),
		SDDefaultHeight:    getEnvInt("SD_HEIGHT", 768),
		SDDefaultCFGScale:  getEnvFloat("SD_CFG_SCALE", 7.0),
		SDDefaultNegative:  getEnv("SD_NEGATIVE_PROMPT", "lowres, bad anatomy, text, watermark, blurry"),
		SDDefaultVAE:       getEnv("SD_VAE", ""),
		DataDir:            getEnv("DATA_DIR", "data"),
		SpeakerDir:         getEnv("SPEAKER_DIR", "speakers"),
		SidecarManifest:    getEnv("SIDECAR_MANIFEST", "sidecar/requirements.txt"),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
