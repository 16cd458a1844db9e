package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers
// The worker only needs synthesized audio plus its duration; the XTTS
// sidecar is the default provider.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int
	Format     string // "wav", "mp3", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// GenerateSpeech converts text to audio. speaker names a reference
	// voice sample known to the provider; language is an ISO 639-1 code.
	GenerateSpeech(ctx context.Context, text, speaker, language string) (*TTSResponse, error)

	// ListSpeakers returns the voice names the provider can synthesize with.
	ListSpeakers(ctx context.Context) ([]string, error)

	// Ping reports whether the provider is reachable.
	Ping(ctx context.Context) error
}
