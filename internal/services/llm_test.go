package services

import (
	"strings"
	"testing"
)

func TestExtractStoryAndImagePrompt(t *testing.T) {
	raw := "Once there was a lighthouse.\nIt blinked.\n\nIMAGE PROMPT: a lighthouse on a cliff at dusk, warm light, fog rolling in"
	result := ExtractStoryAndImagePrompt(raw)

	if result.Story != "Once there was a lighthouse.\nIt blinked." {
		t.Errorf("unexpected story: %q", result.Story)
	}
	if result.ImagePrompt != "a lighthouse on a cliff at dusk, warm light, fog rolling in" {
		t.Errorf("unexpected image prompt: %q", result.ImagePrompt)
	}
}

func TestExtractStoryAndImagePromptVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"lowercase marker", "story text\nimage prompt: a scene"},
		{"bold marker", "story text\n**IMAGE PROMPT:** a scene"},
		{"indented marker", "story text\n   Image Prompt : a scene"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ExtractStoryAndImagePrompt(tc.raw)
			if result.Story != "story text" {
				t.Errorf("unexpected story: %q", result.Story)
			}
			if result.ImagePrompt != "a scene" {
				t.Errorf("unexpected image prompt: %q", result.ImagePrompt)
			}
		})
	}
}

func TestExtractStoryWithoutMarker(t *testing.T) {
	result := ExtractStoryAndImagePrompt("  just a story, no picture  ")
	if result.Story != "just a story, no picture" {
		t.Errorf("unexpected story: %q", result.Story)
	}
	if result.ImagePrompt != "" {
		t.Errorf("expected empty image prompt, got %q", result.ImagePrompt)
	}
}

func TestBuildStorySystemPromptModes(t *testing.T) {
	story := buildStorySystemPrompt(ModeStory, "")
	if strings.Contains(story, "in character") {
		t.Error("story mode prompt should not carry a persona")
	}
	if !strings.Contains(story, "IMAGE PROMPT:") {
		t.Error("system prompt must instruct the marker format")
	}

	conv := buildStorySystemPrompt(ModeConversation, "The Clockmaker")
	if !strings.Contains(conv, Characters["The Clockmaker"]) {
		t.Error("conversation mode prompt should carry the persona description")
	}

	// Unknown characters fall back to the default persona.
	fallback := buildStorySystemPrompt(ModeConversation, "Nobody")
	if !strings.Contains(fallback, Characters[DefaultCharacter]) {
		t.Error("unknown character should fall back to the default persona")
	}
}

func TestRandomTopicNonEmpty(t *testing.T) {
	for i := 0; i < 20; i++ {
		topic := RandomTopic()
		if len(strings.Fields(topic)) < 3 {
			t.Errorf("topic too short: %q", topic)
		}
	}
}

func TestCharacterNamesSorted(t *testing.T) {
	names := CharacterNames()
	if len(names) != len(Characters) {
		t.Fatalf("expected %d names, got %d", len(Characters), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
}
