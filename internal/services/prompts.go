package services

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Prompt construction for story generation, plus the random topic roller
// behind the "surprise me" button.
// ---------------------------------------------------------------------------

const (
	ModeStory        = "story"
	ModeConversation = "conversation"

	DefaultCharacter = "The Old Lighthouse Keeper"
)

// Characters maps a character name to the persona description injected into
// conversation-mode prompts.
var Characters = map[string]string{
	"The Old Lighthouse Keeper": "a weathered lighthouse keeper in his seventies who has seen too many storms and speaks in slow, salt-worn sentences",
	"The Night Radio Host":      "a late-night radio host with a velvet voice who treats every listener like the only person awake in the city",
	"The Retired Detective":     "a retired detective who cannot stop noticing details and narrates everything like an unsolved case",
	"The Wandering Botanist":    "a cheerful botanist who has walked every continent and relates everything back to plants and patience",
	"The Clockmaker":            "an elderly clockmaker who measures life in ticks and believes every mechanism has a soul",
}

// CharacterNames returns the available character names, sorted.
func CharacterNames() []string {
	names := make([]string, 0, len(Characters))
	for name := range Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildStorySystemPrompt(mode, character string) string {
	base := `You are a storyteller writing short narrations meant to be read aloud by a text-to-speech engine.

Rules:
- Write 3 to 5 paragraphs of flowing prose. No headings, no lists, no stage directions.
- Use plain punctuation only. No markdown, no emoji, no asterisks.
- Short sentences read better than long ones. Vary the rhythm.
- After the narration, on its own line, write exactly "IMAGE PROMPT:" followed by a single detailed scene description suitable for an image generation model: subject, setting, lighting, atmosphere.`

	if mode == ModeConversation {
		persona, ok := Characters[character]
		if !ok {
			persona = Characters[DefaultCharacter]
		}
		return base + fmt.Sprintf(`

You speak as %s. Stay in character for the entire narration: their vocabulary, their pacing, their way of seeing the world. The narration is a monologue addressed directly to the listener.`, persona)
	}

	return base
}

func buildStoryUserPrompt(topic, mode, character string) string {
	if mode == ModeConversation {
		name := character
		if _, ok := Characters[name]; !ok {
			name = DefaultCharacter
		}
		return fmt.Sprintf("As %s, talk to me about: %s", name, topic)
	}
	return fmt.Sprintf("Tell me a story about: %s", topic)
}

var (
	topicAdjectives = []string{
		"a forgotten", "an impossible", "the last", "a midnight",
		"an unlikely", "a hidden", "the first", "a slowly vanishing",
	}
	topicSubjects = []string{
		"library", "lighthouse", "train station", "observatory",
		"garden", "radio signal", "mapmaker", "orchestra", "archive",
	}
	topicSettings = []string{
		"at the edge of the sea", "beneath a sleeping city",
		"in the far north", "on the longest night of the year",
		"where two rivers meet", "after the rain finally stops",
		"that only appears in winter",
	}
)

// RandomTopic rolls a story topic from the adjective/subject/setting tables.
func RandomTopic() string {
	return strings.Join([]string{
		topicAdjectives[rand.Intn(len(topicAdjectives))],
		topicSubjects[rand.Intn(len(topicSubjects))],
		topicSettings[rand.Intn(len(topicSettings))],
	}, " ")
}
