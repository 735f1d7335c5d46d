// Package prompt renders chat transcripts in the Phi-3 instruct format and
// owns the per-task generation defaults shared by every endpoint.
package prompt

import (
	"strings"

	"tutord/internal/session"
)

// Kind selects the system instruction and generation defaults for a request.
type Kind string

const (
	KindDebug   Kind = "debug"
	KindReview  Kind = "review"
	KindHint    Kind = "hint"
	KindTest    Kind = "test"
	KindExplain Kind = "explain"
	KindGuide   Kind = "guide"
	KindChat    Kind = "chat"
)

// Chat format markers understood by the Phi-3 family.
const (
	tagSystem    = "<|system|>"
	tagUser      = "<|user|>"
	tagAssistant = "<|assistant|>"
	tagEnd       = "<|end|>"
)

// StopMarkers end generation at a turn boundary or role switch.
var StopMarkers = []string{"</s>", tagEnd, tagUser}

// HistoryWindow is the number of most recent turns included in a transcript.
const HistoryWindow = 6

// Spec bundles the per-kind system instruction and generation defaults.
type Spec struct {
	System string
	// Default token budget when the caller does not request one.
	MaxTokens int
	// Temperature is fixed per kind, not caller controlled.
	Temperature float64
}

const baseInstruction = "You are an expert MERN stack instructor helping students learn by building projects."

var specs = map[Kind]Spec{
	KindDebug: {
		System:      baseInstruction + " Focus on identifying bugs and explaining why they occur.",
		MaxTokens:   300,
		Temperature: 0.3,
	},
	KindReview: {
		System:      baseInstruction + " Provide thorough code review with best practices, security issues, and performance tips.",
		MaxTokens:   500,
		Temperature: 0.4,
	},
	KindHint: {
		System:      baseInstruction + " Give subtle hints without revealing the full solution. Guide students to think.",
		MaxTokens:   150,
		Temperature: 0.5,
	},
	KindTest: {
		System:      baseInstruction + " Generate comprehensive test cases including edge cases and error scenarios.",
		MaxTokens:   400,
		Temperature: 0.3,
	},
	KindExplain: {
		System:      baseInstruction + " Explain concepts clearly with examples, analogies, and practical applications.",
		MaxTokens:   350,
		Temperature: 0.6,
	},
	KindGuide: {
		System:      baseInstruction + " Provide step-by-step guidance for building features. Break down complex tasks.",
		MaxTokens:   500,
		Temperature: 0.5,
	},
	KindChat: {
		System:      baseInstruction + " Explain concepts clearly with examples, analogies, and practical applications.",
		MaxTokens:   250,
		Temperature: 0.5,
	},
}

// For returns the Spec for kind. Unknown kinds get the base instruction with
// chat defaults.
func For(kind Kind) Spec {
	if s, ok := specs[kind]; ok {
		return s
	}
	return Spec{System: baseInstruction, MaxTokens: 250, Temperature: 0.5}
}

// Render serializes the system instruction, the most recent history window,
// and the new user turn into a transcript ending with an open assistant
// marker. Turns with unknown roles are skipped. Deterministic for identical
// inputs.
func Render(history []session.Turn, kind Kind, text, code string) string {
	parts := []string{tagSystem, For(kind).System, tagEnd}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	for _, turn := range history {
		switch turn.Role {
		case session.RoleUser:
			parts = append(parts, tagUser, turn.Content, tagEnd)
		case session.RoleAssistant:
			parts = append(parts, tagAssistant, turn.Content, tagEnd)
		}
	}
	parts = append(parts, tagUser, text)
	if code != "" {
		parts = append(parts, "\n\nCode:\n```\n"+code+"\n```")
	}
	parts = append(parts, tagEnd, tagAssistant)
	return strings.Join(parts, "\n")
}
