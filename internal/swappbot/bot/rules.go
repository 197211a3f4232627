package bot

import (
	"strings"

	"github.com/huzaifa838/swappbot/internal/swappbot/bank"
	"github.com/huzaifa838/swappbot/internal/swappbot/fuzzy"
)

// utterance is one normalized incoming message as seen by the rules.
type utterance struct {
	key    string
	tokens []string
}

// topicRule is one heuristic (predicate, responder) pair. Rules form an
// explicit total order: topicRules is evaluated front to back and the first
// match wins, so a rule's position IS its priority.
type topicRule struct {
	name    string
	match   func(u utterance) bool
	respond func(e *Engine, u utterance) string
}

// arrayEntryKey is the catalog entry the array topic rule prefers.
const arrayEntryKey = "what is array in javascript"

// topicRules are tried only after the exact catalog lookup has missed.
var topicRules = []topicRule{
	{
		name: "greeting",
		match: func(u utterance) bool {
			return fuzzy.AnyWordMatch(u.tokens, "hi", 1) ||
				fuzzy.AnyWordMatch(u.tokens, "hello", 2)
		},
		respond: func(e *Engine, u utterance) string {
			return greetingReply
		},
	},
	{
		name: "array",
		match: func(u utterance) bool {
			return fuzzy.AnyWordMatch(u.tokens, "array", 2)
		},
		respond: func(e *Engine, u utterance) string {
			if entry, ok := e.bank.Lookup(arrayEntryKey); ok && entry.Kind == bank.KindCoding {
				return renderEntry(entry)
			}
			return renderArrayFallback()
		},
	},
	{
		name: "loop",
		match: func(u utterance) bool {
			return fuzzy.AnyWordMatch(u.tokens, "loop", 1)
		},
		respond: func(e *Engine, u utterance) string {
			return renderLoopAnswer()
		},
	},
	{
		name: "error-debugging",
		match: func(u utterance) bool {
			return strings.Contains(u.key, "error") ||
				strings.Contains(u.key, "bug") ||
				strings.Contains(u.key, "not working")
		},
		respond: func(e *Engine, u utterance) string {
			return renderErrorHelp()
		},
	},
	{
		name: "roadmap",
		match: func(u utterance) bool {
			return strings.Contains(u.key, "roadmap")
		},
		respond: func(e *Engine, u utterance) string {
			return renderRoadmap()
		},
	},
}
