// Package bot implements the intent resolution cascade: the pipeline that
// turns one user utterance into exactly one reply.
//
// Stage order (each stage either terminates the cascade with a reply or
// passes through):
//
//  1. continuation: a pending "which city?" follow-up consumes the message
//  2. weather intent: typo-tolerant keyword detection, asks for a city
//  3. exact catalog lookup on the normalized key
//  4. ordered heuristic topic rules (see rules.go)
//  5. nearest catalog key by edit distance (accepted within distance 3)
//  6. fixed fallback
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/huzaifa838/swappbot/common/redact"
	"github.com/huzaifa838/swappbot/internal/swappbot/bank"
	"github.com/huzaifa838/swappbot/internal/swappbot/fuzzy"
	"github.com/huzaifa838/swappbot/internal/swappbot/pending"
	"github.com/huzaifa838/swappbot/internal/swappbot/textutil"
	"github.com/huzaifa838/swappbot/internal/swappbot/weather"
)

// ErrEmptyMessage is returned for input that is empty after trimming. No
// collaborator is called and no state transition happens in that case.
var ErrEmptyMessage = errors.New("bot: message is empty")

// DefaultUserID is used when the request carries no user identifier.
const DefaultUserID = "anonymous"

// nearestKeyMaxDist is the acceptance threshold for the nearest-catalog-key
// stage.
const nearestKeyMaxDist = 3

// sinkTimeout bounds each best-effort chat-log write so a slow database can
// never stall a reply for long.
const sinkTimeout = 2 * time.Second

// Sink receives best-effort chat-log writes. Failures must never affect the
// reply path; the engine logs and discards them.
type Sink interface {
	RecordMessage(ctx context.Context, sender, text string) error
}

// Config assembles an Engine.
type Config struct {
	Bank    *bank.Bank
	Pending *pending.Tracker
	Weather weather.Provider
	// Sink is optional; nil disables chat logging.
	Sink Sink
	// RedactValues are stripped from provider error text before it is echoed
	// into a reply (typically the weather API key).
	RedactValues []string
}

// Engine resolves utterances to replies. Safe for concurrent use; requests
// for the same user ID are serialized so a pending continuation is consumed
// at most once.
type Engine struct {
	bank         *bank.Bank
	pending      *pending.Tracker
	weather      weather.Provider
	sink         Sink
	redactValues []string

	mu      sync.Mutex
	userMus map[string]*sync.Mutex
}

// New creates an Engine.
func New(cfg Config) *Engine {
	return &Engine{
		bank:         cfg.Bank,
		pending:      cfg.Pending,
		weather:      cfg.Weather,
		sink:         cfg.Sink,
		redactValues: cfg.RedactValues,
		userMus:      make(map[string]*sync.Mutex),
	}
}

// Reply resolves one utterance for one user. userID defaults to
// DefaultUserID when empty; a message that is empty after trimming returns
// ErrEmptyMessage before any collaborator call or state transition.
func (e *Engine) Reply(ctx context.Context, userID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if userID == "" {
		userID = DefaultUserID
	}

	// Serialize per user so concurrent requests cannot both act on the same
	// pending continuation. Different users never contend.
	mu := e.userMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	e.record(ctx, "user", message)

	reply := e.resolve(ctx, userID, message)

	e.record(ctx, "bot", reply)
	return reply, nil
}

// resolve runs the cascade stages in order.
func (e *Engine) resolve(ctx context.Context, userID, raw string) string {
	// 1. Continuation: a pending follow-up swallows this message.
	if tag, ok := e.pending.Consume(userID); ok && tag == pending.TagAwaitingCity {
		return e.weatherReply(ctx, raw)
	}

	key := textutil.Normalize(raw)
	u := utterance{key: key, tokens: textutil.Tokenize(key)}

	// 2. Weather intent: ask for the city and remember that we did.
	if isWeatherIntent(u) {
		e.pending.Set(userID, pending.TagAwaitingCity)
		return cityPromptReply
	}

	// 3. Exact catalog lookup. Wins over every fuzzy stage.
	if entry, ok := e.bank.Lookup(key); ok {
		return renderEntry(entry)
	}

	// 4. Heuristic topic rules, first match wins.
	for _, rule := range topicRules {
		if rule.match(u) {
			slog.Debug("topic rule matched", "rule", rule.name, "key", key)
			return rule.respond(e, u)
		}
	}

	// 5. Nearest catalog key. Catalog order breaks distance ties.
	if best, dist, ok := fuzzy.NearestKey(key, e.bank.Keys()); ok && dist <= nearestKeyMaxDist {
		slog.Debug("nearest-key match", "key", key, "best", best, "distance", dist)
		if entry, found := e.bank.Lookup(best); found {
			return renderEntry(entry)
		}
	}

	// 6. Fallback.
	return fallbackReply
}

// weatherReply handles the consumed continuation: extract a city from the
// raw text, not the lowercased key, since city names are proper nouns, and
// ask the provider.
func (e *Engine) weatherReply(ctx context.Context, raw string) string {
	city := textutil.CleanCityName(raw)
	if city == "" {
		return invalidCityReply
	}

	report, err := e.weather.Current(ctx, city)
	if err != nil {
		slog.Warn("weather lookup failed", "city", city, "err", err)
		// The upstream message is echoed for debuggability, but never with
		// credential material in it.
		return renderWeatherError(redact.String(err.Error(), e.redactValues...))
	}
	return renderWeather(city, report)
}

// isWeatherIntent detects weather questions with small typo tolerance plus
// two literal phrasings.
func isWeatherIntent(u utterance) bool {
	for _, target := range []string{"weather", "mosam"} {
		if fuzzy.AnyWordMatch(u.tokens, target, 2) {
			return true
		}
	}
	return strings.Contains(u.key, "aaj ka weather") ||
		strings.Contains(u.key, "today weather")
}

// record writes one chat-log row, swallowing failures. The write gets its
// own deadline derived from the request context.
func (e *Engine) record(ctx context.Context, sender, text string) {
	if e.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := e.sink.RecordMessage(ctx, sender, text); err != nil {
		slog.Warn("chat log write failed", "sender", sender, "err", err)
	}
}

// userMutex returns the mutex dedicated to userID, creating it on first use.
// Entries are never removed; the user population is small and bounded by
// actual users seen since startup.
func (e *Engine) userMutex(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	mu, ok := e.userMus[userID]
	if !ok {
		mu = &sync.Mutex{}
		e.userMus[userID] = mu
	}
	return mu
}
