package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/huzaifa838/swappbot/internal/swappbot/bank"
	"github.com/huzaifa838/swappbot/internal/swappbot/pending"
	"github.com/huzaifa838/swappbot/internal/swappbot/weather"
)

// fakeProvider records calls and serves a canned report or error.
type fakeProvider struct {
	mu     sync.Mutex
	cities []string
	report *weather.Report
	err    error
}

func (f *fakeProvider) Current(ctx context.Context, city string) (*weather.Report, error) {
	f.mu.Lock()
	f.cities = append(f.cities, city)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

// fakeSink records messages and can be made to fail every write.
type fakeSink struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeSink) RecordMessage(ctx context.Context, sender, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, sender+": "+text)
	return nil
}

func newTestEngine(t *testing.T, provider weather.Provider, sink Sink) *Engine {
	t.Helper()
	b, err := bank.Load()
	if err != nil {
		t.Fatalf("bank.Load: %v", err)
	}
	return New(Config{
		Bank:    b,
		Pending: pending.NewTracker(pending.DefaultTTL),
		Weather: provider,
		Sink:    sink,
	})
}

func TestReply_ExactLookupWinsOverFuzzy(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, nil)

	got, err := e.Reply(context.Background(), "u1", "  What is   JavaScript? ")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "🧠") || !strings.Contains(got, "📘 Explanation:") {
		t.Errorf("expected a coding answer, got:\n%s", got)
	}
	if !strings.Contains(got, "💻 Example:") || !strings.Contains(got, "```js") {
		t.Errorf("coding answer missing fenced example:\n%s", got)
	}
}

func TestReply_TypoResolvesViaNearestKey(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, nil)

	got, err := e.Reply(context.Background(), "u1", "waht is javascript")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "📘 Explanation:") {
		t.Errorf("typo within distance 3 should reach the catalog entry, got:\n%s", got)
	}
}

func TestReply_GibberishFallsBack(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, nil)

	got, err := e.Reply(context.Background(), "u1", "qqqqqqqqqqqqqqqqqqqqqqqq")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got != fallbackReply {
		t.Errorf("expected fallback, got:\n%s", got)
	}
}

func TestReply_EmptyMessage(t *testing.T) {
	provider := &fakeProvider{}
	sink := &fakeSink{}
	e := newTestEngine(t, provider, sink)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := e.Reply(context.Background(), "u1", input)
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Reply(%q): expected ErrEmptyMessage, got %v", input, err)
		}
	}
	if len(provider.cities) != 0 {
		t.Error("empty input must not reach the weather provider")
	}
	if len(sink.messages) != 0 {
		t.Error("empty input must not be recorded")
	}
}

func TestReply_WeatherFlow(t *testing.T) {
	provider := &fakeProvider{report: &weather.Report{
		Temperature: 31.2,
		FeelsLike:   34.0,
		Humidity:    58,
		WindSpeed:   3.4,
		Description: "haze",
	}}
	e := newTestEngine(t, provider, nil)
	ctx := context.Background()

	got, err := e.Reply(ctx, "u1", "weather")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got != cityPromptReply {
		t.Fatalf("expected city prompt, got:\n%s", got)
	}

	// The raw follow-up carries digits and punctuation; only letters survive.
	got, err = e.Reply(ctx, "u1", "Delhi123!")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "*Weather in Delhi*") {
		t.Errorf("expected a Delhi summary, got:\n%s", got)
	}
	if !strings.Contains(got, "Temperature: 31.2°C") || !strings.Contains(got, "Humidity: 58%") {
		t.Errorf("summary missing report fields:\n%s", got)
	}
	if len(provider.cities) != 1 || provider.cities[0] != "Delhi" {
		t.Errorf("provider called with %v, want [Delhi]", provider.cities)
	}

	// The continuation is consumed: the same text now goes through the
	// normal cascade and no second provider call happens.
	got, err = e.Reply(ctx, "u1", "Delhi123!")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if strings.Contains(got, "Weather in") {
		t.Errorf("pending state should be cleared after one use, got:\n%s", got)
	}
	if len(provider.cities) != 1 {
		t.Errorf("provider called %d times, want 1", len(provider.cities))
	}
}

func TestReply_WeatherTypoIntent(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, nil)

	for _, input := range []string{"wether", "mausam", "aaj ka weather kaisa hai"} {
		got, err := e.Reply(context.Background(), "u-"+input, input)
		if err != nil {
			t.Fatalf("Reply(%q): %v", input, err)
		}
		if got != cityPromptReply {
			t.Errorf("Reply(%q): expected city prompt, got:\n%s", input, got)
		}
	}
}

func TestReply_InvalidCityName(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestEngine(t, provider, nil)
	ctx := context.Background()

	if _, err := e.Reply(ctx, "u1", "weather"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	got, err := e.Reply(ctx, "u1", "12345!!!")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got != invalidCityReply {
		t.Errorf("expected invalid-city reply, got:\n%s", got)
	}
	if len(provider.cities) != 0 {
		t.Error("provider must not be called for an invalid city")
	}
}

func TestReply_WeatherPendingIsPerUser(t *testing.T) {
	provider := &fakeProvider{report: &weather.Report{Description: "clear"}}
	e := newTestEngine(t, provider, nil)
	ctx := context.Background()

	if _, err := e.Reply(ctx, "alice", "weather"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	// Bob's message must not consume Alice's continuation.
	got, err := e.Reply(ctx, "bob", "Mumbai")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if strings.Contains(got, "Weather in") {
		t.Errorf("bob should not trigger alice's continuation, got:\n%s", got)
	}

	got, err = e.Reply(ctx, "alice", "Mumbai")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "*Weather in Mumbai*") {
		t.Errorf("alice's continuation lost, got:\n%s", got)
	}
}

func TestReply_WeatherErrorEmbeddedAndRedacted(t *testing.T) {
	provider := &fakeProvider{err: &weather.ProviderError{
		Status:  401,
		Message: "invalid key secretapikey123 provided",
	}}
	b, err := bank.Load()
	if err != nil {
		t.Fatalf("bank.Load: %v", err)
	}
	e := New(Config{
		Bank:         b,
		Pending:      pending.NewTracker(pending.DefaultTTL),
		Weather:      provider,
		RedactValues: []string{"secretapikey123"},
	})
	ctx := context.Background()

	if _, err := e.Reply(ctx, "u1", "weather"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	got, err := e.Reply(ctx, "u1", "Atlantis")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.HasPrefix(got, "❌ Weather service error:") {
		t.Errorf("expected weather error reply, got:\n%s", got)
	}
	if strings.Contains(got, "secretapikey123") {
		t.Errorf("API key leaked into reply:\n%s", got)
	}
	if !strings.Contains(got, "[REDACTED]") {
		t.Errorf("expected redaction marker in reply:\n%s", got)
	}
}

func TestReply_TopicRules(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, nil)
	ctx := context.Background()

	tests := []struct {
		input string
		want  string
	}{
		{"hii there", "SwappBot"},
		{"my code has a bug", "ERROR HELP"},
		{"something is not working", "ERROR HELP"},
		{"show me the roadmap", "General Developer Roadmap"},
		{"explain loops please", "Loops in JavaScript"},
		{"tell me about arrays", "Array"},
	}
	for _, tt := range tests {
		got, err := e.Reply(ctx, "u1", tt.input)
		if err != nil {
			t.Fatalf("Reply(%q): %v", tt.input, err)
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("Reply(%q): expected %q in reply, got:\n%s", tt.input, tt.want, got)
		}
	}
}

func TestReply_SinkFailureIsNonFatal(t *testing.T) {
	sink := &fakeSink{err: errors.New("disk full")}
	e := newTestEngine(t, &fakeProvider{}, sink)

	got, err := e.Reply(context.Background(), "u1", "hi")
	if err != nil {
		t.Fatalf("Reply should succeed despite sink failure: %v", err)
	}
	if got == "" {
		t.Error("expected a reply")
	}
}

func TestReply_RecordsBothSides(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(t, &fakeProvider{}, sink)

	if _, err := e.Reply(context.Background(), "u1", "hi"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(sink.messages) != 2 {
		t.Fatalf("expected 2 recorded messages, got %d", len(sink.messages))
	}
	if !strings.HasPrefix(sink.messages[0], "user: hi") {
		t.Errorf("first record = %q, want user message", sink.messages[0])
	}
	if !strings.HasPrefix(sink.messages[1], "bot: ") {
		t.Errorf("second record = %q, want bot message", sink.messages[1])
	}
}

func TestReply_DefaultUserID(t *testing.T) {
	provider := &fakeProvider{report: &weather.Report{Description: "clear"}}
	e := newTestEngine(t, provider, nil)
	ctx := context.Background()

	// Empty user ID maps to the shared anonymous identity, so the
	// continuation set without an ID is visible to the next no-ID request.
	if _, err := e.Reply(ctx, "", "weather"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	got, err := e.Reply(ctx, "", "Pune")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "*Weather in Pune*") {
		t.Errorf("anonymous continuation lost, got:\n%s", got)
	}
}

func TestReply_ConcurrentContinuationConsumedOnce(t *testing.T) {
	provider := &fakeProvider{report: &weather.Report{Description: "clear"}}
	e := newTestEngine(t, provider, nil)
	ctx := context.Background()

	if _, err := e.Reply(ctx, "u1", "weather"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	replies := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := e.Reply(ctx, "u1", "Chennai")
			if err != nil {
				t.Errorf("Reply: %v", err)
				return
			}
			replies[i] = r
		}(i)
	}
	wg.Wait()

	summaries := 0
	for _, r := range replies {
		if strings.Contains(r, "Weather in") {
			summaries++
		}
	}
	if summaries != 1 {
		t.Errorf("continuation consumed %d times, want exactly 1", summaries)
	}
	if len(provider.cities) != 1 {
		t.Errorf("provider called %d times, want 1", len(provider.cities))
	}
}
