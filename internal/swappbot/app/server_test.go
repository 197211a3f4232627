package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/huzaifa838/swappbot/internal/swappbot/app"
	"github.com/huzaifa838/swappbot/internal/swappbot/auth"
	"github.com/huzaifa838/swappbot/internal/swappbot/bank"
	"github.com/huzaifa838/swappbot/internal/swappbot/bot"
	"github.com/huzaifa838/swappbot/internal/swappbot/pending"
	"github.com/huzaifa838/swappbot/internal/swappbot/store"
	"github.com/huzaifa838/swappbot/internal/swappbot/weather"
)

type fakeProvider struct{}

func (fakeProvider) Current(ctx context.Context, city string) (*weather.Report, error) {
	return &weather.Report{Temperature: 25, Description: "clear"}, nil
}

type fakeMailer struct{ otps []string }

func (f *fakeMailer) SendOTP(to, otp string) error {
	f.otps = append(f.otps, otp)
	return nil
}

func newTestServer(t *testing.T) (*app.Server, *fakeMailer) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "swappbot-app-*.db")
	if err != nil {
		t.Fatalf("temp db: %v", err)
	}
	f.Close()

	st, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	catalog, err := bank.Load()
	if err != nil {
		t.Fatalf("bank.Load: %v", err)
	}

	tracker := pending.NewTracker(pending.DefaultTTL)
	engine := bot.New(bot.Config{
		Bank:    catalog,
		Pending: tracker,
		Weather: fakeProvider{},
		Sink:    st,
	})

	mailer := &fakeMailer{}
	tokens := auth.NewTokenStore(st.DB(), 0)
	authSvc := auth.NewService(st, tokens, mailer)

	return app.NewServer("127.0.0.1:0", engine, st, authSvc, tracker), mailer
}

func postJSON(t *testing.T, srv http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleMessage(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postJSON(t, srv, "/bot/message", map[string]string{
		"userId":  "u1",
		"message": "what is javascript",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		UserMessage string `json:"userMessage"`
		BotMessage  string `json:"botMessage"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserMessage != "what is javascript" {
		t.Errorf("userMessage = %q", resp.UserMessage)
	}
	if !strings.Contains(resp.BotMessage, "📘 Explanation:") {
		t.Errorf("expected a coding answer, got:\n%s", resp.BotMessage)
	}
}

func TestHandleMessage_EmptyBody(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postJSON(t, srv, "/bot/message", map[string]string{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/bot/message", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d, want 400", rec2.Code)
	}
}

func TestHandleMessage_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/bot/message", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	srv, _ := newTestServer(t)

	// One exchange produces two chat-log rows.
	if rec := postJSON(t, srv, "/bot/message", map[string]string{"message": "hi"}); rec.Code != http.StatusOK {
		t.Fatalf("message: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/bot/history?limit=10", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var msgs []store.Message
	if err := json.NewDecoder(rec.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Sender != "bot" || msgs[1].Sender != "user" {
		t.Errorf("unexpected order: %+v", msgs)
	}
}

func TestHandleHistory_BadLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, limit := range []string{"0", "-5", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/bot/history?limit="+limit, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v", resp["status"])
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := postJSON(t, srv, "/bot/message", map[string]string{"message": "weather"}); rec.Code != http.StatusOK {
		t.Fatalf("message: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status       string `json:"status"`
		MessageCount int    `json:"message_count"`
		PendingCount int    `json:"pending_count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field = %q", resp.Status)
	}
	if resp.MessageCount != 2 {
		t.Errorf("message_count = %d, want 2", resp.MessageCount)
	}
	// The weather question leaves one continuation pending.
	if resp.PendingCount != 1 {
		t.Errorf("pending_count = %d, want 1", resp.PendingCount)
	}
}

func TestAuthEndpoints(t *testing.T) {
	srv, mailer := newTestServer(t)

	rec := postJSON(t, srv, "/auth/register", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice",
		"password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, srv, "/auth/register", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: status = %d, want 409", rec.Code)
	}

	rec = postJSON(t, srv, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: status = %d, want 401", rec.Code)
	}

	rec = postJSON(t, srv, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if login.Token == "" {
		t.Error("expected a session token")
	}

	rec = postJSON(t, srv, "/auth/forgot-password", map[string]string{
		"email": "alice@example.com",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("forgot-password: status = %d", rec.Code)
	}
	if len(mailer.otps) != 1 {
		t.Fatalf("expected one OTP mail, got %d", len(mailer.otps))
	}

	rec = postJSON(t, srv, "/auth/reset-password", map[string]string{
		"email":       "alice@example.com",
		"otp":         mailer.otps[0],
		"newPassword": "newpassword",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-password: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, srv, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "newpassword",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password: status = %d", rec.Code)
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	srv.Stop()
}
