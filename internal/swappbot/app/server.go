package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/huzaifa838/swappbot/common/trace"
	"github.com/huzaifa838/swappbot/common/version"
	"github.com/huzaifa838/swappbot/internal/swappbot/auth"
	"github.com/huzaifa838/swappbot/internal/swappbot/bot"
	"github.com/huzaifa838/swappbot/internal/swappbot/observability"
	"github.com/huzaifa838/swappbot/internal/swappbot/store"
)

// historyDefaultLimit caps GET /bot/history when no limit is given.
const historyDefaultLimit = 50

// historyMaxLimit is the hard upper bound for the history limit parameter.
const historyMaxLimit = 500

// Server exposes the bot, auth, and health HTTP endpoints.
type Server struct {
	addr      string
	engine    *bot.Engine
	store     *store.Store
	authSvc   *auth.Service
	pending   pendingCounter
	startedAt time.Time
	server    *http.Server
	mux       *http.ServeMux
}

// pendingCounter is the minimal interface the status endpoint needs from the
// pending tracker.
type pendingCounter interface {
	Len() int
}

// messageRequest is the body of POST /bot/message.
type messageRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// messageResponse is returned by POST /bot/message.
type messageResponse struct {
	UserMessage string `json:"userMessage"`
	BotMessage  string `json:"botMessage"`
}

// healthResponse is returned by GET /health.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// statusResponse is returned by GET /status.
type statusResponse struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Commit       string    `json:"commit"`
	BuildTime    string    `json:"build_time"`
	StartedAt    time.Time `json:"started_at"`
	UptimeSecs   float64   `json:"uptime_seconds"`
	MessageCount int       `json:"message_count"`
	PendingCount int       `json:"pending_count"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates and configures the HTTP server (does not start it).
func NewServer(addr string, engine *bot.Engine, st *store.Store, authSvc *auth.Service, pending pendingCounter) *Server {
	mux := http.NewServeMux()
	s := &Server{
		addr:      addr,
		engine:    engine,
		store:     st,
		authSvc:   authSvc,
		pending:   pending,
		startedAt: time.Now(),
		mux:       mux,
	}
	mux.HandleFunc("POST /bot/message", s.handleMessage)
	mux.HandleFunc("GET /bot/history", s.handleHistory)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)
	return s
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener (e.g. with httptest.NewRecorder). Every request gets
// a trace ID attached to its context.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := trace.WithTraceID(r.Context(), trace.GenerateID())
	s.mux.ServeHTTP(w, r.WithContext(ctx))
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", "err", err)
		}
	}()

	// Shutdown when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}
}

// handleMessage resolves one user message into a bot reply.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.engine.Reply(r.Context(), req.UserID, req.Message)
	if errors.Is(err, bot.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	if err != nil {
		observability.WithTrace(r.Context()).Error("reply failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		UserMessage: req.Message,
		BotMessage:  reply,
	})
}

// handleHistory returns recent chat-log rows, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := historyDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > historyMaxLimit {
			n = historyMaxLimit
		}
		limit = n
	}

	msgs, err := s.store.RecentMessages(r.Context(), limit)
	if err != nil {
		observability.WithTrace(r.Context()).Error("history query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handleHealth responds with a simple ok JSON payload.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	})
}

// handleStatus responds with runtime statistics.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	messageCount := 0
	if s.store != nil {
		if n, err := s.store.MessageCount(r.Context()); err == nil {
			messageCount = n
		}
	}
	pendingCount := 0
	if s.pending != nil {
		pendingCount = s.pending.Len()
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:       "ok",
		Version:      version.Version,
		Commit:       version.GitCommit,
		BuildTime:    version.BuildTime,
		StartedAt:    s.startedAt,
		UptimeSecs:   time.Since(s.startedAt).Seconds(),
		MessageCount: messageCount,
		PendingCount: pendingCount,
	})
}

// handleRegister creates an account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.authSvc.Register(r.Context(), req.Email, req.Name, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrUserExists):
		writeError(w, http.StatusConflict, "email already registered")
	case err != nil:
		observability.WithTrace(r.Context()).Error("register failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
	}
}

// handleLogin verifies credentials and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, expiresAt, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		observability.WithTrace(r.Context()).Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

// handleForgotPassword issues and mails an OTP. Responds with 202 regardless
// of whether the email is registered.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.authSvc.ForgotPassword(r.Context(), req.Email); err != nil {
		observability.WithTrace(r.Context()).Error("forgot-password failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "otp sent if the email is registered"})
}

// handleResetPassword redeems an OTP for a new password.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.authSvc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidOTP):
		writeError(w, http.StatusUnauthorized, "invalid or expired OTP")
	case err != nil:
		observability.WithTrace(r.Context()).Error("reset-password failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
	}
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
