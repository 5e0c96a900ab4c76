package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/walletfeed/wallet-feed/internal/config"
	"github.com/walletfeed/wallet-feed/internal/domain"
)

// Server is the HTTP server that serves the feed API.
type Server struct {
	cfg        *config.Config
	feed       *domain.FeedService
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server over the given feed service.
func NewServer(cfg *config.Config, feed *domain.FeedService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		feed:   feed,
		logger: logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/messages", s.handleSubmitMessage).Methods(http.MethodPost)
	r.HandleFunc("/api/feed", s.handleFeed).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{key}/hashtags", s.handleSubmitHashtag).Methods(http.MethodPost)
	r.HandleFunc("/api/users/{key}/tags", s.handleTopTags).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{key}/links", s.handleGetLinks).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{key}/links", s.handleSubmitLink).Methods(http.MethodPut)
	r.HandleFunc("/api/watch", s.handleWatch).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      withLogging(logger, r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitMessageRequest struct {
	Author    string   `json:"author"`
	Text      string   `json:"text"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed request body")
		return
	}

	msg, err := s.feed.SubmitMessage(r.Context(), req.Author, req.Text, coords(req.Latitude, req.Longitude))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	messagesSubmitted.Inc()
	writeJSON(w, http.StatusCreated, msg)
}

type submitHashtagRequest struct {
	Author    string   `json:"author"`
	Tag       string   `json:"tag"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleSubmitHashtag(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req submitHashtagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed request body")
		return
	}

	msg, err := s.feed.SubmitHashtag(r.Context(), req.Author, key, req.Tag, coords(req.Latitude, req.Longitude))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	messagesSubmitted.Inc()
	writeJSON(w, http.StatusCreated, msg)
}

type submitLinkRequest struct {
	Author    string   `json:"author"`
	URL       string   `json:"url"`
	Provider  string   `json:"provider"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleSubmitLink(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req submitLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed request body")
		return
	}

	msg, err := s.feed.SubmitLink(r.Context(), req.Author, key, req.URL, req.Provider, coords(req.Latitude, req.Longitude))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	linksSubmitted.Inc()
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Rebuild the filter state machine from the request: filters force
	// their mode, an explicit mode parameter wins, and with neither the
	// configured default applies.
	fs := domain.NewFilterSet(domain.FilterMode(s.cfg.DefaultFilterMode))
	for _, v := range splitParam(q.Get("hashtags")) {
		fs.Add(domain.Filter{Type: domain.FilterHashtag, Value: v})
	}
	for _, v := range splitParam(q.Get("locations")) {
		fs.Add(domain.Filter{Type: domain.FilterLocation, Value: v})
	}
	if m := q.Get("mode"); m != "" {
		parsed, ok := domain.ParseFilterMode(m)
		if !ok {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "mode must be one of all, address, hashtag, location")
			return
		}
		fs.SetMode(parsed)
	}

	actions, err := s.feed.Feed(r.Context(), domain.FeedQuery{
		Key:     q.Get("key"),
		Viewer:  q.Get("viewer"),
		Mode:    fs.Mode(),
		Filters: fs.Filters(),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (s *Server) handleTopTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.feed.TopTags(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handleGetLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.feed.Links(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// writeServiceError maps domain errors onto HTTP statuses. Validation
// failures are the caller's fault; duplicates are a conflict; everything
// else is internal and logged.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidKey),
		errors.Is(err, domain.ErrInvalidHashtag),
		errors.Is(err, domain.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		duplicatesRejected.Inc()
		writeError(w, http.StatusConflict, "DuplicateMessage", "duplicate message detected, no duplicate messages allowed")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "request failed")
	}
}

func coords(lat, lon *float64) *domain.Coordinates {
	if lat == nil || lon == nil {
		return nil
	}
	return &domain.Coordinates{Latitude: *lat, Longitude: *lon}
}

func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack forwards to the underlying writer so the watch endpoint can
// upgrade the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
