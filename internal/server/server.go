package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvdeck/tvdeck/api"
	"github.com/tvdeck/tvdeck/internal/cache"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/epg"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/service"
	"github.com/tvdeck/tvdeck/internal/session"
	"github.com/tvdeck/tvdeck/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	store    store.Store
	cfg      *config.Config
	guide    *service.Guide
	sessions *session.Manager
	rds      *cache.Redis // nil when REDIS_URL is not set
	log      logrus.FieldLogger
	mux      *http.ServeMux
}

// New creates a Server and registers routes. rds may be nil.
func New(s store.Store, cfg *config.Config, guide *service.Guide, sessions *session.Manager, rds *cache.Redis, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	srv := &Server{store: s, cfg: cfg, guide: guide, sessions: sessions, rds: rds, log: log, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Playlists
	s.mux.HandleFunc("GET /api/playlists", s.handleListPlaylists)
	s.mux.HandleFunc("POST /api/playlists", s.handleAddPlaylist)
	s.mux.HandleFunc("POST /api/playlists/file", s.handleUploadPlaylist)
	s.mux.HandleFunc("GET /api/playlists/{id}", s.handleGetPlaylist)
	s.mux.HandleFunc("DELETE /api/playlists/{id}", s.handleDeletePlaylist)
	s.mux.HandleFunc("POST /api/playlists/{id}/activate", s.handleActivatePlaylist)
	s.mux.HandleFunc("POST /api/playlists/{id}/refresh", s.handleRefreshPlaylist)

	// Channels
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("GET /api/channels/{id}", s.handleGetChannel)
	s.mux.HandleFunc("POST /api/channels/{id}/favorite", s.handleToggleFavorite)

	// Groups and favorites
	s.mux.HandleFunc("GET /api/groups", s.handleListGroups)
	s.mux.HandleFunc("GET /api/favorites", s.handleListFavorites)
	s.mux.HandleFunc("DELETE /api/favorites", s.handleClearFavorites)

	// Preferences
	s.mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	s.mux.HandleFunc("PATCH /api/preferences", s.handleSetPreferences)

	// Program guide
	s.mux.HandleFunc("POST /api/epg/refresh", s.handleRefreshGuide)
	s.mux.HandleFunc("GET /api/epg/now", s.handleGuideNow)

	// Playback session
	s.mux.HandleFunc("POST /api/session", s.handleStartSession)
	s.mux.HandleFunc("GET /api/session", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/session", s.handleStopSession)
	s.mux.HandleFunc("POST /api/session/play", s.handleSessionPlay)
	s.mux.HandleFunc("POST /api/session/pause", s.handleSessionPause)
	s.mux.HandleFunc("POST /api/session/toggle", s.handleSessionToggle)
	s.mux.HandleFunc("PATCH /api/session/quality", s.handleSessionQuality)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s.log, s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error("server shutdown")
		}
	}()

	s.log.WithField("addr", addr).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- playlist handlers ---

type addPlaylistRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleAddPlaylist(w http.ResponseWriter, r *http.Request) {
	var req addPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.URL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url must be a valid http or https URL"))
		return
	}

	id, pl, err := service.LoadPlaylistFromURL(r.Context(), s.store, req.URL, req.Name, s.cfg.UserAgent, s.cfg.Timeout, s.log)
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("load playlist: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"playlist_id":   id,
		"channel_count": pl.TotalCount,
		"epg_url":       pl.EPGURL,
	})
}

type uploadPlaylistRequest struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (s *Server) handleUploadPlaylist(w http.ResponseWriter, r *http.Request) {
	var req uploadPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.Content == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("content is required"))
		return
	}

	id, pl, err := service.LoadPlaylistFromFile(r.Context(), s.store, req.Content, req.Name, req.Filename, s.log)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, fmt.Errorf("load playlist: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"playlist_id":   id,
		"channel_count": pl.TotalCount,
		"epg_url":       pl.EPGURL,
	})
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.ListPlaylists(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if playlists == nil {
		playlists = []models.StoredPlaylist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	pl, err := s.store.GetPlaylist(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist %d not found", id))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeletePlaylist(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist %d not found", id))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleActivatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SetActivePlaylist(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist %d not found", id))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlist_id": id, "active": true})
}

func (s *Server) handleRefreshPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	meta, err := s.store.GetPlaylist(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist %d not found", id))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if meta.Source != models.SourceURL {
		writeErr(w, http.StatusConflict, fmt.Errorf("playlist %q was loaded from a file and cannot be refreshed", meta.Name))
		return
	}

	// With Redis the refresh runs on the background worker so large
	// playlists do not tie up the request.
	if s.rds != nil {
		job := cache.RefreshJob{PlaylistID: id, Name: meta.Name}
		if err := cache.Enqueue(r.Context(), s.rds, cache.DefaultQueue, job); err != nil {
			writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue refresh: %w", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"playlist_id": id, "queued": true})
		return
	}

	pl, err := service.RefreshPlaylist(r.Context(), s.store, id, s.cfg.UserAgent, s.cfg.Timeout, s.log)
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("refresh: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playlist_id":   id,
		"channel_count": pl.TotalCount,
		"refreshed":     true,
	})
}

// --- channel handlers ---

// resolvePlaylistID returns the playlist_id query parameter, falling back to
// the active playlist.
func (s *Server) resolvePlaylistID(r *http.Request) (int64, error) {
	if v := r.URL.Query().Get("playlist_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid playlist_id: %s", v)
		}
		return id, nil
	}
	active, err := s.store.ActivePlaylist(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("no active playlist")
		}
		return 0, err
	}
	return active.ID, nil
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	playlistID, err := s.resolvePlaylistID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	filter := store.ChannelFilter{
		PlaylistID: playlistID,
		Group:      q.Get("group"),
		Search:     q.Get("search"),
	}
	if v := q.Get("favorite"); v != "" {
		switch v {
		case "true", "1":
			filter.FavoritesOnly = true
		case "false", "0":
		default:
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid favorite: %s (use true or false)", v))
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", v))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid offset: %s", v))
			return
		}
		filter.Offset = n
	}

	channels, total, err := s.store.ListChannels(r.Context(), filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")
	playlistID, err := s.resolvePlaylistID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	ch, err := s.store.GetChannel(r.Context(), playlistID, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %s not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")
	favorite, err := s.store.ToggleFavorite(r.Context(), channelID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel_id": channelID,
		"favorite":   favorite,
	})
}

// --- group and favorite handlers ---

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	playlistID, err := s.resolvePlaylistID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	groups, err := s.store.ListGroups(r.Context(), playlistID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if groups == nil {
		groups = []models.ChannelGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := s.store.ListFavorites(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if favorites == nil {
		favorites = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favorites})
}

func (s *Server) handleClearFavorites(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearFavorites(r.Context()); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

// --- preference handlers ---

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.Preferences(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if len(req) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no preferences given"))
		return
	}
	for key, value := range req {
		if err := s.store.SetPreference(r.Context(), key, value); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
	}
	prefs, err := s.store.Preferences(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// --- guide handlers ---

type refreshGuideRequest struct {
	URL string `json:"url"`
}

// guideURL picks the guide source: explicit request URL, the active
// playlist's x-tvg-url, then the configured EPG_URL.
func (s *Server) guideURL(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if active, err := s.store.ActivePlaylist(r.Context()); err == nil && active.EPGURL != "" {
		return active.EPGURL
	}
	return s.cfg.EPGURL
}

func (s *Server) handleRefreshGuide(w http.ResponseWriter, r *http.Request) {
	var req refreshGuideRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
			return
		}
	}
	guideURL := s.guideURL(r, req.URL)
	if guideURL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no guide URL configured"))
		return
	}

	if err := s.guide.Refresh(r.Context(), guideURL); err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("refresh guide: %w", err))
		return
	}

	data := s.guide.Data()
	programs := 0
	if data != nil {
		programs = len(data.Programs)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":      guideURL,
		"programs": programs,
	})
}

type guideProgram struct {
	models.Program
	Progress int    `json:"progress"`
	Duration string `json:"duration"`
}

func (s *Server) handleGuideNow(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("channel parameter is required"))
		return
	}
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", v))
			return
		}
		limit = n
	}

	now := time.Now()
	sched, err := s.guide.Schedule(channel, now, limit)
	if err != nil {
		if errors.Is(err, service.ErrNoGuide) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	resp := map[string]any{"channel": channel, "upcoming": sched.Upcoming}
	if sched.Upcoming == nil {
		resp["upcoming"] = []models.Program{}
	}
	if sched.Current != nil {
		resp["current"] = guideProgram{
			Program:  *sched.Current,
			Progress: epg.Progress(sched.Current.Start, sched.Current.Stop, now),
			Duration: epg.FormatDuration(sched.Current.Start, sched.Current.Stop),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- session handlers ---

type startSessionRequest struct {
	URL       string `json:"url"`
	ChannelID string `json:"channel_id"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	streamURL := req.URL
	if streamURL == "" && req.ChannelID != "" {
		playlistID, err := s.resolvePlaylistID(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		ch, err := s.store.GetChannel(r.Context(), playlistID, req.ChannelID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeErr(w, http.StatusNotFound, fmt.Errorf("channel %s not found", req.ChannelID))
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		streamURL = ch.URL
	}
	if streamURL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url or channel_id is required"))
		return
	}

	if err := s.sessions.LoadStream(streamURL); err != nil {
		if errors.Is(err, session.ErrUnsupported) {
			writeErr(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.sessions.State())
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.State())
}

func (s *Server) handleStopSession(w http.ResponseWriter, _ *http.Request) {
	s.sessions.Destroy()
	writeNoContent(w)
}

func (s *Server) handleSessionPlay(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Play(r.Context()); err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.State())
}

func (s *Server) handleSessionPause(w http.ResponseWriter, _ *http.Request) {
	s.sessions.Pause()
	writeJSON(w, http.StatusOK, s.sessions.State())
}

func (s *Server) handleSessionToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.TogglePlay(r.Context()); err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.State())
}

type setQualityRequest struct {
	Index int `json:"index"`
}

func (s *Server) handleSessionQuality(w http.ResponseWriter, r *http.Request) {
	var req setQualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	s.sessions.SetQuality(req.Index)
	writeJSON(w, http.StatusOK, s.sessions.State())
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as int64.
func parseID(r *http.Request, param string) (int64, error) {
	v := r.PathValue(param)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("writeJSON")
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		logrus.WithError(err).Errorf("HTTP %d", status)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>TVDeck API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
