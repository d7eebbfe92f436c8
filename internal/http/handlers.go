package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/notes"
)

// handleHealth reports liveness and pings the store.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.deps.Version,
		Services: map[string]string{"notes": "ok"},
	}
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		name := "storage." + s.deps.Store.Name()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.Warn("health check: store unavailable", zap.Error(err))
			resp.Status = "degraded"
			resp.Services[name] = "unavailable"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp.Services[name] = "ok"
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListNotes(c echo.Context) error {
	filter, err := notes.ParseFilter(c.QueryParam("filter"))
	if err != nil {
		return s.apiError(c, err)
	}
	q := notes.Query{Filter: filter, Search: strings.TrimSpace(c.QueryParam("q"))}
	list := s.deps.Session.List(q)

	resp := NoteListResponse{
		Notes:  list,
		Count:  len(list),
		Filter: filter,
		Query:  q.Search,
	}
	if len(list) == 0 {
		resp.Notes = []notes.Note{}
		resp.Message = notes.EmptyMessage(q.Search)
		if q.Search == "" {
			resp.SubMessage = notes.EmptyNotesSubMessage
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateNote(c echo.Context) error {
	var req CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "Untitled"
	}

	n, err := s.deps.Session.Create(c.Request().Context(), req.Title, req.Content)
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusCreated, n)
}

// handleReload drops the undo history and rereads the saved collection.
func (s *Server) handleReload(c echo.Context) error {
	if err := s.deps.Session.Reload(c.Request().Context()); err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, ReloadResponse{
		Count:   len(s.deps.Session.Notes()),
		History: s.deps.Session.HistoryStatus(),
	})
}

func (s *Server) handleGetNote(c echo.Context) error {
	n, err := s.deps.Session.Get(c.Param("id"))
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleUpdateNote(c echo.Context) error {
	var patch notes.Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if patch.IsEmpty() {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one of title, content or tags is required")
	}

	n, err := s.deps.Session.Update(noteContext(c), c.Param("id"), patch)
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleDeleteNote(c echo.Context) error {
	if err := s.deps.Session.Delete(noteContext(c), c.Param("id")); err != nil {
		return s.apiError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleToggleFavorite(c echo.Context) error {
	n, err := s.deps.Session.ToggleFavorite(noteContext(c), c.Param("id"))
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleTogglePin(c echo.Context) error {
	n, err := s.deps.Session.TogglePin(noteContext(c), c.Param("id"))
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleAddTag(c echo.Context) error {
	var req AddTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	n, err := s.deps.Session.AddTag(noteContext(c), c.Param("id"), req.Tag)
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleRemoveTag(c echo.Context) error {
	n, err := s.deps.Session.RemoveTag(noteContext(c), c.Param("id"), c.Param("tag"))
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Session.HistoryStatus())
}

func (s *Server) handleUndo(c echo.Context) error {
	status, err := s.deps.Session.Undo(c.Request().Context())
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleRedo(c echo.Context) error {
	status, err := s.deps.Session.Redo(c.Request().Context())
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, s.settingsResponse(c.Request().Context()))
}

func (s *Server) handlePutSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	cur := s.deps.Settings.Get(ctx)
	if req.GeminiAPIKey != nil && !config.Redacted(*req.GeminiAPIKey) {
		cur.GeminiAPIKey = config.Secret(*req.GeminiAPIKey)
	}
	if req.Theme != nil {
		cur.Theme = *req.Theme
	}
	if err := s.deps.Settings.Save(ctx, cur); err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(http.StatusOK, s.settingsResponse(ctx))
}

func (s *Server) settingsResponse(ctx context.Context) SettingsResponse {
	cur := s.deps.Settings.Get(ctx)
	return SettingsResponse{
		GeminiAPIKey: cur.GeminiAPIKey.String(),
		Theme:        cur.Theme,
		HasAPIKey:    s.deps.Settings.HasAPIKey(ctx),
	}
}

// handleEnhance runs text through the enhancer. Enhancement failures are
// reported in the body with success=false, not as HTTP errors.
func (s *Server) handleEnhance(c echo.Context) error {
	var req EnhanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Apply && req.NoteID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "apply requires noteId")
	}

	ctx := c.Request().Context()
	if req.NoteID != "" {
		ctx = logging.WithNoteID(ctx, req.NoteID)
		n, err := s.deps.Session.Get(req.NoteID)
		if err != nil {
			return s.apiError(c, err)
		}
		if req.Text == "" {
			req.Text = n.Content
		}
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	resp := EnhanceResponse{Result: s.deps.Enhancer.Enhance(ctx, req.Text, req.Tone)}
	if resp.Success && req.Apply {
		content := resp.Content
		n, err := s.deps.Session.Update(ctx, req.NoteID, notes.Patch{Content: &content})
		if err != nil {
			return s.apiError(c, err)
		}
		resp.Note = &n
	}
	return c.JSON(http.StatusOK, resp)
}

// noteContext returns the request context tagged with the :id route param.
func noteContext(c echo.Context) context.Context {
	return logging.WithNoteID(c.Request().Context(), c.Param("id"))
}

