package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-class-booking/internal/model"
	"github.com/iliyamo/gym-class-booking/internal/repository"
)

// AdminSessionHandler owns the timetable: admins create and edit class
// sessions, toggle whether they accept bookings, and list everything
// including deactivated entries.
type AdminSessionHandler struct {
	Sessions *repository.SessionRepo
}

func NewAdminSessionHandler(s *repository.SessionRepo) *AdminSessionHandler {
	return &AdminSessionHandler{Sessions: s}
}

type sessionReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Capacity    uint32 `json:"capacity"`
	Weekday     uint8  `json:"weekday"`   // 0 = Sunday .. 6 = Saturday
	StartsAt    string `json:"starts_at"` // clock time, HH:MM
	EndsAt      string `json:"ends_at"`
}

type setActiveReq struct {
	Active bool `json:"active"`
}

func (r *sessionReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	switch {
	case r.Name == "":
		return "name required"
	case r.Capacity == 0:
		return "capacity must be positive"
	case r.Weekday > 6:
		return "weekday must be 0..6"
	}
	if _, err := time.Parse(clockLayout, r.StartsAt); err != nil {
		return "starts_at must be HH:MM"
	}
	if _, err := time.Parse(clockLayout, r.EndsAt); err != nil {
		return "ends_at must be HH:MM"
	}
	return ""
}

// clockToTime anchors an HH:MM clock string on the zero date the
// sessions table uses for its reference timestamps.
func clockToTime(clock string) time.Time {
	t, _ := time.Parse(clockLayout, clock)
	return time.Date(2000, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// Create handles POST /v1/admin/sessions.
func (h *AdminSessionHandler) Create(c echo.Context) error {
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	s := &model.Session{
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Active:      true,
		Weekday:     req.Weekday,
		StartsAt:    clockToTime(req.StartsAt),
		EndsAt:      clockToTime(req.EndsAt),
	}
	if err := h.Sessions.Create(c.Request().Context(), s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, toSessionResp(s))
}

// Update handles PUT /v1/admin/sessions/:id.  Lowering capacity below
// the occupied count of any upcoming occurrence is rejected; freeing
// seats that members already hold is not an edit, it is a cancellation.
func (h *AdminSessionHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	s := &model.Session{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Weekday:     req.Weekday,
		StartsAt:    clockToTime(req.StartsAt),
		EndsAt:      clockToTime(req.EndsAt),
	}
	if err := h.Sessions.Update(ctx, s); err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, repository.ErrInvalidState):
			return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below booked occupancy"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update session failed"})
	}
	fresh, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reload session failed"})
	}
	return c.JSON(http.StatusOK, toSessionResp(fresh))
}

// SetActive handles PATCH /v1/admin/sessions/:id/active.  Deactivation
// stops new bookings; existing reservations are untouched.
func (h *AdminSessionHandler) SetActive(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Sessions.SetActive(c.Request().Context(), id, req.Active); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update session failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/admin/sessions: the full timetable including
// deactivated sessions.
func (h *AdminSessionHandler) List(c echo.Context) error {
	sessions, err := h.Sessions.List(c.Request().Context(), false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sessionResp, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResp(&sessions[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}
