package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-class-booking/internal/model"
	"github.com/iliyamo/gym-class-booking/internal/repository"
)

// SessionBrowseHandler serves the public weekly timetable.  No auth
// required; responses sit behind the Redis cache middleware.
type SessionBrowseHandler struct {
	Sessions    *repository.SessionRepo
	Occurrences *repository.OccurrenceRepo
}

func NewSessionBrowseHandler(s *repository.SessionRepo, o *repository.OccurrenceRepo) *SessionBrowseHandler {
	return &SessionBrowseHandler{Sessions: s, Occurrences: o}
}

type sessionResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Capacity    uint32 `json:"capacity"`
	Weekday     uint8  `json:"weekday"`
	StartsAt    string `json:"starts_at"` // clock time, HH:MM
	EndsAt      string `json:"ends_at"`
	Active      bool   `json:"active"`
}

// occurrenceResp extends a session with the seat availability of one
// concrete date.  Seats are counted per date, so availability only
// exists relative to an occurrence.
type occurrenceResp struct {
	sessionResp
	OccurrenceDate string `json:"occurrence_date"`
	Available      uint32 `json:"available"`
}

const clockLayout = "15:04"

func toSessionResp(s *model.Session) sessionResp {
	return sessionResp{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Capacity:    s.Capacity,
		Weekday:     s.Weekday,
		StartsAt:    s.StartsAt.UTC().Format(clockLayout),
		EndsAt:      s.EndsAt.UTC().Format(clockLayout),
		Active:      s.Active,
	}
}

// List handles GET /v1/sessions: the active timetable.
func (h *SessionBrowseHandler) List(c echo.Context) error {
	sessions, err := h.Sessions.List(c.Request().Context(), true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sessionResp, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResp(&sessions[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// Get handles GET /v1/sessions/:id.  With a ?date=YYYY-MM-DD query the
// response includes the live seat availability for that occurrence;
// the date must fall on the session's weekday.
func (h *SessionBrowseHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	dateStr := c.QueryParam("date")
	if dateStr == "" {
		return c.JSON(http.StatusOK, toSessionResp(s))
	}
	date, err := model.ParseOccurrenceDate(dateStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if !s.OccursOn(date) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "session does not run on this date"})
	}
	occupied, err := h.Occurrences.OccupiedOn(ctx, id, dateStr)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	occ := model.Occurrence{SessionID: id, Date: dateStr, Occupied: occupied}
	return c.JSON(http.StatusOK, occurrenceResp{
		sessionResp:    toSessionResp(s),
		OccurrenceDate: dateStr,
		Available:      occ.SeatsLeft(s.Capacity),
	})
}
