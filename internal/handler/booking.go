package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-class-booking/internal/model"
	"github.com/iliyamo/gym-class-booking/internal/repository"
	"github.com/iliyamo/gym-class-booking/internal/service"
)

// BookingHandler exposes the member-facing booking endpoints: book a
// class occurrence, cancel, and list or inspect own bookings.
type BookingHandler struct {
	Bookings     *service.BookingService
	Reservations *repository.ReservationRepo
}

func NewBookingHandler(b *service.BookingService, r *repository.ReservationRepo) *BookingHandler {
	return &BookingHandler{Bookings: b, Reservations: r}
}

type bookReq struct {
	Date string `json:"date"` // occurrence date, YYYY-MM-DD
}

type reservationResp struct {
	ID               uint64  `json:"id"`
	SessionID        uint64  `json:"session_id"`
	OccurrenceDate   string  `json:"occurrence_date"`
	Status           string  `json:"status"`
	Waitlisted       bool    `json:"waitlisted"`
	WaitlistPosition *uint32 `json:"waitlist_position,omitempty"`
}

func toReservationResp(r *model.Reservation) reservationResp {
	return reservationResp{
		ID:               r.ID,
		SessionID:        r.SessionID,
		OccurrenceDate:   r.OccurrenceDate,
		Status:           r.Status,
		Waitlisted:       r.Waitlisted,
		WaitlistPosition: r.WaitlistPosition,
	}
}

// Book handles POST /v1/sessions/:id/bookings.  A 201 carries the
// reservation either seated or waitlisted; going on the waitlist is a
// success, not an error.
func (h *BookingHandler) Book(c echo.Context) error {
	memberID, ok := memberIDFromCtx(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if _, err := model.ParseOccurrenceDate(req.Date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}

	res, err := h.Bookings.Book(c.Request().Context(), memberID, sessionID, req.Date)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// Cancel handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	memberID, ok := memberIDFromCtx(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	res, err := h.Bookings.Cancel(c.Request().Context(), reservationID, memberID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	memberID, ok := memberIDFromCtx(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	res, err := h.Bookings.Get(c.Request().Context(), reservationID, memberID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// MyBookings handles GET /v1/my-bookings: every reservation of the
// authenticated member with session details, newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	memberID, ok := memberIDFromCtx(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Reservations.ListByMember(c.Request().Context(), memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

// bookingError maps coordinator and repository errors onto HTTP
// statuses.  Anything unrecognized is a 500.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, service.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
	case errors.Is(err, service.ErrDuplicateBooking):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already booked for this occurrence"})
	case errors.Is(err, service.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	case errors.Is(err, service.ErrNotCancellable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking can no longer be cancelled"})
	case errors.Is(err, service.ErrAlreadyAttended):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already checked in"})
	case errors.Is(err, service.ErrStillWaitlisted):
		return c.JSON(http.StatusConflict, echo.Map{"error": "waitlisted bookings cannot check in"})
	case errors.Is(err, service.ErrTooLateToCancel):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "cancellation window has closed"})
	case errors.Is(err, service.ErrSessionInactive):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "session is not bookable"})
	case errors.Is(err, service.ErrWrongWeekday):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "session does not run on this date"})
	case errors.Is(err, service.ErrSessionInPast):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "occurrence already started"})
	case errors.Is(err, repository.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is full"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking operation failed"})
}
