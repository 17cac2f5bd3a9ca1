package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-class-booking/internal/identity"
	"github.com/iliyamo/gym-class-booking/internal/service"
)

// CheckInHandler drives the front-desk flow: members fetch a short
// lived QR token, the desk scans it and posts it back with the session
// being entered.
type CheckInHandler struct {
	Bookings *service.BookingService
	Resolver *identity.Resolver
}

func NewCheckInHandler(b *service.BookingService, r *identity.Resolver) *CheckInHandler {
	return &CheckInHandler{Bookings: b, Resolver: r}
}

type checkInReq struct {
	QRToken   string `json:"qr_token"`
	SessionID uint64 `json:"session_id"`
}

// QRCode handles GET /v1/me/qr: issues a fresh QR token for the
// authenticated member.
func (h *CheckInHandler) QRCode(c echo.Context) error {
	memberID, ok := memberIDFromCtx(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token, exp, err := h.Resolver.NewToken(memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue qr failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"qr_token": token, "expires": exp})
}

// CheckIn handles POST /v1/checkin.  The desk terminal is authenticated
// as staff; the member is identified by the scanned QR token, so the
// flow never needs the member's own credentials at the door.
func (h *CheckInHandler) CheckIn(c echo.Context) error {
	var req checkInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.QRToken) == "" || req.SessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_token and session_id required"})
	}

	memberID, err := h.Resolver.ResolveMember(req.QRToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired qr token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve member failed"})
	}

	res, err := h.Bookings.CheckIn(c.Request().Context(), memberID, req.SessionID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}
