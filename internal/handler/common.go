package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// memberIDFromCtx extracts the authenticated member ID stored by the
// JWT middleware.  MapClaims decodes numeric subjects as float64;
// string subjects are parsed.
func memberIDFromCtx(c echo.Context) (uint64, bool) {
	switch v := c.Get("member_id").(type) {
	case float64:
		if v > 0 {
			return uint64(v), true
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
