package middleware

// identity.go holds helpers shared across middleware files.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentMemberID returns a stable string identifier for the
// authenticated member, or "anon" for unauthenticated requests.  Rate
// limit keys use it so signed-in members are bucketed per account
// rather than per source address.
func currentMemberID(c echo.Context) string {
	switch v := c.Get("member_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		// MapClaims decodes numeric subjects as float64.
		return strconv.FormatInt(int64(v), 10)
	}
	return "anon"
}
