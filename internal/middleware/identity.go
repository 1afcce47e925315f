package middleware

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated account id stored by JWTAuth. The claim
// may have been decoded as any numeric type or as a string.
func UserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return v, nil
	case int:
		if v >= 0 {
			return uint64(v), nil
		}
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
	case float64:
		if v >= 0 {
			return uint64(v), nil
		}
	case string:
		return strconv.ParseUint(v, 10, 64)
	}
	return 0, fmt.Errorf("no user id in context")
}

// Role returns the role stored by JWTAuth, or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// identityKey is used by the rate limiter: the account id when signed in,
// "anon" otherwise.
func identityKey(c echo.Context) string {
	if id, err := UserID(c); err == nil && id > 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
