package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ViewerIDKey is the context key holding the viewer session id.
const ViewerIDKey = "viewer_id"

// ViewerSession reads the viewer session id from header. Clients that send
// none, or send something that is not a UUID, get a new one; it is echoed in
// the response header either way so the client can reuse it on the next
// request from the same tab.
func ViewerSession(header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(header))
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			c.Set(ViewerIDKey, id)
			c.Response().Header().Set(header, id)
			return next(c)
		}
	}
}

// ViewerID returns the id stored by ViewerSession.
func ViewerID(c echo.Context) string {
	id, _ := c.Get(ViewerIDKey).(string)
	return id
}
