package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
)

// RegisterSeatMap registers the interactive seat map for every role. Each
// request is tied to a viewer session read from viewerHeader.
func RegisterSeatMap(e *echo.Echo, h *handler.SeatMapHandler, jwtSecret, viewerHeader string) {
	g := e.Group("/v1/buses/:id/seatmap",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(allRoles...),
		middleware.ViewerSession(viewerHeader),
	)
	g.GET("", h.SeatMap)
	g.POST("/toggle", h.Toggle)
	g.DELETE("/selection", h.ClearSelection)
}
