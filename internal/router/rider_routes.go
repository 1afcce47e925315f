package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// RegisterRider registers the rider booking endpoints under /v1. Booking
// without an explicit seat list takes the selection of the viewer session
// named in viewerHeader.
func RegisterRider(e *echo.Echo, h *handler.ReservationHandler, jwtSecret, viewerHeader string) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser),
		middleware.ViewerSession(viewerHeader),
	}
	e.POST("/v1/reservations", h.Reserve, auth...)
	e.GET("/v1/my-reservations", h.MyReservations, auth...)
	e.DELETE("/v1/reservations/:id", h.CancelMine, auth...)
}
