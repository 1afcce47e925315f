package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// AdminHandlers groups the handlers served under /v1/admin.
type AdminHandlers struct {
	Auth         *handler.AuthHandler
	Buses        *handler.BusHandler
	Reservations *handler.ReservationHandler
}

// RegisterAdmin registers fleet, account and reservation management for the
// admin role. Direct booking and seat cancellation use the admin's seat-map
// selection when no seat list is posted.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret, viewerHeader string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.ViewerSession(viewerHeader),
	)
	g.GET("/users", h.Auth.ListUsers)
	g.POST("/users", h.Auth.CreateUser)

	g.GET("/dashboard", h.Buses.Dashboard)
	g.GET("/occupancy", h.Buses.Occupancy)
	g.POST("/routes", h.Buses.CreateRoute)
	g.PUT("/routes/:id", h.Buses.UpdateRoute)
	g.DELETE("/routes/:id", h.Buses.DeleteRoute)
	g.POST("/buses", h.Buses.CreateBus)
	g.PUT("/buses/:id", h.Buses.UpdateBus)
	g.DELETE("/buses/:id", h.Buses.DeleteBus)

	g.GET("/reservations", h.Reservations.AdminReservations)
	g.POST("/reservations/direct", h.Reservations.DirectBooking)
	g.POST("/reservations/:id/cancel", h.Reservations.AdminCancel)
	g.POST("/buses/:id/cancel-seats", h.Reservations.CancelSeats)
}
