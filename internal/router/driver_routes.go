package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// RegisterDriver registers the driver endpoints under /v1/driver. Admins may
// read manifests too; the handler still checks bus assignment for drivers.
func RegisterDriver(e *echo.Echo, h *handler.DriverHandler, jwtSecret string) {
	g := e.Group("/v1/driver",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleDriver, model.RoleAdmin),
	)
	g.GET("/buses", h.MyBuses)
	g.GET("/buses/:id/manifest", h.Manifest)
}
