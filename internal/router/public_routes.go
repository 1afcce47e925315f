package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
)

// RegisterPublic registers the guest catalogue: topologies, routes, buses
// and their per-date occupancy. cache, when non-nil, wraps every route so
// repeated listings are answered from Redis.
func RegisterPublic(e *echo.Echo, b *handler.BusHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/v1/topologies/:class", handler.Topology, mw...)
	e.GET("/v1/routes", b.ListRoutes, mw...)
	e.GET("/v1/buses", b.ListBuses, mw...)
	e.GET("/v1/buses/:id", b.GetBus, mw...)
	e.GET("/v1/buses/:id/seats", b.BusSeats, mw...)
}
