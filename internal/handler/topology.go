package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
)

// Topology handles GET /v1/topologies/:class: the empty seat list of a
// capacity class, laid out for the caller's view.
func Topology(c echo.Context) error {
	class, err := seatmap.ParseCapacityClass(c.Param("class"))
	if err != nil {
		if errors.Is(err, seatmap.ErrUnknownCapacityClass) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown bus type"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	seats := seatmap.Generate(class)
	return c.JSON(http.StatusOK, echo.Map{
		"bus_type":    class,
		"total_seats": class.TotalSeats(),
		"last_row":    class.LastRow(),
		"seats":       seats,
	})
}
