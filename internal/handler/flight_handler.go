package handler

import (
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	flights  service.FlightService
	bookings service.BookingService
}

func NewFlightHandler(flights service.FlightService, bookings service.BookingService) *FlightHandler {
	return &FlightHandler{flights: flights, bookings: bookings}
}

func (h *FlightHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("flights", h.SearchFlights)
		router.GET("flights/:id", h.GetFlight)
		router.GET("flights/:id/seats", h.GetSeatMap)
	}
}

// SearchFlightsQuery 出發日格式 YYYY-MM-DD
type SearchFlightsQuery struct {
	Origin      string `form:"origin"`
	Destination string `form:"destination"`
	Departure   string `form:"departure"`
}

func (h *FlightHandler) SearchFlights(c *gin.Context) {
	var query SearchFlightsQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	params := model.FlightSearchParams{
		Origin:      query.Origin,
		Destination: query.Destination,
	}
	if query.Departure != "" {
		day, err := time.Parse(time.DateOnly, query.Departure)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "departure must be YYYY-MM-DD"})
			return
		}
		params.Departure = &day
	}

	flights, err := h.flights.Search(c, params)
	if err != nil {
		handleError(c, err, "SearchFlights")
		return
	}
	handleSuccess(c, flights, http.StatusOK)
}

func (h *FlightHandler) GetFlight(c *gin.Context) {
	flight, err := h.flights.Get(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "GetFlight")
		return
	}
	handleSuccess(c, flight, http.StatusOK)
}

func (h *FlightHandler) GetSeatMap(c *gin.Context) {
	seatMap, err := h.bookings.SeatMap(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "GetSeatMap")
		return
	}
	handleSuccess(c, seatMap, http.StatusOK)
}
