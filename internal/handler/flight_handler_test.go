package handler_test

import (
	"go-gin-flight-booking/internal/handler"
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/internal/service/mocks"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "go-gin-flight-booking/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupFlightTestRouter(flights *mocks.FlightServiceMock, bookings *mocks.BookingServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler.NewFlightHandler(flights, bookings).RegisterRoutes(router)
	return router
}

func TestSearchFlights(t *testing.T) {
	t.Run("Success - with filters", func(t *testing.T) {
		flights := mocks.NewFlightServiceMock()
		router := setupFlightTestRouter(flights, mocks.NewBookingServiceMock())

		day := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
		flights.On("Search", mock.Anything, model.FlightSearchParams{
			Origin:      "manila",
			Destination: "tokyo",
			Departure:   &day,
		}).Return([]*model.Flight{{ID: "flight-1", FlightNumber: "CCS-101"}}, nil).Once()

		req, _ := http.NewRequest("GET", "/api/v1/flights?origin=manila&destination=tokyo&departure=2030-05-01", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		flights.AssertExpectations(t)
	})

	t.Run("Failed - bad departure date", func(t *testing.T) {
		flights := mocks.NewFlightServiceMock()
		router := setupFlightTestRouter(flights, mocks.NewBookingServiceMock())

		req, _ := http.NewRequest("GET", "/api/v1/flights?departure=01/05/2030", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		flights.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})
}

func TestGetFlight(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		flights := mocks.NewFlightServiceMock()
		router := setupFlightTestRouter(flights, mocks.NewBookingServiceMock())

		flights.On("Get", mock.Anything, "flight-1").Return(&model.Flight{ID: "flight-1", FlightNumber: "CCS-101"}, nil).Once()

		req, _ := http.NewRequest("GET", "/api/v1/flights/flight-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "CCS-101", decodeBody(w.Body)["flight_number"])
	})

	t.Run("Failed - not found", func(t *testing.T) {
		flights := mocks.NewFlightServiceMock()
		router := setupFlightTestRouter(flights, mocks.NewBookingServiceMock())

		flights.On("Get", mock.Anything, "missing").Return(nil, apperrors.ErrFlightNotFound).Once()

		req, _ := http.NewRequest("GET", "/api/v1/flights/missing", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetSeatMap(t *testing.T) {
	bookings := mocks.NewBookingServiceMock()
	router := setupFlightTestRouter(mocks.NewFlightServiceMock(), bookings)

	bookings.On("SeatMap", mock.Anything, "flight-1").Return(&model.SeatMap{
		FlightID:  "flight-1",
		Capacity:  10,
		Occupied:  []string{"1A"},
		Available: 9,
	}, nil).Once()

	req, _ := http.NewRequest("GET", "/api/v1/flights/flight-1/seats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(w.Body)
	assert.Equal(t, []interface{}{"1A"}, body["occupied"])
	assert.Equal(t, 9.0, body["available"])
	bookings.AssertExpectations(t)
}
