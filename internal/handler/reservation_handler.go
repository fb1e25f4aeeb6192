package handler

import (
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	service service.BookingService
}

func NewReservationHandler(service service.BookingService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("pricing", h.GetPriceTable)
		router.POST("reservations/quote", h.QuoteReservation)
		router.GET("reservations", h.GetReservations)
		router.GET("reservations/:id", h.GetReservation)
		router.POST("reservations", h.CreateReservation)
		router.PUT("reservations/:id/passengers/:passengerId/package", h.UpdatePassengerPackage)
		router.DELETE("reservations/:id/passengers/:passengerId/package", h.RemovePassengerPackage)
		router.PUT("reservations/:id/confirm", h.ConfirmReservation)
		router.PUT("reservations/:id/cancel", h.CancelReservation)
	}
}

func (h *ReservationHandler) GetPriceTable(c *gin.Context) {
	handleSuccess(c, h.service.PriceTable(), http.StatusOK)
}

func (h *ReservationHandler) QuoteReservation(c *gin.Context) {
	var req model.QuoteRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	quote, err := h.service.Quote(c, req)
	if err != nil {
		handleError(c, err, "QuoteReservation")
		return
	}
	handleSuccess(c, quote, http.StatusOK)
}

func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req model.CreateReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	created, err := h.service.CreateReservation(c, req)
	if err != nil {
		handleError(c, err, "CreateReservation")
		return
	}
	handleSuccess(c, created, http.StatusCreated)
}

func (h *ReservationHandler) GetReservations(c *gin.Context) {
	reservations, err := h.service.ListReservations(c, c.Query("flight_id"))
	if err != nil {
		handleError(c, err, "GetReservations")
		return
	}
	handleSuccess(c, reservations, http.StatusOK)
}

func (h *ReservationHandler) GetReservation(c *gin.Context) {
	reservation, err := h.service.GetReservation(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "GetReservation")
		return
	}
	handleSuccess(c, reservation, http.StatusOK)
}

func (h *ReservationHandler) UpdatePassengerPackage(c *gin.Context) {
	var in model.PackageInput
	if err := BindJson(c, &in); err != nil {
		return
	}

	updated, err := h.service.UpdatePassengerPackage(c, c.Param("id"), c.Param("passengerId"), in)
	if err != nil {
		handleError(c, err, "UpdatePassengerPackage")
		return
	}
	handleSuccess(c, updated, http.StatusOK)
}

func (h *ReservationHandler) RemovePassengerPackage(c *gin.Context) {
	updated, err := h.service.RemovePassengerPackage(c, c.Param("id"), c.Param("passengerId"))
	if err != nil {
		handleError(c, err, "RemovePassengerPackage")
		return
	}
	handleSuccess(c, updated, http.StatusOK)
}

func (h *ReservationHandler) ConfirmReservation(c *gin.Context) {
	confirmed, err := h.service.ConfirmReservation(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "ConfirmReservation")
		return
	}
	handleSuccess(c, confirmed, http.StatusOK)
}

func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	cancelled, err := h.service.CancelReservation(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "CancelReservation")
		return
	}
	handleSuccess(c, cancelled, http.StatusOK)
}
