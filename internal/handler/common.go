package handler

import (
	"errors"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"go-gin-flight-booking/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// handleError 領域錯誤對應 HTTP 狀態碼
func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var conflict *apperrors.SeatConflictError
	var invalid *apperrors.ValidationError

	switch {
	case errors.As(err, &conflict):
		log.Warn("Seat conflict")
		// 帶回目前佔用的座位，讓使用者保留其他輸入重新選位
		c.JSON(http.StatusConflict, gin.H{
			"error":          "Seat already taken",
			"seat":           conflict.Seat,
			"occupied_seats": conflict.Occupied,
		})
	case errors.Is(err, apperrors.ErrSeatConflict), errors.Is(err, apperrors.ErrDuplicateSeat):
		log.Warn("Seat conflict")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Seat already taken",
		})
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		log.Warn("Invalid status transition")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Reservation can no longer be changed",
		})
	case apperrors.IsNotFound(err):
		log.Warn("Resource not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": notFoundMessage(err),
		})
	case errors.Is(err, apperrors.ErrFlightUnavailable):
		log.Warn("Flight unavailable")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Flight is not available for booking",
		})
	case errors.As(err, &invalid):
		log.Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  invalid.Error(),
			"field":  invalid.Field,
			"reason": invalid.Reason,
		})
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrFlightNotFound):
		return "Flight not found"
	case errors.Is(err, apperrors.ErrReservationNotFound):
		return "Reservation not found"
	}
	return "Passenger not found"
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
