package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrFlightNotFound          = errors.New("flight not found")
	ErrFlightUnavailable       = errors.New("flight unavailable")
	ErrSeatConflict            = errors.New("seat conflict")
	ErrPassengerNotFound       = errors.New("passenger not found")
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrValidation              = errors.New("validation error")
	ErrStoreFailure            = errors.New("store failure")
	ErrDuplicateSeat           = errors.New("duplicate seat")
	ErrInvalidStatusTransition = errors.New("invalid reservation status transition")
	ErrInvalidInput            = errors.New("invalid input")
)

// SeatConflictError 座位已被其他有效訂位佔用
type SeatConflictError struct {
	Seat     string
	Occupied []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s is already taken", e.Seat)
}

func (e *SeatConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}

func NewSeatConflict(seat string, occupied []string) *SeatConflictError {
	return &SeatConflictError{Seat: seat, Occupied: occupied}
}

// ValidationError 欄位驗證失敗（沒有安全預設值可用時才會出現）
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid field %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError 包裝持久層錯誤，不做自動重試
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// domainErrors 已是領域錯誤，不需要再包成 StoreError
var domainErrors = []error{
	ErrFlightNotFound,
	ErrFlightUnavailable,
	ErrSeatConflict,
	ErrPassengerNotFound,
	ErrReservationNotFound,
	ErrValidation,
	ErrDuplicateSeat,
	ErrInvalidStatusTransition,
	ErrInvalidInput,
	ErrStoreFailure,
}

// WrapStore 將非領域錯誤包成 StoreError；nil 與領域錯誤原樣返回
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound 是否為任一種找不到的錯誤
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFlightNotFound) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrPassengerNotFound)
}
