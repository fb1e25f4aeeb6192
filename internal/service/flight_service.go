package service

import (
	"context"
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/internal/repository"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"go-gin-flight-booking/pkg/logger"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FlightService interface {
	List(ctx context.Context) ([]*model.Flight, error)
	// Search 起訖地不分大小寫部分比對，出發日以 UTC 當天計算
	Search(ctx context.Context, params model.FlightSearchParams) ([]*model.Flight, error)
	Get(ctx context.Context, id string) (*model.Flight, error)
	Create(ctx context.Context, flight *model.Flight) (*model.Flight, error)
	// SeedSampleFlights 目錄為空時建立示範航班
	SeedSampleFlights(ctx context.Context) (int, error)
}

type FlightServiceImpl struct {
	repo     repository.FlightRepository
	validate *validator.Validate
}

func NewFlightService(repo repository.FlightRepository) FlightService {
	return &FlightServiceImpl{repo: repo, validate: newValidator()}
}

func (s *FlightServiceImpl) List(ctx context.Context) ([]*model.Flight, error) {
	flights, err := s.repo.ListFlights(ctx)
	if err != nil {
		return nil, apperrors.WrapStore("list_flights", err)
	}
	return flights, nil
}

func (s *FlightServiceImpl) Search(ctx context.Context, params model.FlightSearchParams) ([]*model.Flight, error) {
	params.Origin = strings.TrimSpace(params.Origin)
	params.Destination = strings.TrimSpace(params.Destination)
	if params.IsEmpty() {
		return s.List(ctx)
	}

	flights, err := s.repo.SearchFlights(ctx, params)
	if err != nil {
		return nil, apperrors.WrapStore("search_flights", err)
	}
	return flights, nil
}

func (s *FlightServiceImpl) Get(ctx context.Context, id string) (*model.Flight, error) {
	flight, err := s.repo.FindFlight(ctx, id)
	if err != nil {
		return nil, apperrors.WrapStore("find_flight", err)
	}
	return flight, nil
}

func (s *FlightServiceImpl) Create(ctx context.Context, flight *model.Flight) (*model.Flight, error) {
	flight.FlightNumber = strings.ToUpper(strings.TrimSpace(flight.FlightNumber))
	flight.Airline = strings.TrimSpace(flight.Airline)
	flight.Origin = strings.TrimSpace(flight.Origin)
	flight.Destination = strings.TrimSpace(flight.Destination)
	flight.AircraftType = strings.TrimSpace(flight.AircraftType)

	if err := s.validate.Struct(flight); err != nil {
		return nil, toValidationError("", err)
	}

	if flight.ID == "" {
		flight.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	flight.DepartureTime = flight.DepartureTime.UTC()
	flight.ArrivalTime = flight.ArrivalTime.UTC()
	flight.CreatedAt = now
	flight.UpdatedAt = now

	created, err := s.repo.CreateFlight(ctx, flight)
	if err != nil {
		return nil, apperrors.WrapStore("create_flight", err)
	}
	return created, nil
}

func (s *FlightServiceImpl) SeedSampleFlights(ctx context.Context) (int, error) {
	existing, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	seeded := 0
	for _, f := range sampleFlights(time.Now().UTC()) {
		if _, err := s.Create(ctx, f); err != nil {
			return seeded, err
		}
		seeded++
	}

	logger.WithComponent("service").Info("sample flights seeded", zap.Int("count", seeded))
	return seeded, nil
}

// sampleFlights 以明天 00:00 UTC 為基準的示範航班
func sampleFlights(now time.Time) []*model.Flight {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	at := func(offsetDays, hour, minute int) time.Time {
		return day.AddDate(0, 0, offsetDays).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	return []*model.Flight{
		{
			FlightNumber:  "CCS-101",
			Airline:       "Philippine Airlines",
			Origin:        "Manila",
			Destination:   "Tokyo",
			DepartureTime: at(0, 8, 0),
			ArrivalTime:   at(0, 13, 10),
			AircraftType:  "Boeing 737",
			SeatCapacity:  200,
			BaseFare:      10000,
			IsAvailable:   true,
		},
		{
			FlightNumber:  "CCS-202",
			Airline:       "Cebu Pacific",
			Origin:        "Manila",
			Destination:   "Cebu",
			DepartureTime: at(0, 15, 30),
			ArrivalTime:   at(0, 16, 50),
			AircraftType:  "Airbus A320",
			SeatCapacity:  180,
			BaseFare:      3500,
			IsAvailable:   true,
		},
		{
			FlightNumber:  "CCS-303",
			Airline:       "Philippine Airlines",
			Origin:        "Cebu",
			Destination:   "Singapore",
			DepartureTime: at(1, 10, 15),
			ArrivalTime:   at(1, 14, 0),
			AircraftType:  "Airbus A321",
			SeatCapacity:  190,
			BaseFare:      8200,
			IsAvailable:   true,
		},
		{
			FlightNumber:  "CCS-404",
			Airline:       "AirAsia",
			Origin:        "Davao",
			Destination:   "Manila",
			DepartureTime: at(2, 6, 45),
			ArrivalTime:   at(2, 8, 35),
			AircraftType:  "Airbus A320",
			SeatCapacity:  180,
			BaseFare:      2900,
			IsAvailable:   false,
		},
	}
}
