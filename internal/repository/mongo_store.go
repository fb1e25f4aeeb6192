package repository

import (
	"context"
	"errors"
	"fmt"
	"go-gin-flight-booking/internal/model"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"go-gin-flight-booking/pkg/logger"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	flightsCollection      = "flights"
	reservationsCollection = "reservations"
	seatHoldsCollection    = "seat_holds"

	// 新訂位在寫入訂位文件前就先佔座，太新的 hold 不能視為孤兒
	orphanHoldGrace = time.Minute
)

// seatHold 每個被有效訂位持有的座位一筆，_id 為 flightID:seat
// 靠 _id 唯一性擋掉重複訂位
type seatHold struct {
	ID            string    `bson:"_id"`
	FlightID      string    `bson:"flightId"`
	Seat          string    `bson:"seat"`
	ReservationID string    `bson:"reservationId"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func seatHoldID(flightID, seat string) string {
	return fmt.Sprintf("%s:%s", flightID, seat)
}

// MongoStore 以 MongoDB 實作 Store
type MongoStore struct {
	flights      *mongo.Collection
	reservations *mongo.Collection
	holds        *mongo.Collection
}

// NewMongoStore 建立 collection 與索引
func NewMongoStore(ctx context.Context, db *mongo.Database) (Store, error) {
	s := &MongoStore{
		flights:      db.Collection(flightsCollection),
		reservations: db.Collection(reservationsCollection),
		holds:        db.Collection(seatHoldsCollection),
	}

	_, err := s.flights.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "origin", Value: 1},
			{Key: "destination", Value: 1},
			{Key: "departureTime", Value: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create flights index: %w", err)
	}

	_, err = s.reservations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "flightId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.M{"createdAt": -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create reservations indexes: %w", err)
	}

	_, err = s.holds.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"reservationId": 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create seat_holds index: %w", err)
	}

	return s, nil
}

func (s *MongoStore) CreateFlight(ctx context.Context, flight *model.Flight) (*model.Flight, error) {
	if flight.ID == "" {
		return nil, apperrors.ErrInvalidInput
	}

	now := time.Now().UTC()
	f := *flight
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	if _, err := s.flights.InsertOne(ctx, f); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.ErrInvalidInput
		}
		return nil, fmt.Errorf("failed to create flight: %w", err)
	}
	return &f, nil
}

func (s *MongoStore) FindFlight(ctx context.Context, id string) (*model.Flight, error) {
	var flight model.Flight
	err := s.flights.FindOne(ctx, bson.M{"_id": id}).Decode(&flight)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrFlightNotFound
		}
		return nil, err
	}
	return &flight, nil
}

func (s *MongoStore) ListFlights(ctx context.Context) ([]*model.Flight, error) {
	return s.SearchFlights(ctx, model.FlightSearchParams{})
}

func (s *MongoStore) SearchFlights(ctx context.Context, params model.FlightSearchParams) ([]*model.Flight, error) {
	filter := bson.M{}
	if params.Origin != "" {
		filter["origin"] = bson.M{"$regex": regexp.QuoteMeta(params.Origin), "$options": "i"}
	}
	if params.Destination != "" {
		filter["destination"] = bson.M{"$regex": regexp.QuoteMeta(params.Destination), "$options": "i"}
	}
	if params.Departure != nil {
		start, end := params.DepartureWindow()
		filter["departureTime"] = bson.M{"$gte": start, "$lt": end}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "departureTime", Value: 1},
		{Key: "flightNumber", Value: 1},
	})
	cursor, err := s.flights.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	flights := make([]*model.Flight, 0)
	if err := cursor.All(ctx, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (s *MongoStore) ListActiveReservationsForFlight(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	filter := bson.M{
		"flightId": flightID,
		"status":   bson.M{"$ne": model.ReservationStatusCancelled},
	}
	return s.findReservations(ctx, filter, bson.D{{Key: "createdAt", Value: 1}})
}

// InsertReservation 先佔座位再寫訂位，任何一步失敗都會釋放已佔的座位
func (s *MongoStore) InsertReservation(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	if _, err := s.FindFlight(ctx, reservation.FlightID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := reservation.Clone()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	for i := range r.Passengers {
		if r.Passengers[i].CreatedAt.IsZero() {
			r.Passengers[i].CreatedAt = now
		}
		r.Passengers[i].UpdatedAt = now
	}

	held := make([]string, 0, len(r.Passengers))
	if r.IsActive() {
		for _, seat := range r.Seats() {
			if err := s.holdSeat(ctx, r.FlightID, seat, r.ID); err != nil {
				s.releaseHolds(held)
				return nil, err
			}
			held = append(held, seatHoldID(r.FlightID, seat))
		}
	}

	if _, err := s.reservations.InsertOne(ctx, r); err != nil {
		s.releaseHolds(held)
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.ErrInvalidInput
		}
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	return r, nil
}

func (s *MongoStore) UpdatePassengerPackage(ctx context.Context, reservationID, passengerID string, pkg model.OptionalPackage, totals model.Totals) (*model.Reservation, error) {
	current, err := s.FindReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !current.IsActive() {
		return nil, apperrors.ErrInvalidStatusTransition
	}
	passenger, _ := current.FindPassenger(passengerID)
	if passenger == nil {
		return nil, apperrors.ErrPassengerNotFound
	}

	oldSeat := passenger.OptionalPackage.Seat
	newSeat := pkg.Seat
	seatChanged := oldSeat != newSeat
	if seatChanged && newSeat != "" {
		if err := s.holdSeat(ctx, current.FlightID, newSeat, reservationID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	filter := bson.M{
		"_id":           reservationID,
		"status":        bson.M{"$ne": model.ReservationStatusCancelled},
		"passengers.id": passengerID,
	}
	update := bson.M{
		"$set": bson.M{
			"passengers.$.optionalPackage": pkg,
			"passengers.$.updatedAt":       now,
			"baseFareTotal":                totals.BaseFareTotal,
			"optionalPackageTotal":         totals.OptionalPackageTotal,
			"grandTotal":                   totals.GrandTotal,
			"updatedAt":                    now,
		},
	}

	result, err := s.reservations.UpdateOne(ctx, filter, update)
	if err != nil || result.MatchedCount == 0 {
		if seatChanged && newSeat != "" {
			s.releaseHolds([]string{seatHoldID(current.FlightID, newSeat)})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update passenger package: %w", err)
		}
		// 讀取之後被取消
		return nil, apperrors.ErrInvalidStatusTransition
	}

	// 更新已生效；舊座位沒放掉只會留下孤兒 hold，下次有人選它時回收
	if seatChanged && oldSeat != "" {
		_, err := s.holds.DeleteOne(ctx, bson.M{
			"_id":           seatHoldID(current.FlightID, oldSeat),
			"reservationId": reservationID,
		})
		if err != nil {
			logger.WithComponent("store").Warn("release old seat hold failed",
				zap.String("reservation_id", reservationID),
				zap.String("seat", oldSeat),
				zap.Error(err),
			)
		}
	}

	return s.FindReservation(ctx, reservationID)
}

func (s *MongoStore) CancelReservation(ctx context.Context, id string) (*model.Reservation, error) {
	reservation, err := s.transition(ctx, id,
		[]model.ReservationStatus{model.ReservationStatusPending, model.ReservationStatusConfirmed},
		model.ReservationStatusCancelled,
	)
	if err != nil {
		return nil, err
	}

	// 狀態已改為取消；hold 沒刪掉也會在下次佔座時被回收
	if _, err := s.holds.DeleteMany(ctx, bson.M{"reservationId": id}); err != nil {
		logger.WithComponent("store").Warn("release seat holds failed",
			zap.String("reservation_id", id),
			zap.Error(err),
		)
	}
	return reservation, nil
}

func (s *MongoStore) ConfirmReservation(ctx context.Context, id string) (*model.Reservation, error) {
	return s.transition(ctx, id,
		[]model.ReservationStatus{model.ReservationStatusPending},
		model.ReservationStatusConfirmed,
	)
}

// transition 以狀態作為更新條件，避免併發請求重複轉換
func (s *MongoStore) transition(ctx context.Context, id string, from []model.ReservationStatus, to model.ReservationStatus) (*model.Reservation, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reservation model.Reservation
	err := s.reservations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&reservation)
	if err == nil {
		return &reservation, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if _, err := s.FindReservation(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrInvalidStatusTransition
}

func (s *MongoStore) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	var reservation model.Reservation
	err := s.reservations.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (s *MongoStore) ListReservations(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	filter := bson.M{}
	if flightID != "" {
		filter["flightId"] = flightID
	}
	return s.findReservations(ctx, filter, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *MongoStore) findReservations(ctx context.Context, filter bson.M, sort bson.D) ([]*model.Reservation, error) {
	cursor, err := s.reservations.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reservations := make([]*model.Reservation, 0)
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *MongoStore) holdSeat(ctx context.Context, flightID, seat, reservationID string) error {
	hold := seatHold{
		ID:            seatHoldID(flightID, seat),
		FlightID:      flightID,
		Seat:          seat,
		ReservationID: reservationID,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.holds.InsertOne(ctx, hold)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to hold seat %s: %w", seat, err)
	}

	reclaimed, err := s.reclaimOrphanHold(ctx, hold)
	if err != nil {
		return err
	}
	if !reclaimed {
		return apperrors.ErrDuplicateSeat
	}
	return nil
}

// reclaimOrphanHold 原持有者已取消、不存在或不再使用該座位時接手 hold
func (s *MongoStore) reclaimOrphanHold(ctx context.Context, hold seatHold) (bool, error) {
	var existing seatHold
	err := s.holds.FindOne(ctx, bson.M{"_id": hold.ID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// 剛好被釋放
		if _, err := s.holds.InsertOne(ctx, hold); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to hold seat %s: %w", hold.Seat, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load seat hold %s: %w", hold.Seat, err)
	}

	orphan, err := s.isOrphanHold(ctx, existing)
	if err != nil || !orphan {
		return false, err
	}

	// 以原持有者為條件替換，同時有兩個請求回收時只有一個成功
	result, err := s.holds.ReplaceOne(ctx, bson.M{
		"_id":           existing.ID,
		"reservationId": existing.ReservationID,
	}, hold)
	if err != nil {
		return false, fmt.Errorf("failed to reclaim seat hold %s: %w", hold.Seat, err)
	}
	if result.MatchedCount == 0 {
		return false, nil
	}

	logger.WithComponent("store").Warn("reclaimed orphan seat hold",
		zap.String("hold", hold.ID),
		zap.String("previous_reservation_id", existing.ReservationID),
		zap.String("reservation_id", hold.ReservationID),
	)
	return true, nil
}

func (s *MongoStore) isOrphanHold(ctx context.Context, hold seatHold) (bool, error) {
	settled := time.Since(hold.CreatedAt) > orphanHoldGrace

	owner, err := s.FindReservation(ctx, hold.ReservationID)
	if errors.Is(err, apperrors.ErrReservationNotFound) {
		return settled, nil
	}
	if err != nil {
		return false, err
	}
	if !owner.IsActive() {
		return true, nil
	}
	for _, seat := range owner.Seats() {
		if seat == hold.Seat {
			return false, nil
		}
	}
	return settled, nil
}

// releaseHolds 補償用，請求的 context 可能已取消，改用獨立 context
func (s *MongoStore) releaseHolds(ids []string) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.holds.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		logger.WithComponent("store").Error("release seat holds failed",
			zap.Strings("holds", ids),
			zap.Error(err),
		)
	}
}
