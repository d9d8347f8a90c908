// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Flight
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When a flight is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Conditional writes whose version guard matched no row return
//     ErrStaleVersion.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - GetFlight(ctx, db, id) -> *domain.Flight, error
//     Loads one flight with both airports, or ErrNotFound.
//
//   - ListFlights(ctx, db, scopes...) -> []domain.Flight, error
//     Loads flights with airports, ordered by id, narrowed by scopes.
//
//   - CreateFlight(ctx, db, f) -> error
//     Inserts a flight; f.ID is set from the store.
//
//   - UpdateFlightIfVersion(ctx, db, f, expected) -> error
//     Overwrites every mutable column where id and version still match.
//
//   - DeleteFlightIfVersion(ctx, db, id, expected) -> error
//     Physically deletes the row where id and version still match.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleVersion is returned by the conditional writes when no row carried
// the expected version at write time.
var ErrStaleVersion = errors.New("stale version")

// Scope narrows a flight query. search.Scope produces values of this type.
type Scope = func(*gorm.DB) *gorm.DB

// GetFlight fetches a single flight by id with both airports preloaded.
// It returns ErrNotFound if the flight does not exist.
func GetFlight(ctx context.Context, db *gorm.DB, id uint) (*domain.Flight, error) {
	var f domain.Flight
	err := db.WithContext(ctx).
		Preload("DepartureAirport").
		Preload("ArrivalAirport").
		Where("flights.id = ?", id).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFlights returns flights with both airports preloaded, ordered by id.
// Scopes are applied in order before the query runs.
func ListFlights(ctx context.Context, db *gorm.DB, scopes ...Scope) ([]domain.Flight, error) {
	var out []domain.Flight
	err := db.WithContext(ctx).
		Model(&domain.Flight{}).
		Scopes(scopes...).
		Preload("DepartureAirport").
		Preload("ArrivalAirport").
		Order("flights.id asc").
		Find(&out).Error
	return out, err
}

// CreateFlight inserts f without touching its airport associations; the
// airport foreign keys must already be set.
func CreateFlight(ctx context.Context, db *gorm.DB, f *domain.Flight) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(f).Error
}

// UpdateFlightIfVersion overwrites every mutable column of the row f.ID
// (including the new f.Version) only if the stored version still equals
// expected. Zero matched rows yields ErrStaleVersion.
func UpdateFlightIfVersion(ctx context.Context, db *gorm.DB, f *domain.Flight, expected uuid.UUID) error {
	res := db.WithContext(ctx).
		Model(&domain.Flight{}).
		Where("id = ? AND version = ?", f.ID, expected).
		Updates(map[string]any{
			"flight_number":        f.FlightNumber,
			"airline":              f.Airline,
			"departure_airport_id": f.DepartureAirportID,
			"arrival_airport_id":   f.ArrivalAirportID,
			"departure_time":       f.DepartureTime,
			"arrival_time":         f.ArrivalTime,
			"status":               f.Status,
			"version":              f.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

// DeleteFlightIfVersion removes the row id only if its stored version equals
// expected. Zero matched rows yields ErrStaleVersion.
func DeleteFlightIfVersion(ctx context.Context, db *gorm.DB, id uint, expected uuid.UUID) error {
	res := db.WithContext(ctx).
		Where("id = ? AND version = ?", id, expected).
		Delete(&domain.Flight{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}
