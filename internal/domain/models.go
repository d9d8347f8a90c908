// Package domain defines the persistence models for airports and flights.
// These types are mapped with GORM and form the core data layer of the
// flight information service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Airport is a piece of reference data identified by its 4 character ICAO
// code. Airports are seeded at startup and are never modified through the API.
//
// Fields:
//   - ID: integer primary key assigned by the store.
//   - Code: ICAO identifier (e.g. "NZAA"); indexed for lookups by code.
//   - Name: display name, matched by substring in flight searches.
type Airport struct {
	ID   uint   `json:"id"   gorm:"primaryKey"`
	Code string `json:"code" gorm:"type:varchar(4);not null;index:idx_airport_code"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`
}

// TableName returns the database table name for Airport.
func (Airport) TableName() string { return "airports" }

// Flight is a scheduled movement between two airports.
//
// Fields:
//   - ID: integer primary key assigned by the store on create, immutable.
//   - FlightNumber: 1 to 7 alphanumeric characters (e.g. "ANZ680").
//   - Airline: operating airline name; optional.
//   - DepartureAirportID / ArrivalAirportID: foreign keys to airports.
//   - DepartureTime / ArrivalTime: instants with their original offset.
//   - Status: see FlightStatus; zero is never persisted.
//   - Version: concurrency token regenerated on every write.
type Flight struct {
	ID                 uint         `json:"id"            gorm:"primaryKey"`
	FlightNumber       string       `json:"flightNumber"  gorm:"type:varchar(7);not null"`
	Airline            string       `json:"airline"       gorm:"type:varchar(255);index:idx_flight_airline"`
	DepartureAirportID uint         `json:"-"             gorm:"not null;index"`
	ArrivalAirportID   uint         `json:"-"             gorm:"not null;index"`
	DepartureTime      time.Time    `json:"departureTime" gorm:"not null"`
	ArrivalTime        time.Time    `json:"arrivalTime"   gorm:"not null"`
	Status             FlightStatus `json:"status"        gorm:"not null;check:status BETWEEN 1 AND 5"`
	Version            uuid.UUID    `json:"version"       gorm:"type:char(36);not null"`

	DepartureAirport Airport `json:"-" gorm:"foreignKey:DepartureAirportID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	ArrivalAirport   Airport `json:"-" gorm:"foreignKey:ArrivalAirportID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Flight.
func (Flight) TableName() string { return "flights" }
