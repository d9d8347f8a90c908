package services

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
	"github.com/tbourn/go-flight-info-backend/internal/utils"
	"github.com/tbourn/go-flight-info-backend/internal/validation"
)

// Messages reported by the command rules.
const (
	MsgFlightNumberFormat = "Value must be 1 to 7 alphanumeric characters"
	MsgAirportCodeLength  = "Value must be 4 character ICAO airport identifier"
	MsgStatusInvalid      = "Status enum must be a valid FlightStatus"
	MsgDeleteSummary      = "Delete flight request must have positive FlightID and non-empty Version"
	MsgArrivalNotAfter    = "Arrival time must be after departure time."
	MsgAirportNotFound    = "Airport with code %s not found."
)

// SetFlightCommand creates a flight (ID == 0) or replaces every mutable field
// of an existing one (ID != 0). Version is required for replacement and
// ignored for creation.
type SetFlightCommand struct {
	ID               uint                `json:"-"`
	FlightNumber     string              `json:"flightNumber"     example:"ANZ991"`
	Airline          string              `json:"airline"          example:"Air New Zealand"`
	DepartureAirport string              `json:"departureAirport" example:"NZPM"`
	ArrivalAirport   string              `json:"arrivalAirport"   example:"NZAA"`
	DepartureTime    time.Time           `json:"departureTime"    example:"2024-08-15T08:20:00Z"`
	ArrivalTime      time.Time           `json:"arrivalTime"      example:"2024-08-15T09:20:00Z"`
	Status           domain.FlightStatus `json:"status"           swaggertype:"string" example:"Scheduled"`
	Version          uuid.UUID           `json:"version"          swaggertype:"string" format:"uuid"`
}

// normalize trims text fields and upper-cases airport codes.
func (c *SetFlightCommand) normalize() {
	c.FlightNumber = strings.TrimSpace(c.FlightNumber)
	c.Airline = utils.NormalizeText(c.Airline)
	c.DepartureAirport = strings.ToUpper(strings.TrimSpace(c.DepartureAirport))
	c.ArrivalAirport = strings.ToUpper(strings.TrimSpace(c.ArrivalAirport))
}

// DeleteFlightCommand removes a flight if Version still matches. ID is signed
// so non-positive values from the transport reach validation.
type DeleteFlightCommand struct {
	ID      int64
	Version uuid.UUID
}

var flightNumberRE = regexp.MustCompile(`^[A-Za-z0-9]{1,7}$`)

var setFlightRules = func() *validation.Registry[SetFlightCommand] {
	r := validation.New[SetFlightCommand]()
	validation.Field(r, "flightNumber",
		func(c *SetFlightCommand) string { return c.FlightNumber },
		validation.RequiresValue[string](),
		validation.Matches(flightNumberRE, MsgFlightNumberFormat))
	validation.Field(r, "departureAirport",
		func(c *SetFlightCommand) string { return c.DepartureAirport },
		validation.RequiresValue[string](),
		validation.ExactLength(4, MsgAirportCodeLength))
	validation.Field(r, "arrivalAirport",
		func(c *SetFlightCommand) string { return c.ArrivalAirport },
		validation.RequiresValue[string](),
		validation.ExactLength(4, MsgAirportCodeLength))
	validation.Field(r, "departureTime",
		func(c *SetFlightCommand) time.Time { return c.DepartureTime },
		validation.RequiresValue[time.Time]())
	validation.Field(r, "arrivalTime",
		func(c *SetFlightCommand) time.Time { return c.ArrivalTime },
		validation.RequiresValue[time.Time]())
	validation.Field(r, "status",
		func(c *SetFlightCommand) domain.FlightStatus { return c.Status },
		validation.OneOf(MsgStatusInvalid, domain.FlightStatuses()...))
	validation.FieldIf(r, "version",
		func(c *SetFlightCommand) bool { return c.ID != 0 },
		func(c *SetFlightCommand) uuid.UUID { return c.Version },
		validation.RequiresValue[uuid.UUID]())
	return r
}()

var deleteFlightRules = func() *validation.Registry[DeleteFlightCommand] {
	r := validation.New[DeleteFlightCommand]()
	validation.Field(r, "id",
		func(c *DeleteFlightCommand) int64 { return c.ID },
		validation.RequiresValue[int64](),
		validation.Between[int64](1, math.MaxInt32, "The {field} field must be between 1 and 2147483647"))
	validation.Field(r, "version",
		func(c *DeleteFlightCommand) uuid.UUID { return c.Version },
		validation.RequiresValue[uuid.UUID]())
	return r
}()

// ValidateSetFlight runs the structural rules for SetFlightCommand.
func ValidateSetFlight(cmd SetFlightCommand) error {
	cmd.normalize()
	return newValidationError("", setFlightRules.Validate(&cmd))
}

// ValidateDeleteFlight runs the structural rules for DeleteFlightCommand.
func ValidateDeleteFlight(cmd DeleteFlightCommand) error {
	return newValidationError(MsgDeleteSummary, deleteFlightRules.Validate(&cmd))
}
