// Package services – FlightCommandService
//
// This file implements the write side of the flight API. Every command runs
// the same pipeline:
//
//  1. structural validation through the rule registries in commands.go
//  2. domain rules (time ordering, airport existence) against the read store
//  3. the write itself in one transaction on the write store, guarded by the
//     flight's version token
//  4. a best-effort change event once the transaction has committed
//
// Failures are reported with the taxonomy in errors.go. Observability: each
// command opens an OpenTelemetry span and increments
// flight_commands_total{command,outcome}.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
	"github.com/tbourn/go-flight-info-backend/internal/events"
	"github.com/tbourn/go-flight-info-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// flightCommands counts command outcomes. Outcomes are the error kinds from
// errors.go plus "ok" and "error".
var flightCommands = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flight_commands_total",
		Help: "Flight commands handled, by command and outcome.",
	},
	[]string{"command", "outcome"},
)

func init() {
	prometheus.MustRegister(flightCommands)
}

// FlightCommandService handles SetFlight and DeleteFlight.
type FlightCommandService struct {
	// Write receives every insert, update and delete.
	Write *gorm.DB
	// Read serves airport lookups. Falls back to Write when nil.
	Read *gorm.DB
	// Events receives change notifications after commit. Nil disables them.
	Events events.Publisher

	// Now is the clock used for event timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewFlightCommandService wires a command service over the given stores.
func NewFlightCommandService(write, read *gorm.DB, pub events.Publisher) *FlightCommandService {
	return &FlightCommandService{Write: write, Read: read, Events: pub}
}

// SetFlight validates cmd and either inserts a new flight (cmd.ID == 0) or
// replaces an existing one. It returns the flight id.
//
// Errors:
//   - *ValidationError (ErrValidation) for structural failures, including a
//     missing version when cmd.ID != 0
//   - *BusinessRuleError (ErrBusinessRule) when arrival is not after departure
//     or an airport code is unknown; arrival is checked before departure
//   - ErrFlightNotFound when cmd.ID names no flight
//   - ErrVersionConflict when cmd.Version is stale, including when another
//     writer commits between the load and the guarded update
func (s *FlightCommandService) SetFlight(ctx context.Context, cmd SetFlightCommand) (uint, error) {
	tr := otel.Tracer("services/FlightCommandService")
	ctx, span := tr.Start(ctx, "SetFlight",
		trace.WithAttributes(
			attribute.Int64("flight.id", int64(cmd.ID)),
			attribute.String("flight.number", cmd.FlightNumber),
		),
	)
	defer span.End()

	cmd.normalize()
	id, ev, err := s.setFlight(ctx, cmd)
	finish(ctx, span, "set", err)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, ev)
	return id, nil
}

func (s *FlightCommandService) setFlight(ctx context.Context, cmd SetFlightCommand) (uint, events.FlightEvent, error) {
	if err := ValidateSetFlight(cmd); err != nil {
		return 0, events.FlightEvent{}, err
	}
	if !cmd.ArrivalTime.After(cmd.DepartureTime) {
		return 0, events.FlightEvent{}, businessRule(MsgArrivalNotAfter)
	}
	dep, arr, err := s.resolveAirports(ctx, cmd.DepartureAirport, cmd.ArrivalAirport)
	if err != nil {
		return 0, events.FlightEvent{}, err
	}

	f := &domain.Flight{
		ID:                 cmd.ID,
		FlightNumber:       cmd.FlightNumber,
		Airline:            cmd.Airline,
		DepartureAirportID: dep.ID,
		ArrivalAirportID:   arr.ID,
		DepartureTime:      cmd.DepartureTime,
		ArrivalTime:        cmd.ArrivalTime,
		Status:             cmd.Status,
		Version:            domain.NewVersion(),
	}

	if cmd.ID == 0 {
		if err := repo.CreateFlight(ctx, s.Write, f); err != nil {
			return 0, events.FlightEvent{}, err
		}
		return f.ID, s.event(events.FlightCreated, f), nil
	}

	err = s.Write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := repo.GetFlight(ctx, tx, cmd.ID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrFlightNotFound
			}
			return err
		}
		if domain.DetectConflict(stored.Version, cmd.Version) == domain.VersionConflict {
			return ErrVersionConflict
		}
		if err := repo.UpdateFlightIfVersion(ctx, tx, f, cmd.Version); err != nil {
			if errors.Is(err, repo.ErrStaleVersion) {
				return ErrVersionConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, events.FlightEvent{}, err
	}
	return f.ID, s.event(events.FlightUpdated, f), nil
}

// resolveAirports loads both airports with a single query. A missing arrival
// airport is reported before a missing departure airport.
func (s *FlightCommandService) resolveAirports(ctx context.Context, depCode, arrCode string) (dep, arr domain.Airport, err error) {
	found, err := repo.FindAirportsByCodes(ctx, s.reader(), depCode, arrCode)
	if err != nil {
		return dep, arr, err
	}
	byCode := make(map[string]domain.Airport, len(found))
	for _, a := range found {
		byCode[a.Code] = a
	}
	arr, ok := byCode[arrCode]
	if !ok {
		return dep, arr, businessRule(MsgAirportNotFound, arrCode)
	}
	dep, ok = byCode[depCode]
	if !ok {
		return dep, arr, businessRule(MsgAirportNotFound, depCode)
	}
	return dep, arr, nil
}

// DeleteFlight removes the flight cmd.ID if cmd.Version is still current.
//
// Errors:
//   - *ValidationError (ErrValidation) when the id is not positive or the
//     version is missing
//   - ErrFlightNotFound when no flight has that id
//   - ErrVersionConflict when the version is stale
func (s *FlightCommandService) DeleteFlight(ctx context.Context, cmd DeleteFlightCommand) error {
	tr := otel.Tracer("services/FlightCommandService")
	ctx, span := tr.Start(ctx, "DeleteFlight",
		trace.WithAttributes(attribute.Int64("flight.id", cmd.ID)),
	)
	defer span.End()

	ev, err := s.deleteFlight(ctx, cmd)
	finish(ctx, span, "delete", err)
	if err != nil {
		return err
	}
	s.publish(ctx, ev)
	return nil
}

func (s *FlightCommandService) deleteFlight(ctx context.Context, cmd DeleteFlightCommand) (events.FlightEvent, error) {
	if err := ValidateDeleteFlight(cmd); err != nil {
		return events.FlightEvent{}, err
	}

	var deleted *domain.Flight
	err := s.Write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := repo.GetFlight(ctx, tx, uint(cmd.ID))
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrFlightNotFound
			}
			return err
		}
		if domain.DetectConflict(stored.Version, cmd.Version) == domain.VersionConflict {
			return ErrVersionConflict
		}
		if err := repo.DeleteFlightIfVersion(ctx, tx, stored.ID, cmd.Version); err != nil {
			if errors.Is(err, repo.ErrStaleVersion) {
				return ErrVersionConflict
			}
			return err
		}
		deleted = stored
		return nil
	})
	if err != nil {
		return events.FlightEvent{}, err
	}
	return s.event(events.FlightDeleted, deleted), nil
}

func (s *FlightCommandService) reader() *gorm.DB {
	if s.Read != nil {
		return s.Read
	}
	return s.Write
}

func (s *FlightCommandService) event(typ string, f *domain.Flight) events.FlightEvent {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return events.FlightEvent{
		Type:         typ,
		FlightID:     f.ID,
		FlightNumber: f.FlightNumber,
		Version:      f.Version,
		OccurredAt:   now().UTC(),
	}
}

// publish hands ev to the configured publisher. Failures are logged only.
func (s *FlightCommandService) publish(ctx context.Context, ev events.FlightEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("event", ev.Type).
			Uint("flight_id", ev.FlightID).
			Msg("flight event publish failed")
	}
}

// outcome maps a command error to its metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrBusinessRule):
		return "business_rule"
	case errors.Is(err, ErrFlightNotFound):
		return "not_found"
	case errors.Is(err, ErrVersionConflict):
		return "conflict"
	default:
		return "error"
	}
}

// finish records the command outcome on the span, the counter and the log.
func finish(ctx context.Context, span trace.Span, command string, err error) {
	o := outcome(err)
	flightCommands.WithLabelValues(command, o).Inc()
	span.SetAttributes(attribute.String("command.outcome", o))
	switch o {
	case "ok":
	case "conflict":
		zerolog.Ctx(ctx).Info().Str("command", command).Msg("version conflict")
	case "error":
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
