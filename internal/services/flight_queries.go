package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
	"github.com/tbourn/go-flight-info-backend/internal/repo"
	"github.com/tbourn/go-flight-info-backend/internal/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FlightView is the read model returned by every flight query. Airports are
// reported by code.
type FlightView struct {
	ID               uint                `json:"id"               example:"1"`
	FlightNumber     string              `json:"flightNumber"     example:"ANZ991"`
	Airline          string              `json:"airline"          example:"Air New Zealand"`
	DepartureAirport string              `json:"departureAirport" example:"NZPM"`
	ArrivalAirport   string              `json:"arrivalAirport"   example:"NZAA"`
	DepartureTime    time.Time           `json:"departureTime"    example:"2024-08-15T08:20:00Z"`
	ArrivalTime      time.Time           `json:"arrivalTime"      example:"2024-08-15T09:20:00Z"`
	Status           domain.FlightStatus `json:"status"           swaggertype:"string" example:"Landed"`
	Version          uuid.UUID           `json:"version"          swaggertype:"string" format:"uuid"`
}

// NewFlightView projects a flight with preloaded airports.
func NewFlightView(f domain.Flight) FlightView {
	return FlightView{
		ID:               f.ID,
		FlightNumber:     f.FlightNumber,
		Airline:          f.Airline,
		DepartureAirport: f.DepartureAirport.Code,
		ArrivalAirport:   f.ArrivalAirport.Code,
		DepartureTime:    f.DepartureTime,
		ArrivalTime:      f.ArrivalTime,
		Status:           f.Status,
		Version:          f.Version,
	}
}

func newFlightViews(flights []domain.Flight) []FlightView {
	out := make([]FlightView, 0, len(flights))
	for _, f := range flights {
		out = append(out, NewFlightView(f))
	}
	return out
}

// FlightQueryService answers read requests from the read store.
type FlightQueryService struct {
	Read *gorm.DB
}

// Get returns one flight or ErrFlightNotFound.
func (s *FlightQueryService) Get(ctx context.Context, id uint) (*FlightView, error) {
	tr := otel.Tracer("services/FlightQueryService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.Int64("flight.id", int64(id))))
	defer span.End()

	f, err := repo.GetFlight(ctx, s.Read, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrFlightNotFound
		}
		return nil, err
	}
	v := NewFlightView(*f)
	return &v, nil
}

// List returns every flight ordered by id.
func (s *FlightQueryService) List(ctx context.Context) ([]FlightView, error) {
	tr := otel.Tracer("services/FlightQueryService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()

	flights, err := repo.ListFlights(ctx, s.Read)
	if err != nil {
		return nil, err
	}
	return newFlightViews(flights), nil
}

// Search applies the airline and airport criteria in the store and the time
// window over the loaded rows. Empty options return every flight.
func (s *FlightQueryService) Search(ctx context.Context, opts search.Options) ([]FlightView, error) {
	tr := otel.Tracer("services/FlightQueryService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("search.airline", opts.Airline),
			attribute.String("search.airport", opts.Airport),
		),
	)
	defer span.End()

	var scopes []repo.Scope
	if !opts.IsEmpty() {
		scopes = append(scopes, search.Scope(opts))
	}
	flights, err := repo.ListFlights(ctx, s.Read, scopes...)
	if err != nil {
		return nil, err
	}
	if len(scopes) > 0 {
		flights = search.Filter(flights, opts)
	}
	span.SetAttributes(attribute.Int("search.results", len(flights)))
	return newFlightViews(flights), nil
}

// Airports returns the airport reference table ordered by code.
func (s *FlightQueryService) Airports(ctx context.Context) ([]domain.Airport, error) {
	return repo.ListAirports(ctx, s.Read)
}
