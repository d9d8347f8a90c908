// Flight HTTP handlers.
//
// This file exposes REST endpoints for flight resources:
//   - GET    /flights          (list)
//   - GET    /flights/search   (airline/airport/time window filter)
//   - GET    /flights/{id}     (single flight)
//   - POST   /flights          (create, Idempotency-Key aware)
//   - PUT    /flights/{id}     (replace, version guarded)
//   - DELETE /flights/{id}     (delete, version guarded)
//
// Handlers are transport-thin: they decode input, call the command or query
// service, and translate the service error taxonomy into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
	"github.com/tbourn/go-flight-info-backend/internal/http/middleware"
	"github.com/tbourn/go-flight-info-backend/internal/search"
	"github.com/tbourn/go-flight-info-backend/internal/services"
	"github.com/tbourn/go-flight-info-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// FlightCommands is the write side consumed by the handlers.
type FlightCommands interface {
	SetFlight(ctx context.Context, cmd services.SetFlightCommand) (uint, error)
	DeleteFlight(ctx context.Context, cmd services.DeleteFlightCommand) error
}

// FlightQueries is the read side consumed by the handlers.
type FlightQueries interface {
	Get(ctx context.Context, id uint) (*services.FlightView, error)
	List(ctx context.Context) ([]services.FlightView, error)
	Search(ctx context.Context, opts search.Options) ([]services.FlightView, error)
	Airports(ctx context.Context) ([]domain.Airport, error)
}

// IdempotencyStore records completed creations so retries carrying the same
// Idempotency-Key get the original id back.
type IdempotencyStore interface {
	Lookup(ctx context.Context, clientID, key string, now time.Time) (flightID uint, found bool, err error)
	Remember(ctx context.Context, clientID, key string, flightID uint, status int) error
}

//
// Handler wiring
//

// Handlers groups the flight and airport endpoints.
type Handlers struct {
	cmds     FlightCommands
	queries  FlightQueries
	idem     IdempotencyStore
	basePath string
}

// New constructs Handlers. idem may be nil to disable create replays.
// basePath prefixes the Location header of created flights.
func New(cmds FlightCommands, queries FlightQueries, idem IdempotencyStore, basePath string) *Handlers {
	return &Handlers{cmds: cmds, queries: queries, idem: idem, basePath: basePath}
}

//
// DTOs
//

// IDResponse carries the id of a created or replaced flight.
type IDResponse struct {
	ID uint `json:"id" example:"1"`
}

//
// Helpers
//

// flightID reads the :id path parameter. Anything that is not a positive
// integer yields 0.
func flightID(c *gin.Context) uint {
	id := utils.ParseInt64(c.Param("id"), 0)
	if id <= 0 {
		return 0
	}
	return uint(id)
}

// parseInstant parses an optional RFC 3339 query parameter.
func parseInstant(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be an RFC 3339 timestamp")
		return nil, false
	}
	return &t, true
}

// writeServiceError maps the service error taxonomy onto the HTTP envelope.
func writeServiceError(c *gin.Context, err error) {
	var ve *services.ValidationError
	var be *services.BusinessRuleError
	switch {
	case errors.As(err, &ve):
		msg := ve.Summary
		if msg == "" {
			msg = "one or more validation errors occurred"
		}
		failDetails(c, http.StatusBadRequest, ErrCodeValidation, msg, ve.Messages())
	case errors.As(err, &be):
		fail(c, http.StatusBadRequest, ErrCodeBusinessRule, be.Message)
	case errors.Is(err, services.ErrFlightNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "flight not found")
	case errors.Is(err, services.ErrVersionConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, services.ErrVersionConflict.Error())
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("flight request failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

func (h *Handlers) location(id uint) string {
	return path.Join("/", h.basePath, "flights", strconv.FormatUint(uint64(id), 10))
}

func (h *Handlers) created(c *gin.Context, id uint) {
	c.Header("Location", h.location(id))
	ok(c, http.StatusCreated, IDResponse{ID: id})
}

//
// Handlers
//

// ListFlights godoc
// @ID          listFlights
// @Summary     List flights
// @Description Returns every flight ordered by id.
// @Tags        Flights
// @Produce     json
//
// @Success     200  {array}   services.FlightView
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /flights [get]
func (h *Handlers) ListFlights(c *gin.Context) {
	items, err := h.queries.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// SearchFlights godoc
// @ID          searchFlights
// @Summary     Search flights
// @Description Filters flights by airline, by airport (code or name fragment on
// @Description either end), and by a strict departure/arrival time window.
// @Description Without any criteria every flight is returned.
// @Tags        Flights
// @Produce     json
//
// @Param       airline   query  string  false "Exact airline name"                       example(Air New Zealand)
// @Param       airport   query  string  false "Airport code or name fragment"            example(NZAA)
// @Param       fromDate  query  string  false "Departure strictly after (RFC 3339)"      format(date-time)
// @Param       toDate    query  string  false "Arrival strictly before (RFC 3339)"       format(date-time)
//
// @Success     200  {array}   services.FlightView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad date"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /flights/search [get]
func (h *Handlers) SearchFlights(c *gin.Context) {
	from, okFrom := parseInstant(c, "fromDate")
	if !okFrom {
		return
	}
	to, okTo := parseInstant(c, "toDate")
	if !okTo {
		return
	}
	opts := search.Options{
		Airline:  c.Query("airline"),
		Airport:  c.Query("airport"),
		FromDate: from,
		ToDate:   to,
	}
	items, err := h.queries.Search(c.Request.Context(), opts)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetFlight godoc
// @ID          getFlight
// @Summary     Get a flight
// @Tags        Flights
// @Produce     json
//
// @Param       id   path  int  true  "Flight ID"  minimum(1)
//
// @Success     200  {object}  services.FlightView
// @Failure     404  {object}  handlers.ErrorResponse  "Flight not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /flights/{id} [get]
func (h *Handlers) GetFlight(c *gin.Context) {
	id := flightID(c)
	if id == 0 {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "flight not found")
		return
	}
	v, err := h.queries.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// CreateFlight godoc
// @ID          createFlight
// @Summary     Create a flight
// @Description Validates and stores a new flight and returns its id. A retry
// @Description with the same Idempotency-Key returns the original id.
// @Tags        Flights
// @Accept      json
// @Produce     json
//
// @Param       X-Client-ID      header  string  false "Client identifier scoping idempotency keys"  example(ops-console)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    services.SetFlightCommand  true  "Flight"
//
// @Success     201  {object}  handlers.IDResponse
// @Header      201  {string}  Location              "URL of the created flight"
// @Header      201  {string}  Idempotency-Replayed  "true when the id comes from an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation or business rule failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /flights [post]
func (h *Handlers) CreateFlight(c *gin.Context) {
	ctx := c.Request.Context()

	var cmd services.SetFlightCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cmd.ID = 0

	client := middleware.ClientID(c)
	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.idem != nil {
		if id, found, err := h.idem.Lookup(ctx, client, key, time.Now().UTC()); err == nil && found {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			h.created(c, id)
			return
		}
	}

	id, err := h.cmds.SetFlight(ctx, cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// Best effort: a lost record only means a retry creates a second flight.
	if hasKey && h.idem != nil {
		if err := h.idem.Remember(ctx, client, key, id, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Uint("flight_id", id).Msg("idempotency record not stored")
		}
	}

	h.created(c, id)
}

// UpdateFlight godoc
// @ID          updateFlight
// @Summary     Replace a flight
// @Description Replaces every field of a flight. The body must carry the
// @Description version returned by the last read; a stale version yields 409.
// @Tags        Flights
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                        true  "Flight ID"  minimum(1)
// @Param       body  body  services.SetFlightCommand  true  "Flight"
//
// @Success     200  {object}  handlers.IDResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation or business rule failure"
// @Failure     404  {object}  handlers.ErrorResponse  "Flight not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Version conflict"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /flights/{id} [put]
func (h *Handlers) UpdateFlight(c *gin.Context) {
	id := flightID(c)
	if id == 0 {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "flight not found")
		return
	}

	var cmd services.SetFlightCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cmd.ID = id

	got, err := h.cmds.SetFlight(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, IDResponse{ID: got})
}

// DeleteFlight godoc
// @ID          deleteFlight
// @Summary     Delete a flight
// @Tags        Flights
// @Produce     json
//
// @Param       id       path   int     true  "Flight ID"                    minimum(1)
// @Param       version  query  string  true  "Version from the last read"   format(uuid)
//
// @Success     200  {string}  string  "OK"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id or version"
// @Failure     404  {object}  handlers.ErrorResponse  "Flight not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Version conflict"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /flights/{id} [delete]
func (h *Handlers) DeleteFlight(c *gin.Context) {
	var version uuid.UUID
	if raw := strings.TrimSpace(c.Query("version")); raw != "" {
		v, err := uuid.Parse(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "version must be a UUID")
			return
		}
		version = v
	}

	cmd := services.DeleteFlightCommand{
		ID:      utils.ParseInt64(c.Param("id"), 0),
		Version: version,
	}
	if err := h.cmds.DeleteFlight(c.Request.Context(), cmd); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
