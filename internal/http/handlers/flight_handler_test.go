package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
	"github.com/tbourn/go-flight-info-backend/internal/http/middleware"
	"github.com/tbourn/go-flight-info-backend/internal/repo"
	"github.com/tbourn/go-flight-info-backend/internal/search"
	"github.com/tbourn/go-flight-info-backend/internal/services"
	"github.com/tbourn/go-flight-info-backend/internal/validation"
)

// ---------- stubs ----------

type stubCommands struct {
	set func(context.Context, services.SetFlightCommand) (uint, error)
	del func(context.Context, services.DeleteFlightCommand) error
}

func (s stubCommands) SetFlight(ctx context.Context, cmd services.SetFlightCommand) (uint, error) {
	if s.set != nil {
		return s.set(ctx, cmd)
	}
	return 1, nil
}

func (s stubCommands) DeleteFlight(ctx context.Context, cmd services.DeleteFlightCommand) error {
	if s.del != nil {
		return s.del(ctx, cmd)
	}
	return nil
}

type stubQueries struct {
	err error
}

func (s stubQueries) Get(context.Context, uint) (*services.FlightView, error) {
	return nil, s.err
}

func (s stubQueries) List(context.Context) ([]services.FlightView, error) {
	return nil, s.err
}

func (s stubQueries) Search(context.Context, search.Options) ([]services.FlightView, error) {
	return nil, s.err
}

func (s stubQueries) Airports(context.Context) ([]domain.Airport, error) {
	return nil, s.err
}

// ---------- real stack ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:flight_handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seeds, err := repo.LoadAirportSeeds("")
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if _, err := repo.SeedAirports(context.Background(), db, seeds); err != nil {
		t.Fatalf("seed airports: %v", err)
	}
	return db
}

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	api := r.Group("/api")
	api.GET("/flights", h.ListFlights)
	api.GET("/flights/search", h.SearchFlights)
	api.GET("/flights/:id", h.GetFlight)
	api.POST("/flights", h.CreateFlight)
	api.PUT("/flights/:id", h.UpdateFlight)
	api.DELETE("/flights/:id", h.DeleteFlight)
	api.GET("/airports", h.ListAirports)
	return r
}

func newStack(t *testing.T) *gin.Engine {
	t.Helper()
	db := newHandlerDB(t)
	h := New(
		services.NewFlightCommandService(db, db, nil),
		&services.FlightQueryService{Read: db},
		repo.IdempotencyStore{DB: db, TTL: time.Hour},
		"/api",
	)
	return newRouter(h)
}

func do(r http.Handler, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func flightBody(number, dep, arr, depAt, arrAt, status string) map[string]any {
	return map[string]any{
		"flightNumber":     number,
		"airline":          "Air New Zealand",
		"departureAirport": dep,
		"arrivalAirport":   arr,
		"departureTime":    depAt,
		"arrivalTime":      arrAt,
		"status":           status,
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return v
}

// ---------- tests ----------

func TestFlightLifecycle(t *testing.T) {
	r := newStack(t)

	w := do(r, http.MethodPost, "/api/flights",
		flightBody("ANZ991", "NZPM", "NZAA", "2024-08-15T08:20:00Z", "2024-08-15T09:20:00Z", "Scheduled"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	created := decode[IDResponse](t, w)
	if loc := w.Header().Get("Location"); loc != fmt.Sprintf("/api/flights/%d", created.ID) {
		t.Fatalf("Location=%q", loc)
	}

	w = do(r, http.MethodGet, fmt.Sprintf("/api/flights/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	view := decode[services.FlightView](t, w)
	if view.FlightNumber != "ANZ991" || view.ArrivalAirport != "NZAA" || view.Status != domain.StatusScheduled {
		t.Fatalf("unexpected view: %+v", view)
	}

	// Update without a version is a validation failure.
	noVersion := flightBody("ANZ991", "NZPM", "NZAA", "2024-08-15T08:20:00Z", "2024-08-15T09:25:00Z", "InAir")
	w = do(r, http.MethodPut, fmt.Sprintf("/api/flights/%d", created.ID), noVersion)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("versionless update status=%d body=%s", w.Code, w.Body.String())
	}
	if er := decode[ErrorResponse](t, w); er.Code != ErrCodeValidation {
		t.Fatalf("code=%q", er.Code)
	}

	// Update with the current version.
	upd := flightBody("ANZ991", "NZPM", "NZAA", "2024-08-15T08:20:00Z", "2024-08-15T09:25:00Z", "InAir")
	upd["version"] = view.Version.String()
	w = do(r, http.MethodPut, fmt.Sprintf("/api/flights/%d", created.ID), upd)
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}

	// Replaying the old version conflicts.
	w = do(r, http.MethodPut, fmt.Sprintf("/api/flights/%d", created.ID), upd)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale update status=%d", w.Code)
	}
	if er := decode[ErrorResponse](t, w); er.Code != ErrCodeConflict {
		t.Fatalf("code=%q", er.Code)
	}

	// Delete with the stale version conflicts, then succeeds with the fresh one.
	w = do(r, http.MethodDelete, fmt.Sprintf("/api/flights/%d?version=%s", created.ID, view.Version), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale delete status=%d", w.Code)
	}
	w = do(r, http.MethodGet, fmt.Sprintf("/api/flights/%d", created.ID), nil)
	fresh := decode[services.FlightView](t, w)
	if fresh.Status != domain.StatusInAir || fresh.Version == view.Version {
		t.Fatalf("update not applied: %+v", fresh)
	}
	w = do(r, http.MethodDelete, fmt.Sprintf("/api/flights/%d?version=%s", created.ID, fresh.Version), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, fmt.Sprintf("/api/flights/%d", created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", w.Code)
	}
}

func TestCreateFlight_Failures(t *testing.T) {
	r := newStack(t)

	cases := []struct {
		name     string
		body     any
		wantCode string
		wantMsg  string
		details  int
	}{
		{
			name:     "structural violations are all reported",
			body:     flightBody("TOO-LONG-1", "NZ", "", "2024-08-15T08:20:00Z", "2024-08-15T09:20:00Z", "Landed"),
			wantCode: ErrCodeValidation,
			details:  4,
		},
		{
			name:     "arrival before departure",
			body:     flightBody("ANZ1", "NZPM", "NZAA", "2024-08-15T09:20:00Z", "2024-08-15T08:20:00Z", "Landed"),
			wantCode: ErrCodeBusinessRule,
			wantMsg:  services.MsgArrivalNotAfter,
		},
		{
			name:     "unknown arrival airport",
			body:     flightBody("ANZ1", "NZPM", "ZZZZ", "2024-08-15T08:20:00Z", "2024-08-15T09:20:00Z", "Landed"),
			wantCode: ErrCodeBusinessRule,
			wantMsg:  fmt.Sprintf(services.MsgAirportNotFound, "ZZZZ"),
		},
		{
			name:     "unknown status name",
			body:     flightBody("ANZ1", "NZPM", "NZAA", "2024-08-15T08:20:00Z", "2024-08-15T09:20:00Z", "Boarding"),
			wantCode: ErrCodeBadRequest,
		},
		{
			name:     "malformed json",
			body:     "not an object",
			wantCode: ErrCodeBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/flights", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			er := decode[ErrorResponse](t, w)
			if er.Code != tc.wantCode {
				t.Fatalf("code=%q; want %q", er.Code, tc.wantCode)
			}
			if tc.wantMsg != "" && er.Message != tc.wantMsg {
				t.Fatalf("message=%q; want %q", er.Message, tc.wantMsg)
			}
			if len(er.Details) != tc.details {
				t.Fatalf("details=%v; want %d entries", er.Details, tc.details)
			}
		})
	}
}

func TestCreateFlight_IdempotentReplay(t *testing.T) {
	r := newStack(t)
	body := flightBody("QFA886", "NZDN", "NZAA", "2024-08-17T07:30:00Z", "2024-08-17T09:20:00Z", "Scheduled")

	first := do(r, http.MethodPost, "/api/flights", body,
		middleware.HeaderIdempotencyKey, "create-qfa886", middleware.HeaderClientID, "ops")
	if first.Code != http.StatusCreated {
		t.Fatalf("first status=%d body=%s", first.Code, first.Body.String())
	}
	second := do(r, http.MethodPost, "/api/flights", body,
		middleware.HeaderIdempotencyKey, "create-qfa886", middleware.HeaderClientID, "ops")
	if second.Code != http.StatusCreated || second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay status=%d headers=%v", second.Code, second.Header())
	}
	if decode[IDResponse](t, first).ID != decode[IDResponse](t, second).ID {
		t.Fatalf("replay returned a different id")
	}

	// Another client with the same key creates its own flight.
	other := do(r, http.MethodPost, "/api/flights", body,
		middleware.HeaderIdempotencyKey, "create-qfa886", middleware.HeaderClientID, "other")
	if other.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("keys must not be shared across clients")
	}

	all := decode[[]services.FlightView](t, do(r, http.MethodGet, "/api/flights", nil))
	if len(all) != 2 {
		t.Fatalf("flights=%d; want 2", len(all))
	}
}

func TestSearchFlights(t *testing.T) {
	r := newStack(t)
	for _, b := range []map[string]any{
		flightBody("ANZ991", "NZPM", "NZAA", "2024-08-15T08:20:00Z", "2024-08-15T09:20:00Z", "Landed"),
		flightBody("ANZ5037", "NZWN", "NZCH", "2024-08-16T07:00:00Z", "2024-08-16T07:35:00Z", "Scheduled"),
	} {
		if w := do(r, http.MethodPost, "/api/flights", b); w.Code != http.StatusCreated {
			t.Fatalf("seed status=%d body=%s", w.Code, w.Body.String())
		}
	}

	cases := []struct {
		query  string
		status int
		want   []string
	}{
		{"", http.StatusOK, []string{"ANZ991", "ANZ5037"}},
		{"?airport=nzaa", http.StatusOK, []string{"ANZ991"}},
		{"?airport=palmerston", http.StatusOK, []string{"ANZ991"}},
		{"?fromDate=2024-08-16T00:00:00Z", http.StatusOK, []string{"ANZ5037"}},
		{"?toDate=2024-08-16T00:00:00%2B12:00", http.StatusOK, []string{"ANZ991"}},
		{"?fromDate=yesterday", http.StatusBadRequest, nil},
		{"?toDate=2024-08-16", http.StatusBadRequest, nil},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/flights/search"+tc.query, nil)
			if w.Code != tc.status {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if tc.status != http.StatusOK {
				return
			}
			got := decode[[]services.FlightView](t, w)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d flights; want %v", len(got), tc.want)
			}
			for i, n := range tc.want {
				if got[i].FlightNumber != n {
					t.Fatalf("got[%d]=%s; want %s", i, got[i].FlightNumber, n)
				}
			}
		})
	}
}

func TestListAirports(t *testing.T) {
	r := newStack(t)
	w := do(r, http.MethodGet, "/api/airports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	aps := decode[[]domain.Airport](t, w)
	found := false
	for _, a := range aps {
		if a.Code == "NZAA" {
			found = true
		}
	}
	if !found {
		t.Fatalf("NZAA missing from %v", aps)
	}
}

func TestFlightIDs(t *testing.T) {
	var gotDelete services.DeleteFlightCommand
	h := New(stubCommands{
		set: func(context.Context, services.SetFlightCommand) (uint, error) {
			t.Fatalf("SetFlight must not be called for a non-positive id")
			return 0, nil
		},
		del: func(_ context.Context, cmd services.DeleteFlightCommand) error {
			gotDelete = cmd
			return nil
		},
	}, stubQueries{}, nil, "")
	r := newRouter(h)

	for _, target := range []string{"/api/flights/0", "/api/flights/-3", "/api/flights/abc"} {
		if w := do(r, http.MethodGet, target, nil); w.Code != http.StatusNotFound {
			t.Fatalf("GET %s status=%d", target, w.Code)
		}
		if w := do(r, http.MethodPut, target, map[string]any{}); w.Code != http.StatusNotFound {
			t.Fatalf("PUT %s status=%d", target, w.Code)
		}
	}

	if w := do(r, http.MethodDelete, "/api/flights/5?version=nope", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad version status=%d", w.Code)
	}
	v := uuid.New()
	if w := do(r, http.MethodDelete, "/api/flights/5?version="+v.String(), nil); w.Code != http.StatusOK {
		t.Fatalf("delete status=%d", w.Code)
	}
	if gotDelete.ID != 5 || gotDelete.Version != v {
		t.Fatalf("unexpected delete command: %+v", gotDelete)
	}
}

func TestDeleteFlight_ValidationFromService(t *testing.T) {
	r := newStack(t)
	for _, target := range []string{"/api/flights/0?version=" + uuid.NewString(), "/api/flights/3"} {
		w := do(r, http.MethodDelete, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d", target, w.Code)
		}
		er := decode[ErrorResponse](t, w)
		if er.Code != ErrCodeValidation || er.Message != services.MsgDeleteSummary {
			t.Fatalf("%s unexpected body: %+v", target, er)
		}
	}
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Violations: validation.Errors{{Field: "flightNumber", Message: "bad"}}}, http.StatusBadRequest, ErrCodeValidation},
		{"business rule", &services.BusinessRuleError{Message: "nope"}, http.StatusBadRequest, ErrCodeBusinessRule},
		{"not found", services.ErrFlightNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"wrapped conflict", fmt.Errorf("tx: %w", services.ErrVersionConflict), http.StatusConflict, ErrCodeConflict},
		{"storage", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(New(stubCommands{}, stubQueries{err: tc.err}, nil, "/api"))
			w := do(r, http.MethodGet, "/api/flights", nil)
			if w.Code != tc.status {
				t.Fatalf("status=%d; want %d", w.Code, tc.status)
			}
			er := decode[ErrorResponse](t, w)
			if er.Code != tc.code {
				t.Fatalf("code=%q; want %q", er.Code, tc.code)
			}
			if tc.status == http.StatusInternalServerError && strings.Contains(er.Message, "disk") {
				t.Fatalf("storage error leaked to client: %q", er.Message)
			}
			if tc.code == ErrCodeValidation && (len(er.Details) != 1 || !strings.Contains(er.Details[0], "bad")) {
				t.Fatalf("details=%v", er.Details)
			}
		})
	}
}
