// Package search composes flight search criteria into a store query plus an
// in-process filter pass.
//
// The split is fixed:
//
//   - Scope narrows by airline (exact) and airport (name substring on either
//     end, or exact code on either end). These predicates run in the store.
//   - Filter narrows by time window. It runs over the loaded flights so that
//     instants are compared with their offsets honored on every driver.
//
// An empty Options leaves both phases as no-ops and every flight is returned.
package search

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
	"github.com/tbourn/go-flight-info-backend/internal/repo"
	"github.com/tbourn/go-flight-info-backend/internal/utils"
)

// Options holds the optional search criteria. Blank strings and nil times
// mean "no constraint".
type Options struct {
	Airline  string
	Airport  string
	FromDate *time.Time
	ToDate   *time.Time
}

// Normalized returns a copy with text criteria trimmed and NFC-normalized.
func (o Options) Normalized() Options {
	o.Airline = utils.NormalizeText(o.Airline)
	o.Airport = utils.NormalizeText(o.Airport)
	return o
}

// IsEmpty reports whether no criterion is set.
func (o Options) IsEmpty() bool {
	o = o.Normalized()
	return o.Airline == "" && o.Airport == "" && o.FromDate == nil && o.ToDate == nil
}

// Scope returns the store-side predicate for opts. Airport names match
// case-insensitively; airport codes must equal the term exactly.
func Scope(opts Options) repo.Scope {
	opts = opts.Normalized()
	return func(db *gorm.DB) *gorm.DB {
		if opts.Airline != "" {
			db = db.Where("flights.airline = ?", opts.Airline)
		}
		if opts.Airport != "" {
			like := "%" + escapeLike(strings.ToLower(opts.Airport)) + "%"
			code := opts.Airport
			db = db.
				Joins("JOIN airports dep_airport ON dep_airport.id = flights.departure_airport_id").
				Joins("JOIN airports arr_airport ON arr_airport.id = flights.arrival_airport_id").
				Where(
					`LOWER(dep_airport.name) LIKE ? ESCAPE '\' OR LOWER(arr_airport.name) LIKE ? ESCAPE '\' OR dep_airport.code = ? OR arr_airport.code = ?`,
					like, like, code, code,
				)
		}
		return db
	}
}

// Filter keeps flights departing strictly after FromDate and arriving
// strictly before ToDate. The input slice is not modified.
func Filter(flights []domain.Flight, opts Options) []domain.Flight {
	if opts.FromDate == nil && opts.ToDate == nil {
		return flights
	}
	out := make([]domain.Flight, 0, len(flights))
	for _, f := range flights {
		if opts.FromDate != nil && !f.DepartureTime.After(*opts.FromDate) {
			continue
		}
		if opts.ToDate != nil && !f.ArrivalTime.Before(*opts.ToDate) {
			continue
		}
		out = append(out, f)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
