package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
)

// FindAirportsByCodes loads every airport whose code is in codes with a single
// query. Missing codes are simply absent from the result; duplicates in codes
// are harmless.
func FindAirportsByCodes(ctx context.Context, db *gorm.DB, codes ...string) ([]domain.Airport, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var out []domain.Airport
	err := db.WithContext(ctx).
		Where("code IN ?", codes).
		Find(&out).Error
	return out, err
}

// ListAirports returns the airport reference table ordered by code.
func ListAirports(ctx context.Context, db *gorm.DB) ([]domain.Airport, error) {
	var out []domain.Airport
	err := db.WithContext(ctx).Order("code asc").Find(&out).Error
	return out, err
}
