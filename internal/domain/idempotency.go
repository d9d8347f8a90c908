package domain

import "time"

// Idempotency records the outcome of a completed create request, keyed by
// (client_id, key). A retry carrying the same Idempotency-Key within the TTL
// is answered with the stored flight id instead of inserting a second flight.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	ClientID  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_client_key,priority:1"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_client_key,priority:2"`
	FlightID  uint      `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
