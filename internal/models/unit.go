package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reserved apartment sentinels. ADMIN marks the unit administrator; SOPORTE
// marks a support-contact placeholder with allow_entry=false. Sentinel rows
// never receive meeting invitations and are excluded from quorum denominators.
const (
	ApartmentAdmin   = "ADMIN"
	ApartmentSupport = "SOPORTE"
)

// IsSentinelApartment reports whether an apartment number is a reserved
// non-voting placeholder.
func IsSentinelApartment(apartment string) bool {
	return apartment == ApartmentAdmin || apartment == ApartmentSupport
}

// Unit is a residential unit (building/condominium).
type Unit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitMembership links a user to a unit with their default voting weight.
// A user has at most one membership per unit.
type UnitMembership struct {
	UserID          int64           `json:"user_id"`
	UnitID          int64           `json:"unit_id"`
	ApartmentNumber string          `json:"apartment_number"`
	IsAdmin         bool            `json:"is_admin"`
	DefaultWeight   decimal.Decimal `json:"default_weight"`
	CreatedAt       time.Time       `json:"created_at"`
}
