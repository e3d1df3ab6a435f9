package model

import "time"

// Holiday is a restaurant specific closing day.  The (RestaurantID, Date)
// pair is unique; no slot of that restaurant may be booked on Date.
type Holiday struct {
	ID           uint64    `json:"id"`
	RestaurantID uint64    `json:"restaurant_id"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	CreatedBy    *uint64   `json:"created_by,omitempty"`
	UpdatedBy    *uint64   `json:"updated_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
