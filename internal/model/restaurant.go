package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Location is the geographic position of a restaurant.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Restaurant represents a venue that accepts table reservations.  It
// corresponds to a row in the `restaurants` table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Address     – street address.
//  Telephone   – contact number.
//  OpenTime    – opening hour in HH:MM form.
//  CloseTime   – closing hour in HH:MM form.
//  TotalTables – number of tables, i.e. reservations accepted per slot (≥ 1).
//  Location    – latitude/longitude.
//  CreatedBy   – admin that created the row (nullable).
//  UpdatedBy   – admin that last changed the row (nullable).
type Restaurant struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Telephone   string    `json:"telephone"`
	OpenTime    string    `json:"open_time"`
	CloseTime   string    `json:"close_time"`
	TotalTables int       `json:"total_tables"`
	Location    Location  `json:"location"`
	CreatedBy   *uint64   `json:"created_by,omitempty"`
	UpdatedBy   *uint64   `json:"updated_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TimeSlots returns the hourly slots ("HH:00") between the opening hour
// (inclusive) and the closing hour (exclusive).  Minutes are ignored.
func (r Restaurant) TimeSlots() ([]string, error) {
	start, err := hourOf(r.OpenTime)
	if err != nil {
		return nil, err
	}
	end, err := hourOf(r.CloseTime)
	if err != nil {
		return nil, err
	}
	slots := make([]string, 0, max(end-start, 0))
	for h := start; h < end; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots, nil
}

func hourOf(hhmm string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(hhmm), ":")
	h, err := strconv.Atoi(head)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour %q", hhmm)
	}
	return h, nil
}
