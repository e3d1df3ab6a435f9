package service

import (
	"context"
	"errors"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Checker answers whether a slot still has a free table.
type Checker struct {
	r Reader
}

func NewChecker(r Reader) *Checker { return &Checker{r: r} }

// IsSlotAvailable reports whether fewer than TotalTables active
// reservations occupy slot.  The reservation excludeID, when non-zero,
// is left out of the count so that an update never competes with itself.
func (c *Checker) IsSlotAvailable(ctx context.Context, slot model.Slot, excludeID uint64) (bool, error) {
	rest, err := c.r.GetRestaurant(ctx, slot.RestaurantID)
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return false, ErrRestaurantNotFound
		}
		return false, err
	}
	return c.hasRoom(ctx, rest, slot, excludeID)
}

func (c *Checker) hasRoom(ctx context.Context, rest *model.Restaurant, slot model.Slot, excludeID uint64) (bool, error) {
	n, err := c.r.CountActiveInSlot(ctx, slot, excludeID)
	if err != nil {
		return false, err
	}
	return n < rest.TotalTables, nil
}
