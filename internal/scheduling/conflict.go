package scheduling

import (
	"context"
	"fmt"
	"time"
)

// AvailabilityResult is the outcome of a booking-window pre-check.
type AvailabilityResult struct {
	Available     bool
	ConflictingID int64
}

// ConflictChecker decides whether a doctor's calendar can take a new booking.
// Read-only; the storage constraint remains the final word under concurrency.
type ConflictChecker struct {
	repo Repository
}

func NewConflictChecker(repo Repository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// CheckAvailability tests the half-open window [start, start+duration)
// against every non-cancelled appointment for the doctor. A booking that
// starts exactly when another ends is not a conflict.
func (c *ConflictChecker) CheckAvailability(ctx context.Context, doctorID int64, start time.Time, durationMinutes int) (AvailabilityResult, error) {
	if durationMinutes <= 0 {
		return AvailabilityResult{}, validationf("duration must be positive, got %d", durationMinutes)
	}

	existing, err := c.repo.ListActiveByDoctor(ctx, doctorID)
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("list active appointments: %w", err)
	}

	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for i := range existing {
		if existing[i].Overlaps(start, end) {
			return AvailabilityResult{Available: false, ConflictingID: existing[i].ID}, nil
		}
	}

	return AvailabilityResult{Available: true}, nil
}
