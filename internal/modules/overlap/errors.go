package overlap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSelection matches any InvalidSelectionError via errors.Is
	ErrInvalidSelection = errors.New("invalid fund selection")
	// ErrInsufficientFunds matches any InsufficientFundsError via errors.Is
	ErrInsufficientFunds = errors.New("insufficient funds for aggregation")
)

// InvalidSelectionError is returned when the selected fund IDs violate the
// analysis precondition (count outside [MinFunds, MaxFunds], duplicates or
// blank IDs). It is raised before any resolution work starts.
type InvalidSelectionError struct {
	Reason    string
	Count     int
	Duplicate string // set when the selection repeats a fund ID
}

func (e InvalidSelectionError) Error() string {
	if e.Duplicate != "" {
		return fmt.Sprintf("invalid fund selection: %s (%q)", e.Reason, e.Duplicate)
	}
	return fmt.Sprintf("invalid fund selection: %s (got %d)", e.Reason, e.Count)
}

func (e InvalidSelectionError) Is(target error) bool {
	return target == ErrInvalidSelection
}

// InsufficientFundsError is returned by the aggregator when fewer than two
// holdings lists are supplied
type InsufficientFundsError struct {
	Count int
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("aggregation requires at least %d funds, got %d", MinFunds, e.Count)
}

func (e InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
