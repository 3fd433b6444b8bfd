package enums

import "fmt"

// RaffleStatus maps to the raffle_status enum in Postgres.
type RaffleStatus string

const (
	RaffleStatusOpen   RaffleStatus = "open"
	RaffleStatusClosed RaffleStatus = "closed"
	RaffleStatusDrawn  RaffleStatus = "drawn"
)

var validRaffleStatuses = []RaffleStatus{
	RaffleStatusOpen,
	RaffleStatusClosed,
	RaffleStatusDrawn,
}

// IsValid reports whether the value matches the canonical raffle_status enum.
func (s RaffleStatus) IsValid() bool {
	for _, candidate := range validRaffleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo enforces the strictly forward open -> closed -> drawn chain.
func (s RaffleStatus) CanTransitionTo(next RaffleStatus) bool {
	switch s {
	case RaffleStatusOpen:
		return next == RaffleStatusClosed
	case RaffleStatusClosed:
		return next == RaffleStatusDrawn
	default:
		return false
	}
}

// ParseRaffleStatus converts raw input into RaffleStatus.
func ParseRaffleStatus(value string) (RaffleStatus, error) {
	for _, candidate := range validRaffleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid raffle status %q", value)
}
