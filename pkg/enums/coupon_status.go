package enums

import "fmt"

// CouponStatus maps to the coupon_status enum in Postgres.
type CouponStatus string

const (
	CouponStatusGenerated    CouponStatus = "generated"
	CouponStatusScanned      CouponStatus = "scanned"
	CouponStatusActivated    CouponStatus = "activated"
	CouponStatusCompleted    CouponStatus = "completed"
	CouponStatusUsedInRaffle CouponStatus = "used_in_raffle"
	CouponStatusExpired      CouponStatus = "expired"
)

var validCouponStatuses = []CouponStatus{
	CouponStatusGenerated,
	CouponStatusScanned,
	CouponStatusActivated,
	CouponStatusCompleted,
	CouponStatusUsedInRaffle,
	CouponStatusExpired,
}

// couponTransitions is the exhaustive allowed-transition table. A coupon only
// ever moves forward; expired and used_in_raffle are terminal.
var couponTransitions = map[CouponStatus][]CouponStatus{
	CouponStatusGenerated:    {CouponStatusScanned, CouponStatusExpired},
	CouponStatusScanned:      {CouponStatusActivated, CouponStatusExpired},
	CouponStatusActivated:    {CouponStatusCompleted, CouponStatusExpired},
	CouponStatusCompleted:    {CouponStatusUsedInRaffle, CouponStatusExpired},
	CouponStatusUsedInRaffle: {},
	CouponStatusExpired:      {},
}

// IsValid reports whether the value matches the canonical coupon_status enum.
func (s CouponStatus) IsValid() bool {
	for _, candidate := range validCouponStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s CouponStatus) IsTerminal() bool {
	return len(couponTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s CouponStatus) CanTransitionTo(next CouponStatus) bool {
	for _, candidate := range couponTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseCouponStatus converts raw input into CouponStatus.
func ParseCouponStatus(value string) (CouponStatus, error) {
	for _, candidate := range validCouponStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon status %q", value)
}
