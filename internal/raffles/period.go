package raffles

import "time"

// PeriodLayout is the canonical monthly raffle period format.
const PeriodLayout = "2006-01"

// PeriodFor returns the raffle period a point in time falls into. Periods are
// computed in UTC so the bucket never depends on server locale.
func PeriodFor(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}

// ParsePeriod validates a period string.
func ParsePeriod(value string) (time.Time, error) {
	return time.Parse(PeriodLayout, value)
}
